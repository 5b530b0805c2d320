package testsupport

import (
	"context"
	"sync"

	"courier/internal/transport"
)

// UpdateSource is a transport.UpdateSource fed by the test.
type UpdateSource struct {
	ch        chan transport.Update
	closeOnce sync.Once
}

// NewUpdateSource returns a source with a buffered update channel.
func NewUpdateSource() *UpdateSource {
	return &UpdateSource{ch: make(chan transport.Update, 64)}
}

// Push queues one update for the consumer.
func (s *UpdateSource) Push(u transport.Update) {
	s.ch <- u
}

// Close ends the stream; the consumer's loop drains and exits.
func (s *UpdateSource) Close() {
	s.closeOnce.Do(func() { close(s.ch) })
}

func (s *UpdateSource) Updates(ctx context.Context) <-chan transport.Update {
	return s.ch
}
