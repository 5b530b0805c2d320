package transport

import (
	"context"
	"errors"
)

// ErrUnbound reports that no live messaging binding is configured.
var ErrUnbound = errors.New("no transport binding configured")

// Unbound satisfies Transport and UpdateSource without a live binding. The
// daemon falls back to it when no transport is wired in, keeping the control
// socket and registry available while every messaging call fails loudly.
type Unbound struct{}

func (Unbound) Relay(context.Context, ChannelID, []ItemHandle) ([]ItemRef, error) {
	return nil, ErrUnbound
}

func (Unbound) Deliver(context.Context, ChannelID, []ItemRef) ([]MessageID, error) {
	return nil, ErrUnbound
}

func (Unbound) Send(context.Context, ChannelID, string, *Panel) (MessageID, error) {
	return 0, ErrUnbound
}

func (Unbound) Edit(context.Context, ChannelID, MessageID, string, *Panel) error {
	return ErrUnbound
}

func (Unbound) Retract(context.Context, ChannelID, []MessageID) error {
	return ErrUnbound
}

func (Unbound) Discard(context.Context, []ItemRef) error {
	return ErrUnbound
}

// Updates yields no updates; the stream ends when ctx is canceled.
func (Unbound) Updates(ctx context.Context) <-chan Update {
	ch := make(chan Update)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
