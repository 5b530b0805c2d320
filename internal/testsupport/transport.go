package testsupport

import (
	"context"
	"sync"

	"courier/internal/transport"
)

// SentMessage records one Send or Edit call observed by the fake transport.
type SentMessage struct {
	Dest  transport.ChannelID
	ID    transport.MessageID
	Text  string
	Panel *transport.Panel
}

// Delivery records one Deliver call observed by the fake transport.
type Delivery struct {
	Dest transport.ChannelID
	Refs []transport.ItemRef
	IDs  []transport.MessageID
}

// FakeTransport is an in-memory transport.Transport that hands out
// monotonically increasing refs and message ids and records every call.
// All methods are safe for concurrent use.
type FakeTransport struct {
	mu sync.Mutex

	nextRef transport.ItemRef
	nextMsg transport.MessageID

	relayErr   error
	deliverErr error
	sendErr    error

	relayed    [][]transport.ItemHandle
	deliveries []Delivery
	sent       []SentMessage
	edits      []SentMessage
	retracted  []transport.MessageID
	discarded  []transport.ItemRef

	gone map[transport.MessageID]struct{}
}

// NewFakeTransport constructs an empty fake.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		nextRef: 1000,
		nextMsg: 5000,
		gone:    make(map[transport.MessageID]struct{}),
	}
}

// FailRelay makes subsequent Relay calls return err. Pass nil to clear.
func (f *FakeTransport) FailRelay(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relayErr = err
}

// FailDeliver makes subsequent Deliver calls return err. Pass nil to clear.
func (f *FakeTransport) FailDeliver(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliverErr = err
}

// FailSend makes subsequent Send calls return err. Pass nil to clear.
func (f *FakeTransport) FailSend(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

// MarkGone makes a future Retract of id report ErrAlreadyGone.
func (f *FakeTransport) MarkGone(id transport.MessageID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gone[id] = struct{}{}
}

func (f *FakeTransport) Relay(ctx context.Context, origin transport.ChannelID, handles []transport.ItemHandle) ([]transport.ItemRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.relayErr != nil {
		return nil, f.relayErr
	}
	f.relayed = append(f.relayed, append([]transport.ItemHandle{}, handles...))
	refs := make([]transport.ItemRef, len(handles))
	for i := range handles {
		f.nextRef++
		refs[i] = f.nextRef
	}
	return refs, nil
}

func (f *FakeTransport) Deliver(ctx context.Context, dest transport.ChannelID, refs []transport.ItemRef) ([]transport.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deliverErr != nil {
		return nil, f.deliverErr
	}
	ids := make([]transport.MessageID, len(refs))
	for i := range refs {
		f.nextMsg++
		ids[i] = f.nextMsg
	}
	f.deliveries = append(f.deliveries, Delivery{
		Dest: dest,
		Refs: append([]transport.ItemRef{}, refs...),
		IDs:  append([]transport.MessageID{}, ids...),
	})
	return ids, nil
}

func (f *FakeTransport) Send(ctx context.Context, dest transport.ChannelID, text string, panel *transport.Panel) (transport.MessageID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextMsg++
	f.sent = append(f.sent, SentMessage{Dest: dest, ID: f.nextMsg, Text: text, Panel: panel})
	return f.nextMsg, nil
}

func (f *FakeTransport) Edit(ctx context.Context, dest transport.ChannelID, id transport.MessageID, text string, panel *transport.Panel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, SentMessage{Dest: dest, ID: id, Text: text, Panel: panel})
	return nil
}

func (f *FakeTransport) Retract(ctx context.Context, dest transport.ChannelID, ids []transport.MessageID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var gone bool
	for _, id := range ids {
		if _, ok := f.gone[id]; ok {
			gone = true
			continue
		}
		f.retracted = append(f.retracted, id)
	}
	if gone {
		return transport.ErrAlreadyGone
	}
	return nil
}

func (f *FakeTransport) Discard(ctx context.Context, refs []transport.ItemRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, refs...)
	return nil
}

// RelayedBatches returns every handle batch passed to Relay, in call order.
func (f *FakeTransport) RelayedBatches() [][]transport.ItemHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]transport.ItemHandle, len(f.relayed))
	copy(out, f.relayed)
	return out
}

// Deliveries returns every Deliver call, in call order.
func (f *FakeTransport) Deliveries() []Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Delivery{}, f.deliveries...)
}

// SentMessages returns every Send call, in call order.
func (f *FakeTransport) SentMessages() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage{}, f.sent...)
}

// Edits returns every Edit call, in call order.
func (f *FakeTransport) Edits() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentMessage{}, f.edits...)
}

// Retracted returns the ids of messages successfully retracted.
func (f *FakeTransport) Retracted() []transport.MessageID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.MessageID{}, f.retracted...)
}

// Discarded returns every vault ref passed to Discard.
func (f *FakeTransport) Discarded() []transport.ItemRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.ItemRef{}, f.discarded...)
}
