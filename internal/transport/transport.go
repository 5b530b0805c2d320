package transport

import (
	"context"
	"errors"
)

// PrincipalID identifies the authenticated actor behind an update.
type PrincipalID int64

// ChannelID identifies a conversation or channel on the transport.
type ChannelID int64

// ItemHandle references an item in its originating channel. Handles are only
// valid for relay while the origin conversation still holds the item.
type ItemHandle int64

// ItemRef is the durable reference assigned once an item has been relayed
// into the vault channel. Refs stay valid independent of the origin.
type ItemRef int64

// MessageID references a rendered message the relay itself produced.
type MessageID int64

// ErrAlreadyGone reports that a retraction target no longer exists. Callers
// treat it as success.
var ErrAlreadyGone = errors.New("message already gone")

// InboundItem is one file submitted for relay.
type InboundItem struct {
	Principal PrincipalID
	Origin    ChannelID
	Handle    ItemHandle
	// GroupID correlates items submitted together as one logical batch.
	// Empty for singleton items.
	GroupID string
	Kind    string
	Caption string
}

// Control is a single navigation or management action on a rendered panel.
type Control struct {
	Label string
	// Action is the callback payload delivered back when the control is
	// pressed, e.g. "spage:2:abc123". URL is set instead for link-out
	// controls.
	Action   string
	URL      string
	Disabled bool
}

// ControlRow is one horizontal row of controls.
type ControlRow []Control

// Panel is a grid of controls attached to a rendered message.
type Panel struct {
	Rows []ControlRow
}

// UpdateKind discriminates inbound update payloads.
type UpdateKind int

const (
	UpdateCommand UpdateKind = iota
	UpdateItem
	UpdateText
	UpdateCallback
)

// Update is one inbound event from the transport.
type Update struct {
	Kind      UpdateKind
	Principal PrincipalID
	Origin    ChannelID
	// Command carries the command name (without slash) and optional argument.
	Command    string
	CommandArg string
	// Text carries free-form message text.
	Text string
	// Item carries a submitted file.
	Item *InboundItem
	// Callback carries a pressed control's action payload and the message
	// that hosted the panel.
	Callback        string
	CallbackMessage MessageID
}

// Transport is the messaging collaborator contract. Every call is a fallible
// remote call; implementations live outside this repository.
type Transport interface {
	// Relay copies items from their origin into the vault channel and
	// returns durable refs in input order.
	Relay(ctx context.Context, origin ChannelID, handles []ItemHandle) ([]ItemRef, error)
	// Deliver copies vault items into the destination channel and returns
	// the rendered message ids in input order.
	Deliver(ctx context.Context, dest ChannelID, refs []ItemRef) ([]MessageID, error)
	// Send renders a text message with an optional control panel.
	Send(ctx context.Context, dest ChannelID, text string, panel *Panel) (MessageID, error)
	// Edit replaces a rendered message's text and panel in place.
	Edit(ctx context.Context, dest ChannelID, id MessageID, text string, panel *Panel) error
	// Retract deletes rendered messages. Missing messages yield ErrAlreadyGone.
	Retract(ctx context.Context, dest ChannelID, ids []MessageID) error
	// Discard deletes relayed items from the vault. Missing items yield
	// ErrAlreadyGone.
	Discard(ctx context.Context, refs []ItemRef) error
}

// UpdateSource yields inbound updates until its context is canceled.
type UpdateSource interface {
	Updates(ctx context.Context) <-chan Update
}
