package domain

import "context"

// ChatType represents the kind of conversation an event came from
type ChatType string

const (
	ChatTypeP2P   ChatType = "p2p"
	ChatTypeGroup ChatType = "group"
)

// Identity is a platform user as supplied by the transport layer.
// The ID is opaque; the core never generates or interprets it.
type Identity struct {
	ID   string
	Name string
}

// EventType classifies inbound events
type EventType string

const (
	// EventText is a plain or slash-prefixed text message
	EventText EventType = "text"
	// EventPress is a button press on an interactive card
	EventPress EventType = "press"
	// EventForward is a forwarded contact (share_user message)
	EventForward EventType = "forward"
)

// Event is one inbound transport event queued for the dispatcher
type Event struct {
	ID      string // correlation id, assigned by the server layer
	Type    EventType
	Text    *TextMessage
	Press   *ButtonPress
	Forward *ForwardedIdentity
}

// TextMessage is a received text message
type TextMessage struct {
	From     Identity
	ChatID   string
	ChatType ChatType
	MsgID    string
	Text     string
	ReplyTo  string // message id this message replies to, empty if none
}

// ButtonPress is a card button callback
type ButtonPress struct {
	From    Identity
	ChatID  string
	MsgID   string // the card message the button lives on
	Payload string
}

// ForwardedIdentity is a forwarded contact; Shared is the person whose
// card was forwarded, not the sender.
type ForwardedIdentity struct {
	From     Identity
	Shared   Identity
	ChatID   string
	ChatType ChatType
}

// Button is one keyboard button on an outbound prompt
type Button struct {
	Label   string
	Payload string
}

type eventIDKey struct{}

// WithEventID tags a context with the correlation id of the inbound
// event being handled.
func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, eventIDKey{}, id)
}

// EventIDFromContext returns the correlation id, or "" if none was set.
func EventIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(eventIDKey{}).(string)
	return id
}
