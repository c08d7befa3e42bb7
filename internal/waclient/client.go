// Package waclient wraps the WhatsApp client library behind a small
// interface so the bot service never touches protocol details and tests can
// inject a fake session.
package waclient

import (
	"context"
	"time"
)

// Client is the consumer-side interface over the wrapped WhatsApp library.
// The concrete implementation is MeowClient.
type Client interface {
	// Connect opens the session. For an unpaired device this starts the QR
	// pairing flow; QR codes arrive as QRCodeEvent.
	Connect(ctx context.Context) error

	// Disconnect tears the session down. Idempotent.
	Disconnect()

	// SendMessage delivers a text message and returns the message ID
	// assigned by the transport.
	SendMessage(ctx context.Context, to, body string) (string, error)

	// SetEventHandler registers the single consumer of session events.
	SetEventHandler(h EventHandler)
}

// EventHandler receives session events. Handlers must not block: they run on
// the client's event goroutine.
type EventHandler func(evt Event)

// Event is a tagged variant of the session events the wrapper reacts to.
type Event interface{ isEvent() }

// QRCodeEvent carries a fresh pairing code while the session is unpaired.
type QRCodeEvent struct {
	Code string
}

// ReadyEvent signals the session is paired and connected.
type ReadyEvent struct {
	PushName string
	Number   string
}

// MessageEvent is an observed inbound (or echoed) message.
type MessageEvent struct {
	ID          string
	Chat        string // address of the remote party
	Sender      string
	Body        string
	Timestamp   time.Time
	IsGroup     bool
	IsBroadcast bool
	IsFromMe    bool
}

// DisconnectedEvent signals the session ended (logout or transport loss).
type DisconnectedEvent struct {
	Reason string
}

// AuthFailureEvent signals pairing or authentication failed.
type AuthFailureEvent struct {
	Reason string
}

func (QRCodeEvent) isEvent()       {}
func (ReadyEvent) isEvent()        {}
func (MessageEvent) isEvent()      {}
func (DisconnectedEvent) isEvent() {}
func (AuthFailureEvent) isEvent()  {}
