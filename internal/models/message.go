package models

import "time"

// Message direction values
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Message represents a single chat message observed by the bot,
// either received from a contact or sent by the dashboard/auto-reply
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"type"` // "incoming" or "outgoing"
}
