package storage

import "github.com/wadash/wadash-backend/internal/models"

// HistoryStore keeps a bounded window of recently observed messages for the
// dashboard chat view. It is not a system of record: inbound messages are
// forwarded to the remote store for persistence, this window only backs the UI.
type HistoryStore interface {
	// Append records a message, evicting the oldest entry once the window
	// is full.
	Append(msg *models.Message)

	// Recent returns up to limit messages, oldest first. limit <= 0 means
	// the whole window.
	Recent(limit int) []*models.Message

	// RecentByChat returns up to limit messages exchanged with the given
	// address, oldest first.
	RecentByChat(address string, limit int) []*models.Message

	// Len reports how many messages are currently retained.
	Len() int
}
