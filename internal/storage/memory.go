package storage

import (
	"sync"

	"github.com/wadash/wadash-backend/internal/models"
)

// MemoryHistory holds the recent-message window in memory
type MemoryHistory struct {
	mu       sync.RWMutex
	messages []*models.Message
	capacity int
}

// NewMemoryHistory creates a history window retaining at most capacity
// messages. capacity <= 0 falls back to 200.
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = 200
	}
	return &MemoryHistory{
		messages: make([]*models.Message, 0, capacity),
		capacity: capacity,
	}
}

func (m *MemoryHistory) Append(msg *models.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	if len(m.messages) > m.capacity {
		// Drop the oldest entries; copy so the backing array doesn't pin them.
		overflow := len(m.messages) - m.capacity
		m.messages = append(m.messages[:0:0], m.messages[overflow:]...)
	}
}

func (m *MemoryHistory) Recent(limit int) []*models.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return copyTail(m.messages, limit)
}

func (m *MemoryHistory) RecentByChat(address string, limit int) []*models.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	filtered := make([]*models.Message, 0, len(m.messages))
	for _, msg := range m.messages {
		if msg.From == address || msg.To == address {
			filtered = append(filtered, msg)
		}
	}
	return copyTail(filtered, limit)
}

func (m *MemoryHistory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.messages)
}

func copyTail(msgs []*models.Message, limit int) []*models.Message {
	if limit <= 0 || limit > len(msgs) {
		limit = len(msgs)
	}
	out := make([]*models.Message, limit)
	copy(out, msgs[len(msgs)-limit:])
	return out
}
