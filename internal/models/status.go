package models

import "time"

// ClientInfo describes the WhatsApp account the session is paired with
type ClientInfo struct {
	PushName string `json:"pushname"`
	Number   string `json:"number"`
}

// SessionStatus is the live state of the bot session. It is never persisted:
// it is rebuilt from scratch on process restart and reset on disconnect.
type SessionStatus struct {
	IsConnected bool        `json:"is_connected"`
	QRCode      string      `json:"qr_code,omitempty"` // PNG data-URL, only while pairing
	ClientInfo  *ClientInfo `json:"client_info,omitempty"`
	LastSeen    *time.Time  `json:"last_seen,omitempty"`
}

// StatusReport is the full status payload served by GET /api/status and
// pushed to websocket subscribers: session status plus cache counters.
type StatusReport struct {
	SessionStatus
	CommandCount       int        `json:"command_count"`
	ActiveCommandCount int        `json:"active_command_count"`
	LastSyncTime       *time.Time `json:"last_sync_time,omitempty"`
	RefreshIntervalMs  int64      `json:"refresh_interval_ms"`
}
