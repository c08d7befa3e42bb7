package services

import (
	"time"

	"github.com/wadash/wadash-backend/internal/models"
	"github.com/wadash/wadash-backend/internal/waclient"
)

// SessionState is the bot session lifecycle state.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StatePairing
	StateConnected
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePairing:
		return "pairing"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// nextSession computes the state and status after a session event. It is
// pure: no network calls, no broadcasts — BotService issues those after the
// transition. The QR data-URL arrives pre-rendered so rendering failures are
// handled before the transition, not inside it.
func nextSession(state SessionState, status models.SessionStatus, evt waclient.Event, qrDataURL string, now time.Time) (SessionState, models.SessionStatus) {
	switch e := evt.(type) {
	case waclient.QRCodeEvent:
		status.IsConnected = false
		status.QRCode = qrDataURL
		status.ClientInfo = nil
		return StatePairing, status

	case waclient.ReadyEvent:
		return StateConnected, models.SessionStatus{
			IsConnected: true,
			ClientInfo: &models.ClientInfo{
				PushName: e.PushName,
				Number:   e.Number,
			},
			LastSeen: &now,
		}

	case waclient.MessageEvent:
		status.LastSeen = &now
		return state, status

	case waclient.DisconnectedEvent, waclient.AuthFailureEvent:
		// Back to the initial shape: no pairing artifact, no account.
		return StateDisconnected, models.SessionStatus{}
	}

	return state, status
}
