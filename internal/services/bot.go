package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wadash/wadash-backend/internal/models"
	"github.com/wadash/wadash-backend/internal/storage"
	"github.com/wadash/wadash-backend/internal/waclient"
)

// Session errors surfaced to API callers.
var (
	ErrNotInitialized = errors.New("whatsapp client not initialized")
	ErrNotConnected   = errors.New("whatsapp client not connected")
)

// MessageSaver is the slice of the store client used to persist inbound
// messages. Failures are best-effort: logged, never blocking the reply path.
type MessageSaver interface {
	SaveMessage(ctx context.Context, msg *models.Message) error
}

// ClientFactory opens a fresh wrapped client session. Injected so tests can
// supply a fake session.
type ClientFactory func(ctx context.Context) (waclient.Client, error)

// BotService owns the single WhatsApp session: pairing, connection lifecycle,
// inbound message handling, and outbound sends. Session status lives only
// here and is rebuilt from scratch after restart or disconnect.
type BotService struct {
	sync        *CommandSync
	saver       MessageSaver
	history     storage.HistoryStore
	broadcaster Broadcaster
	newClient   ClientFactory
	timeout     time.Duration

	mu           sync.Mutex
	state        SessionState
	status       models.SessionStatus
	client       waclient.Client
	initializing bool
}

// NewBotService wires the bot against its collaborators. timeout bounds all
// outbound calls made from the event path (message forward, reply send).
func NewBotService(cmdSync *CommandSync, saver MessageSaver, history storage.HistoryStore, broadcaster Broadcaster, newClient ClientFactory, timeout time.Duration) *BotService {
	return &BotService{
		sync:        cmdSync,
		saver:       saver,
		history:     history,
		broadcaster: broadcaster,
		newClient:   newClient,
		timeout:     timeout,
	}
}

// Initialize opens the session. A no-op while pairing or connected, so a
// duplicate call can never produce a second session. Auto-refresh starts
// before the session opens so commands are ready for the first message; if
// the open fails, the auto-refresh just started is stopped again and the
// state stays Uninitialized.
func (b *BotService) Initialize(ctx context.Context) error {
	// The initializing flag stays set across the whole open sequence so a
	// concurrent Initialize can never open a second session.
	b.mu.Lock()
	if b.initializing || b.state == StateConnected || b.state == StatePairing {
		b.mu.Unlock()
		log.Println("ℹ️  [BOT] already initialized")
		return nil
	}
	b.initializing = true
	b.mu.Unlock()

	log.Println("🚀 [BOT] initializing WhatsApp session...")
	b.sync.StartAutoRefresh()

	cli, err := b.newClient(ctx)
	if err != nil {
		b.sync.StopAutoRefresh()
		b.setInitializing(false)
		return err
	}
	cli.SetEventHandler(b.HandleEvent)

	if err := cli.Connect(ctx); err != nil {
		b.sync.StopAutoRefresh()
		b.setInitializing(false)
		return err
	}

	b.mu.Lock()
	b.client = cli
	b.state = StatePairing
	b.initializing = false
	b.mu.Unlock()

	return nil
}

func (b *BotService) setInitializing(v bool) {
	b.mu.Lock()
	b.initializing = v
	b.mu.Unlock()
}

// HandleEvent consumes one session event: transition first (pure), side
// effects after. Exported so the client adapter can be wired to it directly.
func (b *BotService) HandleEvent(evt waclient.Event) {
	// Inbound messages are filtered before they can touch status.
	if msg, ok := evt.(waclient.MessageEvent); ok {
		if msg.IsGroup || msg.IsBroadcast || msg.IsFromMe {
			return
		}
	}

	qrDataURL := ""
	if qr, ok := evt.(waclient.QRCodeEvent); ok {
		rendered, err := waclient.QRDataURL(qr.Code)
		if err != nil {
			log.Printf("❌ [BOT] failed to render QR code: %v", err)
			return
		}
		qrDataURL = rendered
	}

	b.mu.Lock()
	prev := b.state
	b.state, b.status = nextSession(b.state, b.status, evt, qrDataURL, time.Now())
	b.mu.Unlock()

	switch e := evt.(type) {
	case waclient.QRCodeEvent:
		log.Println("📷 [BOT] QR code received, waiting for pairing")
		b.broadcaster.Broadcast("qr", qrDataURL)
		b.broadcastStatus()

	case waclient.ReadyEvent:
		log.Printf("🎉 [BOT] session ready: %s (%s)", e.PushName, e.Number)
		b.broadcaster.Broadcast("ready", models.ClientInfo{PushName: e.PushName, Number: e.Number})
		b.broadcastStatus()

		// A fresh session may have missed pushes while disconnected;
		// always resync on (re)connect.
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		b.sync.Refresh(ctx, true)
		cancel()

	case waclient.MessageEvent:
		b.handleInbound(e)

	case waclient.DisconnectedEvent:
		log.Printf("🔌 [BOT] session ended: %s (was %s)", e.Reason, prev)
		b.teardown(e.Reason)

	case waclient.AuthFailureEvent:
		log.Printf("❌ [BOT] authentication failed: %s", e.Reason)
		b.teardown(e.Reason)
	}
}

func (b *BotService) handleInbound(evt waclient.MessageEvent) {
	b.mu.Lock()
	ownNumber := ""
	if b.status.ClientInfo != nil {
		ownNumber = b.status.ClientInfo.Number
	}
	b.mu.Unlock()

	record := &models.Message{
		ID:        evt.ID,
		From:      evt.Chat,
		To:        ownNumber,
		Body:      evt.Body,
		Timestamp: evt.Timestamp,
		Direction: models.DirectionIncoming,
	}
	b.history.Append(record)
	b.broadcaster.Broadcast("message", record)

	log.Printf("📨 [BOT] message from %s: %q", evt.Chat, evt.Body)

	// Best-effort persistence; a failing store must never block the reply.
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	if err := b.saver.SaveMessage(ctx, record); err != nil {
		log.Printf("⚠️  [BOT] failed to forward message to store: %v", err)
	}
	cancel()

	cmd, ok := b.sync.Lookup(evt.Body)
	if !ok {
		return
	}

	log.Printf("⚡ [BOT] executing command %q", cmd.Trigger)

	sendCtx, cancelSend := context.WithTimeout(context.Background(), b.timeout)
	defer cancelSend()

	b.mu.Lock()
	cli := b.client
	b.mu.Unlock()
	if cli == nil {
		return
	}

	msgID, err := cli.SendMessage(sendCtx, evt.Chat, cmd.Response)
	if err != nil {
		log.Printf("❌ [BOT] failed to send reply for %q: %v", cmd.Trigger, err)
		return
	}
	if msgID == "" {
		msgID = uuid.NewString()
	}

	reply := &models.Message{
		ID:        msgID,
		From:      ownNumber,
		To:        evt.Chat,
		Body:      cmd.Response,
		Timestamp: time.Now(),
		Direction: models.DirectionOutgoing,
	}
	b.history.Append(reply)
	b.broadcaster.Broadcast("message", reply)
	b.broadcaster.Broadcast("command-executed", map[string]interface{}{
		"trigger":  cmd.Trigger,
		"response": cmd.Response,
		"from":     evt.Chat,
	})
}

// SendMessage sends a text message from the dashboard. Fails when no session
// handle exists or the session is not connected.
func (b *BotService) SendMessage(ctx context.Context, to, body string) (*models.Message, error) {
	b.mu.Lock()
	cli := b.client
	connected := b.status.IsConnected
	ownNumber := ""
	if b.status.ClientInfo != nil {
		ownNumber = b.status.ClientInfo.Number
	}
	b.mu.Unlock()

	if cli == nil {
		return nil, ErrNotInitialized
	}
	if !connected {
		return nil, ErrNotConnected
	}

	sendCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	msgID, err := cli.SendMessage(sendCtx, to, body)
	if err != nil {
		return nil, err
	}
	if msgID == "" {
		msgID = uuid.NewString()
	}

	record := &models.Message{
		ID:        msgID,
		From:      ownNumber,
		To:        to,
		Body:      body,
		Timestamp: time.Now(),
		Direction: models.DirectionOutgoing,
	}
	b.history.Append(record)
	b.broadcaster.Broadcast("message", record)

	log.Printf("📤 [BOT] message sent to %s", to)
	return record, nil
}

// Disconnect tears the session down. Idempotent.
func (b *BotService) Disconnect() {
	log.Println("🛑 [BOT] disconnecting...")
	b.teardown("disconnect requested")
}

func (b *BotService) teardown(reason string) {
	b.sync.StopAutoRefresh()

	b.mu.Lock()
	cli := b.client
	b.client = nil
	b.state = StateDisconnected
	b.status = models.SessionStatus{}
	b.mu.Unlock()

	if cli != nil {
		cli.Disconnect()
	}

	b.broadcaster.Broadcast("disconnected", reason)
	b.broadcastStatus()
}

// State returns the current lifecycle state.
func (b *BotService) State() SessionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Status assembles the full report served by GET /api/status and pushed on
// every status broadcast: session status plus cache counters.
func (b *BotService) Status() models.StatusReport {
	b.mu.Lock()
	status := b.status
	b.mu.Unlock()

	return models.StatusReport{
		SessionStatus:      status,
		CommandCount:       b.sync.Count(),
		ActiveCommandCount: b.sync.ActiveCount(),
		LastSyncTime:       b.sync.LastSyncTime(),
		RefreshIntervalMs:  b.sync.Interval().Milliseconds(),
	}
}

func (b *BotService) broadcastStatus() {
	b.broadcaster.Broadcast("status", b.Status())
}
