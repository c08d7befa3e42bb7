package waclient

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "modernc.org/sqlite" // session store driver
)

// MeowClient implements Client on top of whatsmeow, with session state kept
// in a sqlite database under the configured session directory.
type MeowClient struct {
	cli *whatsmeow.Client

	mu      sync.RWMutex
	handler EventHandler
}

var _ Client = (*MeowClient)(nil)

// NewMeowClient opens (or creates) the session store under sessionDir and
// prepares a client for the first stored device.
func NewMeowClient(ctx context.Context, sessionDir string) (*MeowClient, error) {
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}

	dbPath := filepath.Join(sessionDir, "session.db")
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	container := sqlstore.NewWithDB(db, "sqlite3", waLog.Noop)
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	m := &MeowClient{
		cli: whatsmeow.NewClient(device, waLog.Stdout("whatsmeow", "WARN", false)),
	}
	m.cli.AddEventHandler(m.dispatch)
	return m, nil
}

func (m *MeowClient) SetEventHandler(h EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

func (m *MeowClient) emit(evt Event) {
	m.mu.RLock()
	h := m.handler
	m.mu.RUnlock()

	if h != nil {
		h(evt)
	}
}

// Connect opens the underlying session. An unpaired device gets a QR channel
// drained into QRCodeEvents; a paired one reconnects directly.
func (m *MeowClient) Connect(ctx context.Context) error {
	if m.cli.Store.ID != nil {
		return m.cli.Connect()
	}

	qrChan, err := m.cli.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to open QR channel: %w", err)
	}
	if err := m.cli.Connect(); err != nil {
		return err
	}

	go func() {
		for item := range qrChan {
			switch item.Event {
			case whatsmeow.QRChannelEventCode:
				m.emit(QRCodeEvent{Code: item.Code})
			case whatsmeow.QRChannelEventError:
				m.emit(AuthFailureEvent{Reason: fmt.Sprintf("pairing error: %v", item.Error)})
			default:
				// "timeout" and "success" terminate the channel; success is
				// followed by events.Connected from the main handler.
				if item.Event == "timeout" {
					m.emit(AuthFailureEvent{Reason: "pairing timed out"})
				}
			}
		}
	}()

	return nil
}

func (m *MeowClient) Disconnect() {
	m.cli.Disconnect()
}

// SendMessage sends a plain text message to the given number or JID.
func (m *MeowClient) SendMessage(ctx context.Context, to, body string) (string, error) {
	jid, err := parseJID(to)
	if err != nil {
		return "", err
	}

	resp, err := m.cli.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(body),
	})
	if err != nil {
		return "", err
	}
	return string(resp.ID), nil
}

func (m *MeowClient) dispatch(raw interface{}) {
	switch evt := raw.(type) {
	case *events.Connected:
		var number string
		if id := m.cli.Store.ID; id != nil {
			number = id.User
		}
		m.emit(ReadyEvent{
			PushName: m.cli.Store.PushName,
			Number:   number,
		})

	case *events.Message:
		info := evt.Info
		m.emit(MessageEvent{
			ID:          string(info.ID),
			Chat:        info.Chat.String(),
			Sender:      info.Sender.ToNonAD().String(),
			Body:        extractText(evt.Message),
			Timestamp:   info.Timestamp,
			IsGroup:     info.IsGroup,
			IsBroadcast: info.Chat.Server == types.BroadcastServer,
			IsFromMe:    info.IsFromMe,
		})

	case *events.LoggedOut:
		m.emit(DisconnectedEvent{Reason: "logged out"})

	case *events.Disconnected:
		m.emit(DisconnectedEvent{Reason: "transport closed"})

	case *events.StreamError:
		m.emit(DisconnectedEvent{Reason: fmt.Sprintf("stream error: %s", evt.Code)})
	}
}

// parseJID accepts either a full JID ("491700000000@s.whatsapp.net") or a
// bare phone number and returns the user JID to send to.
func parseJID(to string) (types.JID, error) {
	if strings.ContainsRune(to, '@') {
		jid, err := types.ParseJID(to)
		if err != nil {
			return types.EmptyJID, fmt.Errorf("invalid address %q: %w", to, err)
		}
		return jid, nil
	}

	number := strings.TrimLeft(strings.TrimSpace(to), "+")
	if number == "" {
		return types.EmptyJID, fmt.Errorf("empty recipient address")
	}
	return types.NewJID(number, types.DefaultUserServer), nil
}

// extractText pulls the text body out of the message variants the bot
// replies to. Media and other payloads come back empty.
func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	return msg.GetExtendedTextMessage().GetText()
}
