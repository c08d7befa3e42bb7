package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wadash/wadash-backend/internal/client"
	"github.com/wadash/wadash-backend/internal/models"
	"github.com/wadash/wadash-backend/internal/realtime"
	"github.com/wadash/wadash-backend/internal/routes"
	"github.com/wadash/wadash-backend/internal/services"
	"github.com/wadash/wadash-backend/internal/storage"
	"github.com/wadash/wadash-backend/internal/waclient"
)

// fakeStore is a stand-in for the remote command store.
type fakeStore struct {
	mu       sync.Mutex
	commands []models.Command
	saved    int
	down     bool
}

func (f *fakeStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.URL.Path == "/whatsapp/commands" && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{"commands": f.commands})
		case r.URL.Path == "/whatsapp/commands" && r.Method == http.MethodPost:
			var input models.CommandInput
			_ = json.NewDecoder(r.Body).Decode(&input)
			cmd := models.Command{ID: int64(len(f.commands) + 1), Trigger: input.Trigger, Response: input.Response, IsActive: input.IsActive}
			f.commands = append(f.commands, cmd)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"command": cmd})
		case r.URL.Path == "/messages" && r.Method == http.MethodPost:
			f.saved++
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeStore) setCommands(commands []models.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = commands
}

type stubClient struct{}

func (stubClient) Connect(ctx context.Context) error { return nil }
func (stubClient) Disconnect()                       {}
func (stubClient) SendMessage(ctx context.Context, to, body string) (string, error) {
	return "WAMSG-1", nil
}
func (stubClient) SetEventHandler(h waclient.EventHandler) {}

type harness struct {
	app   *fiber.App
	store *fakeStore
	sync  *services.CommandSync
	bot   *services.BotService
}

func newHarness(t *testing.T, commands []models.Command) *harness {
	t.Helper()

	fs := &fakeStore{commands: commands}
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)

	storeClient := client.NewStoreClient(srv.URL, 5*time.Second)
	hub := realtime.NewHub()
	cmdSync := services.NewCommandSync(storeClient, hub, time.Hour, 5*time.Second)
	history := storage.NewMemoryHistory(50)

	factory := func(ctx context.Context) (waclient.Client, error) {
		return stubClient{}, nil
	}
	bot := services.NewBotService(cmdSync, storeClient, history, hub, factory, 5*time.Second)
	hub.SetSnapshot(func() interface{} { return bot.Status() })

	app := fiber.New()
	routes.SetupRoutes(app, storeClient, cmdSync, bot, history, hub)

	t.Cleanup(cmdSync.StopAutoRefresh)
	return &harness{app: app, store: fs, sync: cmdSync, bot: bot}
}

func (h *harness) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.app.Test(req, 10000)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestGetStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	resp := h.request(t, http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["state"] != "uninitialized" {
		t.Fatalf("expected uninitialized state, got %v", body["state"])
	}
}

func TestSessionAction_Invalid(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	resp := h.request(t, http.MethodPost, "/api/session", map[string]string{"action": "reboot"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", resp.StatusCode)
	}
}

func TestListCommands_PassThrough(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []models.Command{
		{ID: 1, Trigger: "!ping", Response: "pong", IsActive: true},
	})

	resp := h.request(t, http.MethodGet, "/api/commands/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	commands, ok := body["commands"].([]any)
	if !ok || len(commands) != 1 {
		t.Fatalf("expected 1 command passed through, got %v", body["commands"])
	}
}

func TestCreateCommand_Validation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	resp := h.request(t, http.MethodPost, "/api/commands/", map[string]string{"trigger": "!x"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing response field, got %d", resp.StatusCode)
	}
}

func TestCommandStoreDown_Returns503(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	srv := httptest.NewServer(fs.handler())
	srv.Close() // connection refused from here on

	storeClient := client.NewStoreClient(srv.URL, time.Second)
	hub := realtime.NewHub()
	cmdSync := services.NewCommandSync(storeClient, hub, time.Hour, time.Second)
	history := storage.NewMemoryHistory(10)
	bot := services.NewBotService(cmdSync, storeClient, history, hub,
		func(ctx context.Context) (waclient.Client, error) { return stubClient{}, nil }, time.Second)

	app := fiber.New()
	routes.SetupRoutes(app, storeClient, cmdSync, bot, history, hub)

	req := httptest.NewRequest(http.MethodGet, "/api/commands/", nil)
	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when store unreachable, got %d", resp.StatusCode)
	}
}

func TestManualSync(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []models.Command{
		{ID: 1, Trigger: "!ping", Response: "pong", IsActive: true},
	})

	resp := h.request(t, http.MethodPost, "/api/commands/sync", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success=true, got %v", body["success"])
	}
	if body["command_count"].(float64) != 1 {
		t.Fatalf("expected command_count 1, got %v", body["command_count"])
	}
	if body["bot_connected"] != false {
		t.Fatalf("expected bot_connected=false, got %v", body["bot_connected"])
	}
}

func TestWebhook_CommandsChangedForcesRefresh(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []models.Command{
		{ID: 1, Trigger: "!ping", Response: "pong", IsActive: true},
	})

	// Warm the cache, then change the store behind the synchronizer's back.
	h.sync.Refresh(context.Background(), true)
	h.store.setCommands([]models.Command{
		{ID: 1, Trigger: "!ping", Response: "pong", IsActive: true},
		{ID: 2, Trigger: "!help", Response: "try !ping", IsActive: true},
	})

	resp := h.request(t, http.MethodPost, "/api/webhook", map[string]any{
		"action": "commands_changed",
		"source": "store",
		"data":   map[string]any{"trigger": "!help", "action_type": "created"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["command_count"].(float64) != 2 {
		t.Fatalf("expected webhook to force refresh to 2 commands, got %v", body["command_count"])
	}
	if got := h.sync.Count(); got != 2 {
		t.Fatalf("expected cache updated in the same handling path, got %d", got)
	}
}

func TestWebhook_UnknownActionIsAcknowledged(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []models.Command{
		{ID: 1, Trigger: "!ping", Response: "pong", IsActive: true},
	})
	h.sync.Refresh(context.Background(), true)
	before := h.sync.Count()

	resp := h.request(t, http.MethodPost, "/api/webhook", map[string]any{
		"action": "mystery_action",
		"source": "store",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for unknown action, got %d", resp.StatusCode)
	}
	if h.sync.Count() != before {
		t.Fatalf("unknown action must not touch the cache")
	}
}

func TestWebhook_TestAction(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	resp := h.request(t, http.MethodPost, "/api/webhook", map[string]any{
		"action": "test_webhook",
		"data":   map[string]any{"hello": "world"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success=true, got %v", body["success"])
	}
	if _, ok := body["bot_status"]; !ok {
		t.Fatalf("expected bot_status echo in test webhook response")
	}
}

func TestSendMessage_Validation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	resp := h.request(t, http.MethodPost, "/api/messages/send", map[string]string{"number": "123"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing message, got %d", resp.StatusCode)
	}

	resp = h.request(t, http.MethodPost, "/api/messages/send", map[string]string{"message": "hi"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing number, got %d", resp.StatusCode)
	}
}

func TestSendMessage_NotInitialized(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	resp := h.request(t, http.MethodPost, "/api/messages/send", map[string]string{
		"number": "4917612345678", "message": "hi",
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 when session not initialized, got %d", resp.StatusCode)
	}
}

func TestSendMessage_Connected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	if err := h.bot.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	h.bot.HandleEvent(waclient.ReadyEvent{PushName: "Bot", Number: "4915112345678"})

	resp := h.request(t, http.MethodPost, "/api/messages/send", map[string]string{
		"number": "4917612345678", "message": "hi",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// The outbound record lands in the history window.
	listResp := h.request(t, http.MethodGet, "/api/messages", nil)
	listBody := decodeBody(t, listResp)
	messages, ok := listBody["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("expected 1 history record, got %v", listBody["messages"])
	}
}
