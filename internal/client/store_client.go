package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/wadash/wadash-backend/internal/models"
)

// ErrStoreUnreachable marks transport-level failures (connection refused,
// timeout) as opposed to an error response from the store itself. Handlers
// map it to 503.
var ErrStoreUnreachable = errors.New("command store unreachable")

// StoreClient talks to the remote command store's REST API. The store is the
// system of record for commands; this client never caches anything.
type StoreClient struct {
	baseURL string
	client  *http.Client
}

// NewStoreClient creates a client for the command store at baseURL,
// e.g. "http://127.0.0.1:8000/api".
func NewStoreClient(baseURL string, timeout time.Duration) *StoreClient {
	return &StoreClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type commandListResponse struct {
	Commands []models.Command `json:"commands"`
}

type commandResponse struct {
	Command models.Command `json:"command"`
}

// ListCommands fetches the full command list. A timestamp query parameter is
// appended so intermediate proxies never serve a cached list.
func (s *StoreClient) ListCommands(ctx context.Context) ([]models.Command, error) {
	u := s.baseURL + "/whatsapp/commands?_t=" + strconv.FormatInt(time.Now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("command store returned status %d body=%q", resp.StatusCode, string(body))
	}

	var lr commandListResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, fmt.Errorf("failed to decode command list: %w body=%q", err, string(body))
	}

	// A store with no commands responds with an empty array; that is a valid
	// result, distinct from any of the error returns above.
	return lr.Commands, nil
}

// CreateCommand adds a new command to the store.
func (s *StoreClient) CreateCommand(ctx context.Context, input *models.CommandInput) (*models.Command, error) {
	return s.writeCommand(ctx, http.MethodPost, s.baseURL+"/whatsapp/commands", input)
}

// UpdateCommand updates the command identified by trigger.
func (s *StoreClient) UpdateCommand(ctx context.Context, trigger string, input *models.CommandInput) (*models.Command, error) {
	payload := struct {
		Trigger string `json:"trigger"`
		*models.CommandInput
	}{Trigger: trigger, CommandInput: input}

	return s.writeCommand(ctx, http.MethodPut, s.baseURL+"/whatsapp/commands", payload)
}

// DeleteCommand removes the command identified by trigger.
func (s *StoreClient) DeleteCommand(ctx context.Context, trigger string) error {
	payload := struct {
		Trigger string `json:"trigger"`
	}{Trigger: trigger}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/whatsapp/commands", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("command store returned status %d body=%q", resp.StatusCode, string(body))
	}
	return nil
}

// SaveMessage forwards an observed message to the store's message endpoint.
// Callers treat failures as best-effort: log and move on.
func (s *StoreClient) SaveMessage(ctx context.Context, msg *models.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("message endpoint returned status %d body=%q", resp.StatusCode, string(body))
	}
	return nil
}

func (s *StoreClient) writeCommand(ctx context.Context, method, u string, payload any) (*models.Command, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("command store returned status %d body=%q", resp.StatusCode, string(body))
	}

	var cr commandResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to decode command: %w body=%q", err, string(body))
	}
	return &cr.Command, nil
}

// BaseURL returns the configured store base URL, useful for diagnostics.
func (s *StoreClient) BaseURL() string {
	return s.baseURL
}
