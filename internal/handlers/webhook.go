package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wadash/wadash-backend/internal/services"
)

// WebhookHandler accepts push notifications from the remote command store,
// so command edits land in the cache immediately instead of waiting for the
// next poll.
type WebhookHandler struct {
	sync        *services.CommandSync
	bot         *services.BotService
	broadcaster services.Broadcaster
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(sync *services.CommandSync, bot *services.BotService, broadcaster services.Broadcaster) *WebhookHandler {
	return &WebhookHandler{
		sync:        sync,
		bot:         bot,
		broadcaster: broadcaster,
	}
}

type webhookPayload struct {
	Action    string         `json:"action"`
	Source    string         `json:"source"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// Handle processes POST /api/webhook
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	var payload webhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	log.Printf("📨 [WEBHOOK] action=%q source=%q", payload.Action, payload.Source)

	switch payload.Action {
	case "commands_changed":
		return h.commandsChanged(c, &payload)
	case "sync_commands":
		return h.syncCommands(c, &payload)
	case "test_webhook":
		return h.testWebhook(c, &payload)
	}

	// Unknown actions are acknowledged without side effects.
	log.Printf("⚠️  [WEBHOOK] unknown action: %q", payload.Action)
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Webhook received for action: " + payload.Action,
		"action":    payload.Action,
		"source":    payload.Source,
		"timestamp": time.Now(),
	})
}

// commandsChanged forces a reload and reports before/after counts. The
// webhook-update broadcast happens in the same handling path, never deferred.
func (h *WebhookHandler) commandsChanged(c *fiber.Ctx, payload *webhookPayload) error {
	before := h.sync.Count()
	ok := h.sync.Refresh(c.Context(), true)

	count := h.sync.Count()
	activeCount := h.sync.ActiveCount()
	active := make([]string, 0, count)
	for _, cmd := range h.sync.Commands() {
		if cmd.IsActive {
			active = append(active, cmd.Trigger)
		}
	}

	h.broadcaster.Broadcast("webhook-update", fiber.Map{
		"action":         payload.Action,
		"success":        ok,
		"previous_count": before,
		"command_count":  count,
		"active_count":   activeCount,
		"commands":       active,
	})

	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":   false,
			"error":     "Failed to reload commands",
			"timestamp": time.Now(),
		})
	}

	log.Printf("✅ [WEBHOOK] commands reloaded: %d total, %d active", count, activeCount)
	return c.JSON(fiber.Map{
		"success":       true,
		"message":       "Commands reloaded successfully via webhook",
		"command_count": count,
		"active_count":  activeCount,
		"timestamp":     time.Now(),
	})
}

func (h *WebhookHandler) syncCommands(c *fiber.Ctx, payload *webhookPayload) error {
	ok := h.sync.Refresh(c.Context(), true)
	count := h.sync.Count()

	received := 0
	if n, isNum := payload.Data["count"].(float64); isNum {
		received = int(n)
	}

	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success":   false,
			"error":     "Failed to sync commands",
			"timestamp": time.Now(),
		})
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Sync completed",
		"command_count":  count,
		"received_count": received,
		"timestamp":      time.Now(),
	})
}

func (h *WebhookHandler) testWebhook(c *fiber.Ctx, payload *webhookPayload) error {
	status := h.bot.Status()
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Test webhook received successfully",
		"bot_status": fiber.Map{
			"is_connected":   status.IsConnected,
			"command_count":  status.CommandCount,
			"active_count":   status.ActiveCommandCount,
			"last_sync_time": status.LastSyncTime,
		},
		"received_data": payload.Data,
		"timestamp":     time.Now(),
	})
}

// Info serves GET /api/webhook for manual inspection
func (h *WebhookHandler) Info(c *fiber.Ctx) error {
	status := h.bot.Status()
	return c.JSON(fiber.Map{
		"status": "Webhook endpoint active",
		"bot_status": fiber.Map{
			"is_connected":   status.IsConnected,
			"command_count":  status.CommandCount,
			"active_count":   status.ActiveCommandCount,
			"last_sync_time": status.LastSyncTime,
		},
		"supported_actions": []string{"commands_changed", "sync_commands", "test_webhook"},
		"timestamp":         time.Now(),
	})
}
