package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wadash/wadash-backend/internal/client"
	"github.com/wadash/wadash-backend/internal/models"
	"github.com/wadash/wadash-backend/internal/services"
)

// CommandsHandler proxies command CRUD to the remote store and exposes the
// manual cache sync. CRUD never touches the cache directly: the synchronizer
// picks changes up on its next refresh or via webhook push.
type CommandsHandler struct {
	store       *client.StoreClient
	sync        *services.CommandSync
	bot         *services.BotService
	broadcaster services.Broadcaster
}

// NewCommandsHandler creates a new commands handler
func NewCommandsHandler(store *client.StoreClient, sync *services.CommandSync, bot *services.BotService, broadcaster services.Broadcaster) *CommandsHandler {
	return &CommandsHandler{
		store:       store,
		sync:        sync,
		bot:         bot,
		broadcaster: broadcaster,
	}
}

// List handles GET /api/commands
func (h *CommandsHandler) List(c *fiber.Ctx) error {
	commands, err := h.store.ListCommands(c.Context())
	if err != nil {
		return storeError(c, "Failed to get commands", err)
	}
	return c.JSON(fiber.Map{
		"commands":  commands,
		"timestamp": time.Now(),
	})
}

// Create handles POST /api/commands
func (h *CommandsHandler) Create(c *fiber.Ctx) error {
	var input models.CommandInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if input.Trigger == "" || input.Response == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Trigger and response are required",
		})
	}

	cmd, err := h.store.CreateCommand(c.Context(), &input)
	if err != nil {
		return storeError(c, "Failed to add command", err)
	}

	log.Printf("✅ Command created: %s", cmd.Trigger)
	return c.JSON(fiber.Map{
		"message": "Command added successfully",
		"command": cmd,
		"note":    "Command will be picked up by the next auto-refresh",
	})
}

// Update handles PUT /api/commands/:trigger
func (h *CommandsHandler) Update(c *fiber.Ctx) error {
	trigger := c.Params("trigger")

	var input models.CommandInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	cmd, err := h.store.UpdateCommand(c.Context(), trigger, &input)
	if err != nil {
		return storeError(c, "Failed to update command", err)
	}

	log.Printf("✅ Command updated: %s", cmd.Trigger)
	return c.JSON(fiber.Map{
		"message": "Command updated successfully",
		"command": cmd,
		"note":    "Changes will be picked up by the next auto-refresh",
	})
}

type deleteCommandRequest struct {
	Trigger string `json:"trigger"`
}

// Delete handles DELETE /api/commands
func (h *CommandsHandler) Delete(c *fiber.Ctx) error {
	var req deleteCommandRequest
	if err := c.BodyParser(&req); err != nil || req.Trigger == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Trigger is required",
		})
	}

	if err := h.store.DeleteCommand(c.Context(), req.Trigger); err != nil {
		return storeError(c, "Failed to delete command", err)
	}

	log.Printf("✅ Command deleted: %s", req.Trigger)
	return c.JSON(fiber.Map{
		"message": "Command deleted successfully",
	})
}

// Sync handles POST /api/commands/sync: a manual, always-forced refresh.
func (h *CommandsHandler) Sync(c *fiber.Ctx) error {
	ok := h.sync.Refresh(c.Context(), true)
	status := h.bot.Status()

	if ok {
		commands := h.sync.Commands()
		triggers := make([]string, 0, len(commands))
		for _, cmd := range commands {
			triggers = append(triggers, cmd.Trigger)
		}
		h.broadcaster.Broadcast("commands-reloaded", fiber.Map{
			"count":    len(commands),
			"commands": triggers,
		})
	}

	code := fiber.StatusOK
	message := "Commands synced successfully"
	if !ok {
		code = fiber.StatusInternalServerError
		message = "Failed to sync commands"
	}

	return c.Status(code).JSON(fiber.Map{
		"success":       ok,
		"message":       message,
		"command_count": h.sync.Count(),
		"bot_connected": status.IsConnected,
		"timestamp":     time.Now(),
	})
}

// SyncStatus handles GET /api/commands/sync with a cache overview
func (h *CommandsHandler) SyncStatus(c *fiber.Ctx) error {
	commands := h.sync.Commands()
	overview := make([]fiber.Map, 0, len(commands))
	for _, cmd := range commands {
		overview = append(overview, fiber.Map{
			"trigger":   cmd.Trigger,
			"is_active": cmd.IsActive,
		})
	}

	status := h.bot.Status()
	return c.JSON(fiber.Map{
		"status": "ok",
		"bot_status": fiber.Map{
			"is_connected": status.IsConnected,
			"has_client":   status.ClientInfo != nil,
			"last_seen":    status.LastSeen,
		},
		"command_count":  h.sync.Count(),
		"commands":       overview,
		"auto_refresh":   h.sync.AutoRefreshRunning(),
		"interval_ms":    h.sync.Interval().Milliseconds(),
		"last_sync_time": h.sync.LastSyncTime(),
		"timestamp":      time.Now(),
	})
}

// storeError maps store client failures onto HTTP codes: unreachable → 503,
// everything else → 500.
func storeError(c *fiber.Ctx, message string, err error) error {
	log.Printf("❌ %s: %v", message, err)

	code := fiber.StatusInternalServerError
	if errors.Is(err, client.ErrStoreUnreachable) {
		code = fiber.StatusServiceUnavailable
		message = "Command store not reachable"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":     message,
		"timestamp": time.Now(),
	})
}
