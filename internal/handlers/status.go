package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wadash/wadash-backend/internal/services"
)

// StatusHandler serves the combined session + cache status
type StatusHandler struct {
	bot *services.BotService
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(bot *services.BotService) *StatusHandler {
	return &StatusHandler{bot: bot}
}

// Get returns the current session status plus command cache counters
func (h *StatusHandler) Get(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": h.bot.Status(),
		"state":  h.bot.State().String(),
	})
}
