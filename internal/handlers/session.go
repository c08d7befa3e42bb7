package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/wadash/wadash-backend/internal/services"
)

// SessionHandler controls the bot session lifecycle
type SessionHandler struct {
	bot *services.BotService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(bot *services.BotService) *SessionHandler {
	return &SessionHandler{bot: bot}
}

type sessionActionRequest struct {
	Action string `json:"action"`
}

// Action handles POST /api/session with {action: initialize|disconnect}
func (h *SessionHandler) Action(c *fiber.Ctx) error {
	var req sessionActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	switch req.Action {
	case "initialize":
		if err := h.bot.Initialize(c.Context()); err != nil {
			log.Printf("❌ Failed to initialize bot: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "WhatsApp bot initialized"})

	case "disconnect":
		h.bot.Disconnect()
		return c.JSON(fiber.Map{"message": "WhatsApp bot disconnected"})

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid action",
		})
	}
}
