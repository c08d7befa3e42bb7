package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/wadash/wadash-backend/internal/services"
	"github.com/wadash/wadash-backend/internal/storage"
)

// MessagesHandler sends messages on behalf of the dashboard and serves the
// recent chat history window
type MessagesHandler struct {
	bot     *services.BotService
	history storage.HistoryStore
}

// NewMessagesHandler creates a new messages handler
func NewMessagesHandler(bot *services.BotService, history storage.HistoryStore) *MessagesHandler {
	return &MessagesHandler{bot: bot, history: history}
}

type sendMessageRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// Send handles POST /api/messages/send
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Number == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Number and message are required",
		})
	}

	record, err := h.bot.SendMessage(c.Context(), req.Number, req.Message)
	if err != nil {
		log.Printf("❌ Failed to send message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Message sent successfully",
		"sent_to": req.Number,
		"record":  record,
	})
}

// List handles GET /api/messages with optional ?chat= and ?limit= filters
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	var messages interface{}
	if chat := c.Query("chat"); chat != "" {
		messages = h.history.RecentByChat(chat, limit)
	} else {
		messages = h.history.Recent(limit)
	}

	return c.JSON(fiber.Map{
		"messages": messages,
		"count":    h.history.Len(),
	})
}
