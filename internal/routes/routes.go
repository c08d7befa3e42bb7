package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wadash/wadash-backend/internal/client"
	"github.com/wadash/wadash-backend/internal/handlers"
	"github.com/wadash/wadash-backend/internal/realtime"
	"github.com/wadash/wadash-backend/internal/services"
	"github.com/wadash/wadash-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store *client.StoreClient, cmdSync *services.CommandSync, bot *services.BotService, history storage.HistoryStore, hub *realtime.Hub) {
	statusHandler := handlers.NewStatusHandler(bot)
	sessionHandler := handlers.NewSessionHandler(bot)
	commandsHandler := handlers.NewCommandsHandler(store, cmdSync, bot, hub)
	webhookHandler := handlers.NewWebhookHandler(cmdSync, bot, hub)
	messagesHandler := handlers.NewMessagesHandler(bot, history)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "WhatsApp Dashboard Backend",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":    "/health",
				"status":    "/api/status",
				"session":   "/api/session",
				"commands":  "/api/commands",
				"sync":      "/api/commands/sync",
				"webhook":   "/api/webhook",
				"messages":  "/api/messages",
				"websocket": "/ws",
			},
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
			"services": fiber.Map{
				"bot_state":    bot.State().String(),
				"auto_refresh": cmdSync.AutoRefreshRunning(),
				"subscribers":  hub.Count(),
			},
		})
	})

	// API routes
	api := app.Group("/api")

	api.Get("/status", statusHandler.Get)
	api.Post("/session", sessionHandler.Action)

	commands := api.Group("/commands")
	commands.Get("/", commandsHandler.List)
	commands.Post("/", commandsHandler.Create)
	commands.Put("/:trigger", commandsHandler.Update)
	commands.Delete("/", commandsHandler.Delete)
	commands.Post("/sync", commandsHandler.Sync)
	commands.Get("/sync", commandsHandler.SyncStatus)

	api.Post("/webhook", webhookHandler.Handle)
	api.Get("/webhook", webhookHandler.Info)

	api.Post("/messages/send", messagesHandler.Send)
	api.Get("/messages", messagesHandler.List)

	// Realtime channel
	app.Use("/ws", realtime.UpgradeRequired)
	app.Get("/ws", hub.Handler())
}
