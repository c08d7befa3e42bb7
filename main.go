package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/wadash/wadash-backend/internal/client"
	"github.com/wadash/wadash-backend/internal/config"
	"github.com/wadash/wadash-backend/internal/realtime"
	"github.com/wadash/wadash-backend/internal/routes"
	"github.com/wadash/wadash-backend/internal/services"
	"github.com/wadash/wadash-backend/internal/storage"
	"github.com/wadash/wadash-backend/internal/waclient"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found - using environment variables")
	}

	cfg := config.Load()

	// Wire up the core: store client, websocket hub, synchronizer, history,
	// bot session. Constructed once here and passed by reference; lifecycle
	// ends on the shutdown signal below.
	storeClient := client.NewStoreClient(cfg.Store.BaseURL, cfg.Store.Timeout)
	hub := realtime.NewHub()
	cmdSync := services.NewCommandSync(storeClient, hub, cfg.Bot.RefreshInterval, cfg.Store.Timeout)
	history := storage.NewMemoryHistory(cfg.History.WindowSize)

	newClient := func(ctx context.Context) (waclient.Client, error) {
		return waclient.NewMeowClient(ctx, cfg.Bot.SessionDir)
	}
	bot := services.NewBotService(cmdSync, storeClient, history, hub, newClient, cfg.Store.Timeout)

	// New websocket subscribers get the current status right away.
	hub.SetSnapshot(func() interface{} {
		return bot.Status()
	})

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "WhatsApp Dashboard Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, storeClient, cmdSync, bot, history, hub)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		bot.Disconnect()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 WhatsApp Dashboard Backend starting on port %s", cfg.Server.Port)
	log.Printf("🗃  Command store: %s", storeClient.BaseURL())
	log.Printf("🔄 Refresh interval: %s", cfg.Bot.RefreshInterval)
	log.Printf("💬 History window: %d messages", cfg.History.WindowSize)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
