package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"triggertrade/internal/engine"
	"triggertrade/internal/handlers"
	"triggertrade/internal/routes"
	"triggertrade/internal/store"
	"triggertrade/pkg/config"
	"triggertrade/pkg/pricing"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Initialize database
	config.InitDB()

	// Initialize RabbitMQ (optional, trigger/confirm events are skipped if not configured)
	var notifier engine.Notifier
	if os.Getenv("RABBITMQ_HOST") != "" {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()

		publisher, err := config.NewPublisher()
		if err != nil {
			log.Fatal("Failed to create publisher:", err)
		}
		defer publisher.Close()
		notifier = publisher
		log.Println("RabbitMQ initialized successfully")
	} else {
		log.Println("RabbitMQ not configured, skipping initialization")
	}

	handlers.Setup(
		store.New(config.DB),
		pricing.NewClient(os.Getenv("JUPITER_BASE_URL")),
		notifier,
	)

	// Set up router
	r := routes.SetupRouter()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
