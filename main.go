package main

import (
	"context"
	"log"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/config"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/middleware"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/routes"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/worker"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "NAVIGATOR: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Sentry when a DSN is configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Initialize and start the CRM sync sidecar. It runs on its own
	// context so request completion never cancels an enqueued sync.
	crmClient := utils.NewCRMClient(config.AppConfig.CRM.BaseURL, config.AppConfig.CRM.APIKey)
	crmSync := worker.NewCRMSyncWorker(crmClient, log.New(os.Stdout, "CRMSYNC: ", log.LstdFlags))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go crmSync.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, crmSync)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
