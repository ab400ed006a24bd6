package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"github.com/sriharsha1892/myra-sales-navigator-sub002/config"
	controller "github.com/sriharsha1892/myra-sales-navigator-sub002/controllers"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/middleware"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/utils"
	"github.com/sriharsha1892/myra-sales-navigator-sub002/worker"
)

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, crmSync *worker.CRMSyncWorker) {
	// Collaborator clients built once from config
	drafts := utils.NewDraftClient(config.AppConfig.DraftService)
	snapshots := utils.NewSnapshotCache(config.AppConfig.Redis, config.AppConfig.SnapshotTTL)

	enrollmentController := controller.NewEnrollmentController(db,
		log.New(os.Stdout, "ENROLLMENT: ", log.LstdFlags), drafts, snapshots, crmSync)
	sequenceController := controller.NewSequenceController(db,
		log.New(os.Stdout, "SEQUENCE: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Sequence library
	sequence := api.Group("/sequences")
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetSequences)
	sequence.Get("/:id", sequenceController.GetSequence)

	// Enrollment engine
	enrollment := api.Group("/enrollments")
	enrollment.Post("/", sequenceController.EnrollContact)
	enrollment.Get("/due", enrollmentController.GetDueSteps)
	enrollment.Get("/:id", enrollmentController.GetEnrollment)
	enrollment.Post("/:id/transition", enrollmentController.TransitionEnrollment)
	enrollment.Post("/:id/execute", enrollmentController.ExecuteStep)

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, crmSync *worker.CRMSyncWorker) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Setup API routes
	SetupAPIRoutes(app, db, crmSync)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
