package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"verimail/config"
	controller "verimail/controllers"
	"verimail/middleware"
	"verimail/models"
	"verimail/store"
	"verimail/verifier"
	"verimail/worker"
)

// SetupRoutes wires the verification API. The Verifier is constructed once
// per process so its port-25 reachability verdict is shared by every
// request (see verifier.Options).
func SetupRoutes(app *fiber.App, db *gorm.DB) *worker.Runner {
	verifyLogger := log.New(os.Stdout, "VERIFY: ", log.Ldate|log.Ltime|log.Lshortfile)
	suppressLogger := log.New(os.Stdout, "SUPPRESS: ", log.Ldate|log.Ltime|log.Lshortfile)

	coreLog := logrus.New()
	if config.AppConfig.Environment == "production" {
		coreLog.SetFormatter(&logrus.JSONFormatter{})
	}

	v := verifier.New(verifier.Options{
		HelloDomain: config.AppConfig.VerifierHelloDomain,
		FromEmail:   config.AppConfig.VerifierFromEmail,
		EnableWHOIS: config.AppConfig.VerifierWHOIS,
		Logger:      coreLog,
	})

	ledger := store.NewGormLedger(db)
	suppression := store.NewGormSuppression(db)
	leads := store.NewGormLeads(db)
	jobs := store.NewGormJobs(db)

	runner := worker.NewRunner(v.Verify, ledger, suppression, leads, jobs, coreLog)

	verificationController := controller.NewVerificationController(db, verifyLogger, runner, jobs)
	suppressionController := controller.NewSuppressionController(suppressLogger, suppression)

	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	verify := api.Group("/verify", middleware.VerifyRateLimiter())
	verify.Get("/", verificationController.VerifyEmail)
	verify.Post("/bulk", verificationController.BulkVerify)
	verify.Get("/jobs/:id", verificationController.GetVerificationJob)
	verify.Get("/jobs/:id/results", verificationController.GetJobResults)
	verify.Post("/jobs/:id/cancel", verificationController.CancelJob)

	// Websocket upgrade for the live progress stream.
	verify.Use("/jobs/:id/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			workspace := c.Locals("workspace").(*models.Workspace)
			c.Locals("workspace_id", workspace.ID)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	verify.Get("/jobs/:id/progress", websocket.New(controller.JobProgressStream(jobs)))

	suppressionGroup := api.Group("/suppression")
	suppressionGroup.Post("/", suppressionController.Suppress)
	suppressionGroup.Get("/check", suppressionController.CheckSuppression)

	verifyLogger.Println("Verification routes initialized successfully")
	return runner
}
