package controller

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"verimail/models"
	"verimail/store"
	"verimail/worker"
)

type VerificationController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Runner   *worker.Runner
	Jobs     store.JobStore
	Validate *validator.Validate
}

func NewVerificationController(db *gorm.DB, logger *log.Logger, runner *worker.Runner, jobs store.JobStore) *VerificationController {
	return &VerificationController{
		DB:       db,
		Logger:   logger,
		Runner:   runner,
		Jobs:     jobs,
		Validate: validator.New(),
	}
}

// VerifyEmail handles single email verification.
func (vc *VerificationController) VerifyEmail(c *fiber.Ctx) error {
	workspace := c.Locals("workspace").(*models.Workspace)
	email := c.Query("email")

	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email address is required",
		})
	}

	var leadID *uint
	if raw := c.Query("lead_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid lead_id",
			})
		}
		leadID = uintPtr(uint(id))
	}

	result, _, err := vc.Runner.VerifyOne(c.Context(), workspace.ID, email, leadID, nil)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		vc.Logger.Printf("Verification failed for %s: %v", email, err)
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Verification failed",
		})
	}

	return c.JSON(result)
}

// BulkVerifyRequest is the batch submission payload. Individual addresses
// are not validated here: a malformed address is still a billable attempt
// that terminates as invalid/syntax_invalid.
type BulkVerifyRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,max=50000"`
}

// BulkVerify creates a verification job and starts processing it in the
// background. Insufficient credits reject the job outright; there are no
// partial jobs.
func (vc *VerificationController) BulkVerify(c *fiber.Ctx) error {
	workspace := c.Locals("workspace").(*models.Workspace)

	var request BulkVerifyRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request format",
		})
	}
	if err := vc.Validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "emails must contain between 1 and 50000 entries",
		})
	}

	job, err := vc.Runner.CreateJob(c.Context(), workspace.ID, request.Emails)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCredits) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		vc.Logger.Printf("Failed to create verification job: %v", err)
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create verification job",
		})
	}

	go func(jobID, workspaceID uint, emails []string) {
		if err := vc.Runner.ProcessJob(context.Background(), jobID, workspaceID, emails, nil); err != nil {
			vc.Logger.Printf("Failed to complete verification job %d: %v", jobID, err)
			sentry.CaptureException(err)
		}
	}(job.ID, workspace.ID, request.Emails)

	return c.JSON(fiber.Map{
		"message":      "Verification started",
		"job_id":       job.ID,
		"reference":    job.Reference,
		"total_count":  job.TotalCount,
		"submitted":    len(request.Emails),
		"deduplicated": len(request.Emails) - job.TotalCount,
	})
}

// GetVerificationJob returns a job with its current tallies.
func (vc *VerificationController) GetVerificationJob(c *fiber.Ctx) error {
	workspace := c.Locals("workspace").(*models.Workspace)

	jobID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job id",
		})
	}

	job, err := vc.Jobs.GetJob(c.Context(), workspace.ID, jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Verification job not found",
		})
	}

	return c.JSON(job)
}

// GetJobResults pages through the stored per-address results of a job.
func (vc *VerificationController) GetJobResults(c *fiber.Ctx) error {
	workspace := c.Locals("workspace").(*models.Workspace)

	jobID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job id",
		})
	}

	if _, err := vc.Jobs.GetJob(c.Context(), workspace.ID, jobID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Verification job not found",
		})
	}

	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	results, err := vc.Jobs.ListResults(c.Context(), workspace.ID, jobID, limit, offset)
	if err != nil {
		vc.Logger.Printf("Failed to list results for job %d: %v", jobID, err)
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load results",
		})
	}

	return c.JSON(fiber.Map{
		"job_id":  jobID,
		"limit":   limit,
		"offset":  offset,
		"results": results,
	})
}

// CancelJob requests cancellation of an in-flight job. The runner finishes
// the current address, flushes tallies and closes the job.
func (vc *VerificationController) CancelJob(c *fiber.Ctx) error {
	workspace := c.Locals("workspace").(*models.Workspace)

	jobID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job id",
		})
	}

	job, err := vc.Jobs.GetJob(c.Context(), workspace.ID, jobID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Verification job not found",
		})
	}
	if job.Status == models.JobStatusCompleted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Job already completed",
		})
	}

	if !vc.Runner.Cancel(jobID) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Job is not running",
		})
	}

	return c.JSON(fiber.Map{"message": "Cancellation requested"})
}

func parseIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	return uint(id), err
}

func uintPtr(v uint) *uint { return &v }
