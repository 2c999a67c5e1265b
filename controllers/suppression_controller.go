package controller

import (
	"log"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"verimail/models"
	"verimail/store"
)

type SuppressionController struct {
	Logger      *log.Logger
	Suppression store.SuppressionStore
	Validate    *validator.Validate
}

func NewSuppressionController(logger *log.Logger, suppression store.SuppressionStore) *SuppressionController {
	return &SuppressionController{
		Logger:      logger,
		Suppression: suppression,
		Validate:    validator.New(),
	}
}

type suppressRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"required,oneof=BOUNCED COMPLAINED UNSUBSCRIBED INVALID MANUAL"`
}

// Suppress adds or updates a deny-list entry. Upserts are idempotent, so
// re-suppressing an address is not an error.
func (sc *SuppressionController) Suppress(c *fiber.Ctx) error {
	workspace := c.Locals("workspace").(*models.Workspace)

	var request suppressRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request format",
		})
	}
	if err := sc.Validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email and a valid reason are required",
		})
	}

	err := sc.Suppression.Upsert(c.Context(), workspace.ID, request.Email,
		models.SuppressionReason(request.Reason), "manual")
	if err != nil {
		sc.Logger.Printf("Suppression upsert failed for %s: %v", request.Email, err)
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to suppress address",
		})
	}

	return c.JSON(fiber.Map{"message": "Address suppressed"})
}

// CheckSuppression reports whether an address is on the deny list.
func (sc *SuppressionController) CheckSuppression(c *fiber.Ctx) error {
	workspace := c.Locals("workspace").(*models.Workspace)
	email := c.Query("email")

	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email address is required",
		})
	}

	suppressed, reason, err := sc.Suppression.IsSuppressed(c.Context(), workspace.ID, email)
	if err != nil {
		sc.Logger.Printf("Suppression check failed for %s: %v", email, err)
		sentry.CaptureException(err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check suppression",
		})
	}

	return c.JSON(fiber.Map{
		"email":      email,
		"suppressed": suppressed,
		"reason":     reason,
	})
}
