// Package store defines the narrow contracts the verification core needs
// from its collaborators: the credit ledger, suppression list, lead records
// and job persistence. GORM implementations back production; tests use the
// in-memory ones.
package store

import (
	"context"
	"errors"
	"time"

	"verimail/models"
)

// ErrInsufficientCredits is returned by Consume when the balance cannot
// cover the requested amount. Callers wrap it with the concrete shortfall.
var ErrInsufficientCredits = errors.New("insufficient verification credits")

// ConsumeMemo annotates a ledger decrement for the audit trail.
type ConsumeMemo struct {
	Action      string
	TargetEmail string
	JobID       *uint
}

// CreditLedger charges workspaces for verification attempts. Consume must
// perform the balance read and the decrement atomically.
type CreditLedger interface {
	Balance(ctx context.Context, workspaceID uint) (int, error)
	Consume(ctx context.Context, workspaceID uint, amount int, memo ConsumeMemo) (newBalance int, err error)
}

// SuppressionStore is the per-workspace deny list. Upsert is idempotent.
type SuppressionStore interface {
	IsSuppressed(ctx context.Context, workspaceID uint, email string) (bool, models.SuppressionReason, error)
	Upsert(ctx context.Context, workspaceID uint, email string, reason models.SuppressionReason, source string) error
}

// LeadStore applies the optional verification side effect to a lead record.
type LeadStore interface {
	UpdateEmailStatus(ctx context.Context, leadID uint, status string, verifiedAt time.Time) error
}

// Progress is the rolling tally the batch runner persists.
type Progress struct {
	Processed   int
	Valid       int
	Invalid     int
	Risky       int
	CatchAll    int
	Unknown     int
	CreditsUsed int
}

// JobStore persists bulk verification jobs and their per-address results.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.VerificationJob) error
	GetJob(ctx context.Context, workspaceID, jobID uint) (*models.VerificationJob, error)
	MarkProcessing(ctx context.Context, jobID uint, startedAt time.Time) error
	UpdateProgress(ctx context.Context, jobID uint, p Progress) error
	CompleteJob(ctx context.Context, jobID uint, p Progress, completedAt time.Time) error
	SaveResult(ctx context.Context, record *models.VerificationRecord) error
	ListResults(ctx context.Context, workspaceID, jobID uint, limit, offset int) ([]models.VerificationRecord, error)
}
