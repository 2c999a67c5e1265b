package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"verimail/models"
)

// GormLedger implements CreditLedger over the workspaces table.
type GormLedger struct {
	DB *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger { return &GormLedger{DB: db} }

func (l *GormLedger) Balance(ctx context.Context, workspaceID uint) (int, error) {
	var ws models.Workspace
	if err := l.DB.WithContext(ctx).Select("verify_credits").First(&ws, workspaceID).Error; err != nil {
		return 0, err
	}
	return ws.VerifyCredits, nil
}

// Consume reads and decrements the balance inside one transaction under a
// row lock, so concurrent jobs cannot drain a workspace below zero.
func (l *GormLedger) Consume(ctx context.Context, workspaceID uint, amount int, memo ConsumeMemo) (int, error) {
	var newBalance int

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ws models.Workspace
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ws, workspaceID).Error; err != nil {
			return err
		}

		if ws.VerifyCredits < amount {
			return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, amount, ws.VerifyCredits)
		}

		newBalance = ws.VerifyCredits - amount
		if err := tx.Model(&ws).Update("verify_credits", newBalance).Error; err != nil {
			return err
		}

		usage := models.CreditUsage{
			WorkspaceID: workspaceID,
			JobID:       memo.JobID,
			Amount:      amount,
			Action:      memo.Action,
			TargetEmail: memo.TargetEmail,
		}
		return tx.Create(&usage).Error
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// GormSuppression implements SuppressionStore.
type GormSuppression struct {
	DB *gorm.DB
}

func NewGormSuppression(db *gorm.DB) *GormSuppression { return &GormSuppression{DB: db} }

func (s *GormSuppression) IsSuppressed(ctx context.Context, workspaceID uint, email string) (bool, models.SuppressionReason, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var entry models.SuppressionEntry
	err := s.DB.WithContext(ctx).
		Where("workspace_id = ? AND email = ?", workspaceID, email).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, entry.Reason, nil
}

func (s *GormSuppression) Upsert(ctx context.Context, workspaceID uint, email string, reason models.SuppressionReason, source string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	entry := models.SuppressionEntry{
		WorkspaceID: workspaceID,
		Email:       email,
		Reason:      reason,
		Source:      source,
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"reason", "source", "updated_at"}),
	}).Create(&entry).Error
}

// GormLeads implements LeadStore.
type GormLeads struct {
	DB *gorm.DB
}

func NewGormLeads(db *gorm.DB) *GormLeads { return &GormLeads{DB: db} }

func (s *GormLeads) UpdateEmailStatus(ctx context.Context, leadID uint, status string, verifiedAt time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", leadID).
		Updates(map[string]interface{}{
			"email_status":      status,
			"email_verified_at": verifiedAt,
		}).Error
}

// GormJobs implements JobStore.
type GormJobs struct {
	DB *gorm.DB
}

func NewGormJobs(db *gorm.DB) *GormJobs { return &GormJobs{DB: db} }

func (s *GormJobs) CreateJob(ctx context.Context, job *models.VerificationJob) error {
	return s.DB.WithContext(ctx).Create(job).Error
}

func (s *GormJobs) GetJob(ctx context.Context, workspaceID, jobID uint) (*models.VerificationJob, error) {
	var job models.VerificationJob
	err := s.DB.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", jobID, workspaceID).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *GormJobs) MarkProcessing(ctx context.Context, jobID uint, startedAt time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.VerificationJob{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     models.JobStatusProcessing,
			"started_at": startedAt,
		}).Error
}

func (s *GormJobs) UpdateProgress(ctx context.Context, jobID uint, p Progress) error {
	return s.DB.WithContext(ctx).Model(&models.VerificationJob{}).
		Where("id = ?", jobID).
		Updates(progressColumns(p)).Error
}

func (s *GormJobs) CompleteJob(ctx context.Context, jobID uint, p Progress, completedAt time.Time) error {
	cols := progressColumns(p)
	cols["status"] = models.JobStatusCompleted
	cols["completed_at"] = completedAt
	return s.DB.WithContext(ctx).Model(&models.VerificationJob{}).
		Where("id = ?", jobID).
		Updates(cols).Error
}

func (s *GormJobs) SaveResult(ctx context.Context, record *models.VerificationRecord) error {
	return s.DB.WithContext(ctx).Create(record).Error
}

func (s *GormJobs) ListResults(ctx context.Context, workspaceID, jobID uint, limit, offset int) ([]models.VerificationRecord, error) {
	var records []models.VerificationRecord
	err := s.DB.WithContext(ctx).
		Where("workspace_id = ? AND job_id = ?", workspaceID, jobID).
		Order("id").Limit(limit).Offset(offset).
		Find(&records).Error
	return records, err
}

func progressColumns(p Progress) map[string]interface{} {
	return map[string]interface{}{
		"processed_count": p.Processed,
		"valid_count":     p.Valid,
		"invalid_count":   p.Invalid,
		"risky_count":     p.Risky,
		"catch_all_count": p.CatchAll,
		"unknown_count":   p.Unknown,
		"credits_used":    p.CreditsUsed,
	}
}
