package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"verimail/models"
)

// MemoryStore is an in-memory implementation of every store contract, used
// by tests and local development without Postgres.
type MemoryStore struct {
	mu sync.Mutex

	balances    map[uint]int
	usages      []models.CreditUsage
	suppression map[string]models.SuppressionEntry
	leads       map[uint]*models.Lead
	jobs        map[uint]*models.VerificationJob
	results     []models.VerificationRecord
	nextJobID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:    make(map[uint]int),
		suppression: make(map[string]models.SuppressionEntry),
		leads:       make(map[uint]*models.Lead),
		jobs:        make(map[uint]*models.VerificationJob),
		nextJobID:   1,
	}
}

// SetBalance seeds a workspace balance.
func (m *MemoryStore) SetBalance(workspaceID uint, credits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[workspaceID] = credits
}

func (m *MemoryStore) Balance(_ context.Context, workspaceID uint) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[workspaceID], nil
}

func (m *MemoryStore) Consume(_ context.Context, workspaceID uint, amount int, memo ConsumeMemo) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance := m.balances[workspaceID]
	if balance < amount {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, amount, balance)
	}
	m.balances[workspaceID] = balance - amount
	m.usages = append(m.usages, models.CreditUsage{
		WorkspaceID: workspaceID,
		JobID:       memo.JobID,
		Amount:      amount,
		Action:      memo.Action,
		TargetEmail: memo.TargetEmail,
	})
	return m.balances[workspaceID], nil
}

// Usages returns a copy of the audit trail.
func (m *MemoryStore) Usages() []models.CreditUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CreditUsage, len(m.usages))
	copy(out, m.usages)
	return out
}

func suppressionKey(workspaceID uint, email string) string {
	return fmt.Sprintf("%d:%s", workspaceID, strings.ToLower(strings.TrimSpace(email)))
}

func (m *MemoryStore) IsSuppressed(_ context.Context, workspaceID uint, email string) (bool, models.SuppressionReason, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.suppression[suppressionKey(workspaceID, email)]
	if !ok {
		return false, "", nil
	}
	return true, entry.Reason, nil
}

func (m *MemoryStore) Upsert(_ context.Context, workspaceID uint, email string, reason models.SuppressionReason, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppression[suppressionKey(workspaceID, email)] = models.SuppressionEntry{
		WorkspaceID: workspaceID,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Reason:      reason,
		Source:      source,
	}
	return nil
}

// AddLead seeds a lead.
func (m *MemoryStore) AddLead(lead *models.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[lead.ID] = lead
}

func (m *MemoryStore) UpdateEmailStatus(_ context.Context, leadID uint, status string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[leadID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	lead.EmailStatus = status
	lead.EmailVerifiedAt = &verifiedAt
	return nil
}

func (m *MemoryStore) CreateJob(_ context.Context, job *models.VerificationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.ID = m.nextJobID
	m.nextJobID++
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, workspaceID, jobID uint) (*models.VerificationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.WorkspaceID != workspaceID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *MemoryStore) MarkProcessing(_ context.Context, jobID uint, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if job.Status == models.JobStatusPending {
		job.Status = models.JobStatusProcessing
		job.StartedAt = &startedAt
	}
	return nil
}

func (m *MemoryStore) UpdateProgress(_ context.Context, jobID uint, p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyProgress(job, p)
	return nil
}

func (m *MemoryStore) CompleteJob(_ context.Context, jobID uint, p Progress, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	applyProgress(job, p)
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &completedAt
	return nil
}

func (m *MemoryStore) SaveResult(_ context.Context, record *models.VerificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *record)
	return nil
}

func (m *MemoryStore) ListResults(_ context.Context, workspaceID, jobID uint, limit, offset int) ([]models.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.VerificationRecord
	for _, r := range m.results {
		if r.WorkspaceID == workspaceID && r.JobID != nil && *r.JobID == jobID {
			matched = append(matched, r)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func applyProgress(job *models.VerificationJob, p Progress) {
	job.ProcessedCount = p.Processed
	job.ValidCount = p.Valid
	job.InvalidCount = p.Invalid
	job.RiskyCount = p.Risky
	job.CatchAllCount = p.CatchAll
	job.UnknownCount = p.Unknown
	job.CreditsUsed = p.CreditsUsed
}
