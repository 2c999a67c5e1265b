package models

import (
	"time"

	"gorm.io/gorm"
)

// JobStatus is the lifecycle of a bulk verification job. Transitions are
// monotonic: PENDING -> PROCESSING -> COMPLETED.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted:
		return true
	}
	return false
}

// VerificationJob is the durable record of one bulk verification run.
// Invariants: ProcessedCount <= TotalCount at all times; the per-status
// counters sum to ProcessedCount at completion.
type VerificationJob struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;index" json:"workspace_id"`
	Reference   string `gorm:"uniqueIndex;not null" json:"reference"`

	Status JobStatus `gorm:"default:'PENDING'" json:"status"`

	TotalCount     int `gorm:"default:0" json:"total_count"`
	ProcessedCount int `gorm:"default:0" json:"processed_count"`

	ValidCount    int `gorm:"default:0" json:"valid_count"`
	InvalidCount  int `gorm:"default:0" json:"invalid_count"`
	RiskyCount    int `gorm:"default:0" json:"risky_count"`
	CatchAllCount int `gorm:"default:0" json:"catch_all_count"`
	UnknownCount  int `gorm:"default:0" json:"unknown_count"`

	CreditsUsed int `gorm:"default:0" json:"credits_used"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Workspace Workspace            `json:"-"`
	Results   []VerificationRecord `gorm:"foreignKey:JobID" json:"results,omitempty"`
}

// VerificationRecord stores one verification attempt. Rows are written once
// and never mutated.
type VerificationRecord struct {
	gorm.Model
	WorkspaceID uint  `gorm:"not null;index" json:"workspace_id"`
	JobID       *uint `gorm:"index" json:"job_id,omitempty"`
	LeadID      *uint `json:"lead_id,omitempty"`

	Email  string `gorm:"not null;index" json:"email"`
	Status string `gorm:"not null" json:"status"`
	Reason string `gorm:"not null" json:"reason"`

	Provider     string `json:"provider,omitempty"`
	MXHosts      string `json:"mx_hosts,omitempty"` // comma-joined, diagnostics only
	IsDisposable bool   `gorm:"default:false" json:"is_disposable"`
	IsRoleBased  bool   `gorm:"default:false" json:"is_role_based"`
	IsCatchAll   bool   `gorm:"default:false" json:"is_catch_all"`
	SMTPResponse string `gorm:"type:text" json:"smtp_response,omitempty"`
	DNSScore     int    `gorm:"default:0" json:"dns_score"`
	HasSPF       bool   `gorm:"default:false" json:"has_spf"`
	HasDMARC     bool   `gorm:"default:false" json:"has_dmarc"`

	VerifiedAt time.Time `gorm:"not null" json:"verified_at"`

	Workspace Workspace `json:"-"`
}

// SuppressionReason records why an address must not be contacted again.
type SuppressionReason string

const (
	SuppressionBounced      SuppressionReason = "BOUNCED"
	SuppressionComplained   SuppressionReason = "COMPLAINED"
	SuppressionUnsubscribed SuppressionReason = "UNSUBSCRIBED"
	SuppressionInvalid      SuppressionReason = "INVALID"
	SuppressionManual       SuppressionReason = "MANUAL"
)

// SuppressionEntry is a per-workspace deny-list row, upserted idempotently.
// The verifier both reads it (short-circuit before spending network budget)
// and writes it (auto-suppress on invalid results).
type SuppressionEntry struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;uniqueIndex:idx_suppression_ws_email" json:"workspace_id"`
	Email       string `gorm:"not null;uniqueIndex:idx_suppression_ws_email" json:"email"`

	Reason SuppressionReason `gorm:"not null" json:"reason"`
	Source string            `json:"source"` // manual, verifier, import

	Workspace Workspace `json:"-"`
}
