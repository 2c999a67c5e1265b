package models

import "gorm.io/gorm"

// CreditTransaction records credit grants and bulk deductions against a
// workspace balance. Positive amounts are grants, negative are usage.
type CreditTransaction struct {
	gorm.Model
	WorkspaceID uint `gorm:"not null;index" json:"workspace_id"`

	VerifyCredits int    `gorm:"not null" json:"verify_credits"`
	Description   string `json:"description"`
	ReferenceID   string `json:"reference_id"`

	Workspace Workspace `json:"-"`
}

// CreditUsage tracks per-verification credit consumption for auditing.
// Amount is always positive; the direction is implied by the action.
type CreditUsage struct {
	gorm.Model
	WorkspaceID uint  `gorm:"not null;index" json:"workspace_id"`
	JobID       *uint `json:"job_id,omitempty"`

	Amount      int    `gorm:"not null" json:"amount"`
	Action      string `gorm:"not null" json:"action"` // verify_email, verify_bulk
	TargetEmail string `json:"target_email,omitempty"`

	Workspace Workspace `json:"-"`
}
