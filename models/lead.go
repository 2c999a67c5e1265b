package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead is a contact whose email can be verified. Only the verification
// surface lives here; enrichment and outreach are separate systems.
type Lead struct {
	gorm.Model
	WorkspaceID uint `gorm:"not null;index" json:"workspace_id"`

	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`

	// EmailStatus mirrors the last verification verdict for this lead.
	EmailStatus     string     `gorm:"default:'unverified'" json:"email_status"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`

	Workspace Workspace `json:"-"`
}
