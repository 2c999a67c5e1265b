package models

import (
	"time"

	"gorm.io/gorm"
)

// Workspace is the tenant boundary. Credits, suppression entries, leads and
// verification jobs all hang off a workspace.
type Workspace struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`
	Plan string `gorm:"default:'free'" json:"plan"`

	// VerifyCredits is the live balance. It is only ever mutated through the
	// credit ledger, which takes a row lock for the read-and-decrement.
	VerifyCredits int `gorm:"default:100" json:"verify_credits"`

	LastActivityAt *time.Time `json:"last_activity_at"`
}
