package domain

import (
	"time"

	"github.com/wardenhq/warden/pkg/idx"
)

// User is an account that can authenticate against the admin API.
// Role-based privileges come exclusively from the roles and groups the
// user is a member of; Domains is the one per-user grant, widening the
// user's domain scope on top of what membership contributes.
type User struct {
	ID           idx.ID
	Email        string
	Name         string
	PasswordHash string // argon2id PHC string, never exposed
	Domains      []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// PasswordReset is a single-use, time-boxed credential for completing a
// password reset out of band. Only the SHA-256 fingerprint of the token is
// stored; the raw token travels once in the reset email.
type PasswordReset struct {
	ID               idx.ID
	UserID           idx.ID
	TokenFingerprint string
	ExpiresAt        time.Time
	UsedAt           *time.Time
	CreatedAt        time.Time
}

// Used reports whether the reset has already been consumed.
func (pr PasswordReset) Used() bool {
	return pr.UsedAt != nil
}

// Expired reports whether the reset window has elapsed.
func (pr PasswordReset) Expired(now time.Time) bool {
	return now.After(pr.ExpiresAt)
}
