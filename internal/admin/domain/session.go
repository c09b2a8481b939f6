package domain

import (
	"time"

	"github.com/wardenhq/warden/pkg/idx"
)

// Session is one refresh-token lineage for a user. The refresh token itself
// is never stored; only its SHA-256 fingerprint is. Rotation revokes the
// session row and creates a successor in the same transaction, so a given
// fingerprint is redeemable at most once.
type Session struct {
	ID               idx.ID
	UserID           idx.ID
	TokenFingerprint string
	UserAgent        string
	IP               string
	ExpiresAt        time.Time
	RevokedAt        *time.Time
	CreatedAt        time.Time
}

// Revoked reports whether the session has been invalidated.
func (s Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Expired reports whether the session lifetime has elapsed.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Usable reports whether the session can still redeem a refresh.
func (s Session) Usable(now time.Time) bool {
	return !s.Revoked() && !s.Expired(now)
}
