package domain

import (
	"time"

	"github.com/wardenhq/warden/pkg/idx"
)

// ActivityLog records one user-visible action (login, create, update,
// delete). Writing these is always best-effort: an unavailable sink never
// fails the action being recorded.
type ActivityLog struct {
	ID        idx.ID
	UserID    string // empty when the actor is unauthenticated
	Action    string
	Resource  string
	Detail    string
	IP        string
	CreatedAt time.Time
}

// ErrorLog records one server-side failure with enough context to debug it
// after the fact. Like activity logs, writes are best-effort.
type ErrorLog struct {
	ID         idx.ID
	Source     string
	Message    string
	StackTrace string
	RequestID  string
	CreatedAt  time.Time
}
