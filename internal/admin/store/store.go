// Package store defines the persistence contracts for the admin backend.
// Drivers live under store/drivers; services depend only on these
// interfaces.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists is returned when a uniqueness constraint is violated.
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store aggregates every repository plus transaction and health plumbing.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	Groups() GroupRepository
	Sessions() SessionRepository
	PasswordResets() PasswordResetRepository
	ActivityLogs() ActivityLogRepository
	ErrorLogs() ErrorLogRepository
	Documents() DocumentRepository

	// WithTx runs fn inside a transaction. The Store passed to fn operates
	// on the transaction; any error rolls back, nil commits.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// Ping verifies connectivity to the backing database.
	Ping(ctx context.Context) error

	// ApplyMigrations brings the schema up to date.
	ApplyMigrations() error

	Close() error
}

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id idx.ID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id idx.ID, passwordHash string) error
	TouchLastLogin(ctx context.Context, id idx.ID, at time.Time) error
	Delete(ctx context.Context, id idx.ID) error

	// RoleIDs and GroupIDs return membership for resolution. Inactive
	// roles/groups are filtered by the resolver, not here.
	RoleIDs(ctx context.Context, userID idx.ID) ([]idx.ID, error)
	GroupIDs(ctx context.Context, userID idx.ID) ([]idx.ID, error)
	AssignRole(ctx context.Context, userID, roleID idx.ID) error
	RemoveRole(ctx context.Context, userID, roleID idx.ID) error
	AssignGroup(ctx context.Context, userID, groupID idx.ID) error
	RemoveGroup(ctx context.Context, userID, groupID idx.ID) error
}

// RoleRepository persists roles.
type RoleRepository interface {
	Create(ctx context.Context, r *domain.Role) error
	GetByID(ctx context.Context, id idx.ID) (*domain.Role, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	GetByIDs(ctx context.Context, ids []idx.ID) ([]*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
	Update(ctx context.Context, r *domain.Role) error
	Delete(ctx context.Context, id idx.ID) error
}

// GroupRepository persists groups.
type GroupRepository interface {
	Create(ctx context.Context, g *domain.Group) error
	GetByID(ctx context.Context, id idx.ID) (*domain.Group, error)
	GetByName(ctx context.Context, name string) (*domain.Group, error)
	GetByIDs(ctx context.Context, ids []idx.ID) ([]*domain.Group, error)
	List(ctx context.Context) ([]*domain.Group, error)
	Update(ctx context.Context, g *domain.Group) error
	Delete(ctx context.Context, id idx.ID) error
}

// SessionRepository persists refresh-token sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Session, error)
	Revoke(ctx context.Context, id idx.ID, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID idx.ID, at time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PasswordResetRepository persists password reset tokens.
type PasswordResetRepository interface {
	Create(ctx context.Context, pr *domain.PasswordReset) error
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.PasswordReset, error)
	MarkUsed(ctx context.Context, id idx.ID, at time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityLogRepository persists user activity records.
type ActivityLogRepository interface {
	Create(ctx context.Context, l *domain.ActivityLog) error
	List(ctx context.Context, limit, offset int) ([]*domain.ActivityLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrorLogRepository persists server error records.
type ErrorLogRepository interface {
	Create(ctx context.Context, l *domain.ErrorLog) error
	List(ctx context.Context, limit, offset int) ([]*domain.ErrorLog, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]*domain.ErrorLog, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentRepository persists document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id idx.ID) (*domain.Document, error)
	List(ctx context.Context, domainKey string) ([]*domain.Document, error)
	Delete(ctx context.Context, id idx.ID) error
}
