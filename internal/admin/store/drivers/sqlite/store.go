package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/admin/store"

	_ "modernc.org/sqlite"
)

// dbtx is the subset of *sql.DB and *sql.Tx the repositories need, letting
// the same repository code run inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	q   dbtx
	dsn string
}

var _ store.Store = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   db,
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes fn within a transaction, automatically handling
// commit/rollback. The Store handed to fn shares the connection but routes
// every repository through the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	// Rollback is safe to call after a successful commit.
	defer func() {
		_ = tx.Rollback()
	}()

	txStore := &Store{db: s.db, q: tx, dsn: s.dsn}
	if err := fn(txStore); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Users() store.UserRepository                   { return &usersRepo{q: s.q} }
func (s *Store) Roles() store.RoleRepository                   { return &rolesRepo{q: s.q} }
func (s *Store) Groups() store.GroupRepository                 { return &groupsRepo{q: s.q} }
func (s *Store) Sessions() store.SessionRepository             { return &sessionsRepo{q: s.q} }
func (s *Store) PasswordResets() store.PasswordResetRepository { return &passwordResetsRepo{q: s.q} }
func (s *Store) ActivityLogs() store.ActivityLogRepository     { return &activityLogsRepo{q: s.q} }
func (s *Store) ErrorLogs() store.ErrorLogRepository           { return &errorLogsRepo{q: s.q} }
func (s *Store) Documents() store.DocumentRepository           { return &documentsRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	// modernc.org/sqlite surfaces constraint violations in the error text.
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		val := nt.Time
		return &val
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// joinList packs a string slice into a single space-separated column.
func joinList(items []string) string {
	return strings.Join(items, " ")
}

// splitList unpacks a space-separated column, dropping blanks and duplicates.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Fields(s)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}
