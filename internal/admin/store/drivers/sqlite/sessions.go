package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

type sessionsRepo struct {
	q dbtx
}

func (r *sessionsRepo) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token_fingerprint, user_agent, ip, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.UserID.String(), s.TokenFingerprint,
		s.UserAgent, s.IP, s.ExpiresAt, s.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, token_fingerprint, user_agent, ip, expires_at, revoked_at, created_at
		FROM sessions WHERE token_fingerprint = ?`, fingerprint)

	var (
		s             domain.Session
		rawID, rawUID string
		revoked       sql.NullTime
	)
	err := row.Scan(&rawID, &rawUID, &s.TokenFingerprint, &s.UserAgent,
		&s.IP, &s.ExpiresAt, &revoked, &s.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if s.ID, err = idx.Parse(rawID); err != nil {
		return nil, err
	}
	if s.UserID, err = idx.Parse(rawUID); err != nil {
		return nil, err
	}
	s.RevokedAt = mapNullTimePtr(revoked)
	return &s, nil
}

func (r *sessionsRepo) Revoke(ctx context.Context, id idx.ID, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
		at, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *sessionsRepo) RevokeAllForUser(ctx context.Context, userID idx.ID, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`,
		at, userID.String())
	return err
}

func (r *sessionsRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
