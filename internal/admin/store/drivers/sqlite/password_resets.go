package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

type passwordResetsRepo struct {
	q dbtx
}

func (r *passwordResetsRepo) Create(ctx context.Context, pr *domain.PasswordReset) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_fingerprint, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		pr.ID.String(), pr.UserID.String(), pr.TokenFingerprint,
		pr.ExpiresAt, pr.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *passwordResetsRepo) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.PasswordReset, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, token_fingerprint, expires_at, used_at, created_at
		FROM password_resets WHERE token_fingerprint = ?`, fingerprint)

	var (
		pr            domain.PasswordReset
		rawID, rawUID string
		used          sql.NullTime
	)
	err := row.Scan(&rawID, &rawUID, &pr.TokenFingerprint, &pr.ExpiresAt,
		&used, &pr.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if pr.ID, err = idx.Parse(rawID); err != nil {
		return nil, err
	}
	if pr.UserID, err = idx.Parse(rawUID); err != nil {
		return nil, err
	}
	pr.UsedAt = mapNullTimePtr(used)
	return &pr, nil
}

func (r *passwordResetsRepo) MarkUsed(ctx context.Context, id idx.ID, at time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		at, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *passwordResetsRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
