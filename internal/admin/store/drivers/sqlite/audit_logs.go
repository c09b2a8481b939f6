package sqlite

import (
	"context"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

type activityLogsRepo struct {
	q dbtx
}

func (r *activityLogsRepo) Create(ctx context.Context, l *domain.ActivityLog) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, action, resource, detail, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.UserID, l.Action, l.Resource, l.Detail, l.IP, l.CreatedAt,
	)
	return err
}

func (r *activityLogsRepo) List(ctx context.Context, limit, offset int) ([]*domain.ActivityLog, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, action, resource, detail, ip, created_at
		FROM activity_logs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ActivityLog
	for rows.Next() {
		var (
			l     domain.ActivityLog
			rawID string
		)
		if err := rows.Scan(&rawID, &l.UserID, &l.Action, &l.Resource,
			&l.Detail, &l.IP, &l.CreatedAt); err != nil {
			return nil, err
		}
		if l.ID, err = idx.Parse(rawID); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *activityLogsRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM activity_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type errorLogsRepo struct {
	q dbtx
}

func (r *errorLogsRepo) Create(ctx context.Context, l *domain.ErrorLog) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO error_logs (id, source, message, stack_trace, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID.String(), l.Source, l.Message, l.StackTrace, l.RequestID, l.CreatedAt,
	)
	return err
}

func (r *errorLogsRepo) List(ctx context.Context, limit, offset int) ([]*domain.ErrorLog, error) {
	return r.query(ctx, `
		SELECT id, source, message, stack_trace, request_id, created_at
		FROM error_logs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
}

func (r *errorLogsRepo) ListBefore(ctx context.Context, cutoff time.Time) ([]*domain.ErrorLog, error) {
	return r.query(ctx, `
		SELECT id, source, message, stack_trace, request_id, created_at
		FROM error_logs WHERE created_at < ? ORDER BY created_at`,
		cutoff)
}

func (r *errorLogsRepo) query(ctx context.Context, query string, args ...any) ([]*domain.ErrorLog, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.ErrorLog
	for rows.Next() {
		var (
			l     domain.ErrorLog
			rawID string
		)
		if err := rows.Scan(&rawID, &l.Source, &l.Message, &l.StackTrace,
			&l.RequestID, &l.CreatedAt); err != nil {
			return nil, err
		}
		if l.ID, err = idx.Parse(rawID); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func (r *errorLogsRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM error_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
