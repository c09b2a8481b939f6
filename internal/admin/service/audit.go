package service

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/slogx"
)

// AuditService writes activity and error records. Every write is
// best-effort: failures are logged and swallowed, never propagated, so an
// unavailable audit sink cannot fail the operation being recorded.
type AuditService struct {
	store     store.Store
	onDropped func()
}

// NewAuditService wraps the store. A nil store yields a no-op sink, which
// keeps call sites unconditional. onDropped, if non-nil, observes each
// record lost to a failed write.
func NewAuditService(st store.Store, onDropped func()) *AuditService {
	return &AuditService{store: st, onDropped: onDropped}
}

func (s *AuditService) dropped() {
	if s.onDropped != nil {
		s.onDropped()
	}
}

// LogActivity records a user-visible action. Returns the record ID, or the
// zero ID when the sink is absent or the write failed.
func (s *AuditService) LogActivity(ctx context.Context, userID, action, resource, detail, ip string) idx.ID {
	if s == nil || s.store == nil {
		return idx.Zero
	}

	rec := &domain.ActivityLog{
		ID:        idx.New(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Detail:    detail,
		IP:        ip,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.ActivityLogs().Create(ctx, rec); err != nil {
		slogx.FromContext(ctx).Warn("activity log write failed",
			"action", action, "err", err)
		s.dropped()
		return idx.Zero
	}
	return rec.ID
}

// LogError records a server-side failure with a captured stack trace.
// Returns the record ID, or the zero ID on a failed or skipped write.
func (s *AuditService) LogError(ctx context.Context, source, message string) idx.ID {
	if s == nil || s.store == nil {
		return idx.Zero
	}

	rec := &domain.ErrorLog{
		ID:         idx.New(),
		Source:     source,
		Message:    message,
		StackTrace: string(debug.Stack()),
		RequestID:  slogx.RequestIDFromContext(ctx),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.ErrorLogs().Create(ctx, rec); err != nil {
		slogx.FromContext(ctx).Warn("error log write failed",
			"source", source, "err", err)
		s.dropped()
		return idx.Zero
	}
	return rec.ID
}

// ListActivity pages recent activity records, newest first.
func (s *AuditService) ListActivity(ctx context.Context, limit, offset int) ([]*domain.ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ActivityLogs().List(ctx, limit, offset)
}

// ListErrors pages recent error records, newest first.
func (s *AuditService) ListErrors(ctx context.Context, limit, offset int) ([]*domain.ErrorLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ErrorLogs().List(ctx, limit, offset)
}
