package service

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wardenhq/warden/internal/admin/blob"
	"github.com/wardenhq/warden/internal/admin/store"
)

const (
	// errorLogRetention is how long error records stay in the database
	// before being archived out.
	errorLogRetention = 30 * 24 * time.Hour

	// activityLogRetention mirrors the above for activity records, which
	// are deleted rather than archived.
	activityLogRetention = 90 * 24 * time.Hour

	// archiveSchedule runs nightly at 03:10, off peak.
	archiveSchedule = "10 3 * * *"
)

// ArchiveService moves aged error logs out of the database into gzip'd
// JSON objects in blob storage and trims aged activity logs. Archival is
// best-effort; a failed run leaves records in place for the next one.
type ArchiveService struct {
	store store.Store
	blob  *blob.Client
	log   *slog.Logger

	cron *cron.Cron
}

func NewArchiveService(st store.Store, bl *blob.Client, log *slog.Logger) *ArchiveService {
	return &ArchiveService{
		store: st,
		blob:  bl,
		log:   log,
		cron:  cron.New(),
	}
}

// Start registers the nightly schedule and begins running it.
func (s *ArchiveService) Start() error {
	_, err := s.cron.AddFunc(archiveSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := s.RunOnce(ctx); err != nil {
			s.log.Error("audit archive run failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule archive: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for an in-flight run to finish.
func (s *ArchiveService) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs one archive pass: export aged error logs to blob
// storage, then delete them, then trim aged activity logs.
func (s *ArchiveService) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	if err := s.archiveErrors(ctx, now); err != nil {
		return err
	}

	deleted, err := s.store.ActivityLogs().DeleteBefore(ctx, now.Add(-activityLogRetention))
	if err != nil {
		return fmt.Errorf("trim activity logs: %w", err)
	}
	if deleted > 0 {
		s.log.Info("trimmed activity logs", "deleted", deleted)
	}
	return nil
}

func (s *ArchiveService) archiveErrors(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-errorLogRetention)

	aged, err := s.store.ErrorLogs().ListBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list aged error logs: %w", err)
	}
	if len(aged) == 0 {
		return nil
	}

	// Without storage we only delete once records would be exported, so
	// nothing is lost silently: keep them in place.
	if s.blob == nil {
		s.log.Warn("error log archival skipped, no object storage", "pending", len(aged))
		return nil
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for _, rec := range aged {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode error log: %w", err)
		}
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compress archive: %w", err)
	}

	key := fmt.Sprintf("audit/errors/%s.ndjson.gz", now.Format("2006-01-02T15-04-05"))
	if err := s.blob.Put(ctx, key, buf.Bytes(), "application/gzip"); err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}

	deleted, err := s.store.ErrorLogs().DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete archived error logs: %w", err)
	}

	s.log.Info("archived error logs", "key", key, "archived", len(aged), "deleted", deleted)
	return nil
}
