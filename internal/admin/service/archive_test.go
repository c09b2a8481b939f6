package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/store/storetest"
	"github.com/wardenhq/warden/pkg/idx"
)

func TestArchiveRunOnceTrimsActivity(t *testing.T) {
	st := storetest.New()
	svc := NewArchiveService(st, nil, slog.Default())

	old := &domain.ActivityLog{
		ID:        idx.New(),
		Action:    "login",
		CreatedAt: time.Now().UTC().Add(-100 * 24 * time.Hour),
	}
	recent := &domain.ActivityLog{
		ID:        idx.New(),
		Action:    "login",
		CreatedAt: time.Now().UTC(),
	}
	st.Activity = append(st.Activity, old, recent)

	require.NoError(t, svc.RunOnce(context.Background()))
	require.Len(t, st.Activity, 1)
	require.Equal(t, recent.ID, st.Activity[0].ID)
}

func TestArchiveKeepsErrorsWithoutStorage(t *testing.T) {
	st := storetest.New()
	svc := NewArchiveService(st, nil, slog.Default())

	aged := &domain.ErrorLog{
		ID:        idx.New(),
		Source:    "worker",
		Message:   "boom",
		CreatedAt: time.Now().UTC().Add(-60 * 24 * time.Hour),
	}
	st.Errors = append(st.Errors, aged)

	// No object storage configured: aged records must not be deleted,
	// since deleting without exporting would lose them.
	require.NoError(t, svc.RunOnce(context.Background()))
	require.Len(t, st.Errors, 1)
}
