package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/admin/store/storetest"
)

func TestLogActivityRecordsAndReturnsID(t *testing.T) {
	st := storetest.New()
	svc := NewAuditService(st, nil)

	id := svc.LogActivity(context.Background(), "u1", "login", "user", "ops@example.com", "10.0.0.1")
	require.False(t, id.IsZero())
	require.Len(t, st.Activity, 1)
	require.Equal(t, "login", st.Activity[0].Action)
}

func TestAuditWithoutSinkNeverRaises(t *testing.T) {
	svc := NewAuditService(nil, nil)

	// Absent sink: zero ID back, no panic, caller proceeds.
	id := svc.LogActivity(context.Background(), "u1", "login", "user", "", "")
	require.True(t, id.IsZero())

	id = svc.LogError(context.Background(), "worker", "boom")
	require.True(t, id.IsZero())
}

func TestFailedAuditWritesFireDroppedHook(t *testing.T) {
	st := storetest.New()
	st.AuditWriteErr = errors.New("disk full")

	var dropped int
	svc := NewAuditService(st, func() { dropped++ })

	id := svc.LogActivity(context.Background(), "u1", "login", "user", "", "")
	require.True(t, id.IsZero())
	id = svc.LogError(context.Background(), "worker", "boom")
	require.True(t, id.IsZero())
	require.Equal(t, 2, dropped)

	// Successful writes leave the counter alone.
	st.AuditWriteErr = nil
	id = svc.LogActivity(context.Background(), "u1", "login", "user", "", "")
	require.False(t, id.IsZero())
	require.Equal(t, 2, dropped)
}

func TestLogErrorCapturesStack(t *testing.T) {
	st := storetest.New()
	svc := NewAuditService(st, nil)

	id := svc.LogError(context.Background(), "archive", "upload failed")
	require.False(t, id.IsZero())
	require.Len(t, st.Errors, 1)
	require.Equal(t, "archive", st.Errors[0].Source)
	require.NotEmpty(t, st.Errors[0].StackTrace)
}
