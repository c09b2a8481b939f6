package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingPinger struct {
	calls int
	err   error
}

func (p *countingPinger) Ping(ctx context.Context) error {
	p.calls++
	return p.err
}

func TestDBHealthMemoizesHealthyResult(t *testing.T) {
	p := &countingPinger{}
	h := NewDBHealth(p, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	// Many checks inside the interval land exactly one probe.
	for i := 0; i < 10; i++ {
		require.True(t, h.Healthy(context.Background()))
	}
	require.Equal(t, 1, p.calls)

	// Past the interval a fresh probe fires.
	now = now.Add(61 * time.Second)
	require.True(t, h.Healthy(context.Background()))
	require.Equal(t, 2, p.calls)
}

func TestDBHealthFailureRetriesAndReprobes(t *testing.T) {
	p := &countingPinger{err: errors.New("connection refused")}
	h := NewDBHealth(p, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	require.False(t, h.Healthy(context.Background()))
	require.Equal(t, 1+dbProbeRetries, p.calls)

	// After a failure the next check probes again even within the
	// interval, so recovery is noticed immediately.
	p.err = nil
	require.True(t, h.Healthy(context.Background()))
}

func TestDBHealthFailureFiresHook(t *testing.T) {
	p := &countingPinger{err: errors.New("connection refused")}
	var failures int
	h := NewDBHealth(p, func() { failures++ })
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	// One hook call per concluded probe, not per retry attempt.
	require.False(t, h.Healthy(context.Background()))
	require.Equal(t, 1, failures)

	p.err = nil
	require.True(t, h.Healthy(context.Background()))
	require.Equal(t, 1, failures)
}

func TestDBHealthMiddlewareSkipsExemptPaths(t *testing.T) {
	p := &countingPinger{}
	h := NewDBHealth(p, nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := h.Middleware(func(path string) bool { return path == "/livez" })(next)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Zero(t, p.calls)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/users", nil))
	require.Equal(t, 1, p.calls)
}

func TestDBHealthRecoveryResumesMemoization(t *testing.T) {
	p := &countingPinger{}
	h := NewDBHealth(p, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	require.True(t, h.Healthy(context.Background()))
	calls := p.calls

	require.True(t, h.Healthy(context.Background()))
	require.Equal(t, calls, p.calls)
}
