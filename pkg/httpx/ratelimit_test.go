package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLimiter(cfg RateLimitConfig) (*SlidingWindowLimiter, *time.Time) {
	l := NewSlidingWindowLimiter(cfg)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestSlidingWindowMinuteLimit(t *testing.T) {
	l, now := testLimiter(RateLimitConfig{
		RequestsPerMinute:     3,
		AuthRequestsPerMinute: 3,
		RequestsPerHour:       100,
	})

	for i := 0; i < 3; i++ {
		d := l.Check("10.0.0.1", "/v1/users")
		require.True(t, d.Allowed, "request %d should be admitted", i+1)
		l.Record("10.0.0.1", "/v1/users")
	}

	d := l.Check("10.0.0.1", "/v1/users")
	require.False(t, d.Allowed)
	require.Equal(t, "minute", d.Window)
	require.Equal(t, 3, d.Limit)
	require.Equal(t, 0, d.Remaining)
	require.Equal(t, time.Minute, d.RetryAfter)

	// The window slides: 61 seconds later the same IP is admitted again.
	*now = now.Add(61 * time.Second)
	d = l.Check("10.0.0.1", "/v1/users")
	require.True(t, d.Allowed)
}

func TestSlidingWindowAuthPathsStricter(t *testing.T) {
	l, _ := testLimiter(RateLimitConfig{
		RequestsPerMinute:     100,
		AuthRequestsPerMinute: 2,
		RequestsPerHour:       1000,
		AuthPathPrefixes:      []string{"/v1/auth/"},
	})

	for i := 0; i < 2; i++ {
		d := l.Check("10.0.0.1", "/v1/auth/login")
		require.True(t, d.Allowed)
		l.Record("10.0.0.1", "/v1/auth/login")
	}

	// Auth path is exhausted, general paths are not.
	require.False(t, l.Check("10.0.0.1", "/v1/auth/login").Allowed)
	require.True(t, l.Check("10.0.0.1", "/v1/users").Allowed)
}

func TestSlidingWindowHourLimit(t *testing.T) {
	l, now := testLimiter(RateLimitConfig{
		RequestsPerMinute:     1000,
		AuthRequestsPerMinute: 1000,
		RequestsPerHour:       5,
	})

	// Spread events out so the minute window never trips.
	for i := 0; i < 5; i++ {
		require.True(t, l.Check("10.0.0.1", "/v1/users").Allowed)
		l.Record("10.0.0.1", "/v1/users")
		*now = now.Add(2 * time.Minute)
	}

	d := l.Check("10.0.0.1", "/v1/users")
	require.False(t, d.Allowed)
	require.Equal(t, "hour", d.Window)
	require.Equal(t, 5, d.Limit)
}

func TestSlidingWindowPerIPIsolation(t *testing.T) {
	l, _ := testLimiter(RateLimitConfig{
		RequestsPerMinute:     1,
		AuthRequestsPerMinute: 1,
		RequestsPerHour:       100,
	})

	l.Record("10.0.0.1", "/v1/users")
	require.False(t, l.Check("10.0.0.1", "/v1/users").Allowed)
	require.True(t, l.Check("10.0.0.2", "/v1/users").Allowed)
}

func TestSlidingWindowSweep(t *testing.T) {
	l, now := testLimiter(RateLimitConfig{
		RequestsPerMinute:     10,
		AuthRequestsPerMinute: 10,
		RequestsPerHour:       100,
	})

	l.Record("10.0.0.1", "/v1/users")
	l.Record("10.0.0.2", "/v1/users")
	require.Len(t, l.buckets, 2)

	*now = now.Add(rateLimitRetention + time.Minute)
	l.Sweep()
	require.Empty(t, l.buckets)
}

func TestClientIPResolution(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{"forwarded-for first value", "203.0.113.7, 10.0.0.1", "", "192.0.2.1:1234", "203.0.113.7"},
		{"real-ip fallback", "", "203.0.113.8", "192.0.2.1:1234", "203.0.113.8"},
		{"socket peer fallback", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"unknown bucket", "", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			require.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	l, _ := testLimiter(RateLimitConfig{
		RequestsPerMinute:     1,
		AuthRequestsPerMinute: 1,
		RequestsPerHour:       100,
		ExemptPaths:           []string{"/livez"},
	})

	var rejectedWindow string
	handler := RateLimitMiddleware(l, func(window string) { rejectedWindow = window })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	do := func(path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	first := do("/v1/users")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	second := do("/v1/users")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "60", second.Header().Get("Retry-After"))
	require.Equal(t, "minute", rejectedWindow)

	// Exempt paths are never limited.
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, do("/livez").Code)
	}
}
