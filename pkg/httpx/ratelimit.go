package httpx

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/wardenhq/warden/pkg/slogx"
)

const (
	// rateLimitRetention is how long per-IP events are kept. Nothing older
	// than the hour window matters for decisions; the extra slack keeps the
	// sweep cheap.
	rateLimitRetention = 2 * time.Hour

	// rateLimitSweepInterval is how often the background sweep runs.
	rateLimitSweepInterval = 5 * time.Minute
)

// RateLimitConfig defines the sliding-window thresholds.
// These can be overridden via environment variables (see ParseRateLimitFromEnv).
type RateLimitConfig struct {
	// RequestsPerMinute applies to general paths within a trailing 1-minute window.
	RequestsPerMinute int
	// AuthRequestsPerMinute is the stricter 1-minute threshold for
	// authentication-prefixed paths (brute force prevention).
	AuthRequestsPerMinute int
	// RequestsPerHour is shared across all paths within a trailing 1-hour window.
	RequestsPerHour int
	// AuthPathPrefixes marks paths that get the stricter per-minute threshold.
	AuthPathPrefixes []string
	// ExemptPaths are never limited (health, docs, metrics).
	ExemptPaths []string
}

// DefaultRateLimitConfig returns production defaults.
// Override with: RATELIMIT_PER_MINUTE, RATELIMIT_AUTH_PER_MINUTE, RATELIMIT_PER_HOUR.
func DefaultRateLimitConfig() RateLimitConfig {
	return ParseRateLimitFromEnv(RateLimitConfig{
		RequestsPerMinute:     120,
		AuthRequestsPerMinute: 10,
		RequestsPerHour:       2000,
		AuthPathPrefixes:      []string{"/v1/auth/"},
		ExemptPaths:           []string{"/livez", "/readyz", "/metrics", "/swagger/"},
	})
}

// ParseRateLimitFromEnv reads threshold overrides from environment
// variables (useful for testing).
func ParseRateLimitFromEnv(config RateLimitConfig) RateLimitConfig {
	if val := os.Getenv("RATELIMIT_PER_MINUTE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			config.RequestsPerMinute = n
		}
	}

	if val := os.Getenv("RATELIMIT_AUTH_PER_MINUTE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			config.AuthRequestsPerMinute = n
		}
	}

	if val := os.Getenv("RATELIMIT_PER_HOUR"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			config.RequestsPerHour = n
		}
	}

	return config
}

// ClientIP resolves the rate-limit bucket key for a request:
// X-Forwarded-For first value, then X-Real-IP, then the socket peer
// address, else a shared "unknown" bucket. All unidentifiable clients
// sharing one bucket is an accepted limitation.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if ip := strings.TrimSpace(ips[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	if ip == "" {
		return "unknown"
	}
	return ip
}

// rateEvent is one admitted request for a bucket.
type rateEvent struct {
	at   time.Time
	path string
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	Limit      int           // threshold of the decisive window
	Window     string        // "minute" or "hour"
	Remaining  int           // quota left in the per-minute window
	ResetAt    time.Time     // one minute out, advisory
	RetryAfter time.Duration // hint for rejected requests
}

// SlidingWindowLimiter admits requests by counting per-IP events inside
// trailing one-minute and one-hour windows. State is process-lifetime only
// and lost on restart.
//
// Check and Record are separate lock acquisitions, so the check-then-record
// sequence is advisory rather than linearizable: two racing requests from
// one IP can both pass a check at the boundary. Acceptable for an abuse
// limiter; a hard quota would need an atomic reserve.
type SlidingWindowLimiter struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	buckets map[string][]rateEvent

	now func() time.Time // injectable for tests

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewSlidingWindowLimiter creates a limiter with the given thresholds.
func NewSlidingWindowLimiter(cfg RateLimitConfig) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		cfg:     cfg,
		buckets: make(map[string][]rateEvent),
		now:     time.Now,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Exempt reports whether the path bypasses limiting entirely.
func (l *SlidingWindowLimiter) Exempt(path string) bool {
	for _, p := range l.cfg.ExemptPaths {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// minuteLimit picks the per-minute threshold for a path.
func (l *SlidingWindowLimiter) minuteLimit(path string) int {
	for _, p := range l.cfg.AuthPathPrefixes {
		if strings.HasPrefix(path, p) {
			return l.cfg.AuthRequestsPerMinute
		}
	}
	return l.cfg.RequestsPerMinute
}

// Check decides admission for one request. It prunes the bucket lazily and
// counts both windows under a single lock acquisition. It does not record
// the event; call Record after the request is admitted.
func (l *SlidingWindowLimiter) Check(ip, path string) Decision {
	now := l.now()
	minLimit := l.minuteLimit(path)

	l.mu.Lock()
	events := l.prune(ip, now)

	var minuteCount, hourCount int
	minuteAgo := now.Add(-time.Minute)
	hourAgo := now.Add(-time.Hour)
	for _, e := range events {
		if e.at.After(hourAgo) {
			hourCount++
			if e.at.After(minuteAgo) {
				minuteCount++
			}
		}
	}
	l.mu.Unlock()

	d := Decision{
		Allowed:   true,
		Limit:     minLimit,
		Window:    "minute",
		Remaining: maxInt(0, minLimit-minuteCount),
		ResetAt:   now.Add(time.Minute),
	}

	switch {
	case minuteCount >= minLimit:
		d.Allowed = false
		d.Remaining = 0
		d.RetryAfter = time.Minute
	case hourCount >= l.cfg.RequestsPerHour:
		d.Allowed = false
		d.Limit = l.cfg.RequestsPerHour
		d.Window = "hour"
		d.Remaining = 0
		d.RetryAfter = time.Minute
	}

	return d
}

// Record appends an admitted request to its bucket and returns the
// remaining per-minute quota after recording. Separate lock acquisition
// from Check by design.
func (l *SlidingWindowLimiter) Record(ip, path string) int {
	now := l.now()
	minLimit := l.minuteLimit(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buckets[ip] = append(l.buckets[ip], rateEvent{at: now, path: path})

	minuteAgo := now.Add(-time.Minute)
	var minuteCount int
	for _, e := range l.buckets[ip] {
		if e.at.After(minuteAgo) {
			minuteCount++
		}
	}

	return maxInt(0, minLimit-minuteCount)
}

// prune drops events older than the retention horizon for one bucket.
// Caller must hold l.mu.
func (l *SlidingWindowLimiter) prune(ip string, now time.Time) []rateEvent {
	events := l.buckets[ip]
	cutoff := now.Add(-rateLimitRetention)

	idx := 0
	for idx < len(events) && !events[idx].at.After(cutoff) {
		idx++
	}
	if idx > 0 {
		events = events[idx:]
		if len(events) == 0 {
			delete(l.buckets, ip)
		} else {
			l.buckets[ip] = events
		}
	}
	return events
}

// Sweep walks every bucket, dropping stale events and removing empty
// buckets entirely, bounding memory between request-path prunes.
func (l *SlidingWindowLimiter) Sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for ip := range l.buckets {
		l.prune(ip, now)
	}
}

// Start launches the periodic background sweep.
func (l *SlidingWindowLimiter) Start() {
	go func() {
		defer close(l.doneCh)

		ticker := time.NewTicker(rateLimitSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Sweep()
			case <-l.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the background sweep. Blocks until the worker exits.
func (l *SlidingWindowLimiter) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

// RateLimitMiddleware enforces the sliding-window limiter per client IP.
// Rejections carry Retry-After and the offending window's limit; every
// response, admitted or not, carries the remaining quota and a reset
// timestamp one minute out. onReject, if non-nil, observes each rejection
// with the decisive window name.
func RateLimitMiddleware(l *SlidingWindowLimiter, onReject func(window string)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			d := l.Check(ip, r.URL.Path)

			if !d.Allowed {
				if onReject != nil {
					onReject(d.Window)
				}
				log := slogx.FromContext(r.Context())
				log.Warn("rate limit exceeded",
					"ip", ip,
					"endpoint", r.URL.Path,
					"window", d.Window,
					"limit", d.Limit,
				)

				setRateLimitHeaders(w, d.Remaining, d.ResetAt)
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())))
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
					fmt.Sprintf("rate limit exceeded: %d requests per %s", d.Limit, d.Window))
				return
			}

			remaining := l.Record(ip, r.URL.Path)
			setRateLimitHeaders(w, remaining, d.ResetAt)
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, remaining int, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
