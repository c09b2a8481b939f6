package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/slogx"
)

const (
	// dbProbeInterval is the minimum spacing between probes while the
	// database is believed healthy. A failed probe disables the interval
	// so the very next request re-checks.
	dbProbeInterval = time.Minute

	dbProbeTimeout = 10 * time.Second
	dbProbeRetries = 2
)

// Pinger is the slice of the store the watchdog needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DBHealth is a request-path watchdog over database connectivity. It
// memoizes probe results so at most one ping lands per interval under
// healthy conditions, and it fails open: a probe failure is logged and the
// request proceeds, on the theory that the real query will surface its own
// error with better context.
type DBHealth struct {
	pinger    Pinger
	onFailure func()

	mu        sync.Mutex
	lastProbe time.Time
	lastOK    bool
	probed    bool

	now func() time.Time // injectable for tests
}

// NewDBHealth wraps the pinger. onFailure, if non-nil, observes each probe
// that concludes unhealthy after retries.
func NewDBHealth(p Pinger, onFailure func()) *DBHealth {
	return &DBHealth{pinger: p, onFailure: onFailure, now: time.Now}
}

// Healthy reports database connectivity, probing only when the previous
// result is stale or was a failure. Concurrent callers inside one interval
// share the memoized result.
func (h *DBHealth) Healthy(ctx context.Context) bool {
	h.mu.Lock()
	now := h.now()
	if h.probed && h.lastOK && now.Sub(h.lastProbe) < dbProbeInterval {
		h.mu.Unlock()
		return true
	}
	h.mu.Unlock()

	ok := h.probe(ctx)
	if !ok && h.onFailure != nil {
		h.onFailure()
	}

	h.mu.Lock()
	h.probed = true
	h.lastProbe = h.now()
	h.lastOK = ok
	h.mu.Unlock()

	return ok
}

// probe pings with a bounded timeout, retrying transient failures.
func (h *DBHealth) probe(ctx context.Context) bool {
	log := slogx.FromContext(ctx)

	for attempt := 0; attempt <= dbProbeRetries; attempt++ {
		probeCtx, cancel := context.WithTimeout(ctx, dbProbeTimeout)
		err := h.pinger.Ping(probeCtx)
		cancel()

		if err == nil {
			return true
		}
		log.Warn("db probe failed", "attempt", attempt+1, "err", err)
	}
	return false
}

// Middleware runs the watchdog ahead of each request. An unhealthy result
// is logged but never blocks the request. Paths matched by skip bypass the
// watchdog entirely so health and metrics endpoints stay probe-free.
func (h *DBHealth) Middleware(skip func(path string) bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip != nil && skip(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if !h.Healthy(r.Context()) {
				slogx.FromContext(r.Context()).Error("database unhealthy, proceeding anyway",
					"path", r.URL.Path)
			}
			next.ServeHTTP(w, r)
		})
	}
}
