package httpx

import "net/http"

// Middleware is a uniform request-processing stage: it either forwards to
// the next handler or short-circuits with its own response.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares around a handler. The first middleware listed
// is the outermost, so Chain(h, a, b) runs a, then b, then h.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
