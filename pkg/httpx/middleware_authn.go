package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/wardenhq/warden/pkg/jwtx"
	"github.com/wardenhq/warden/pkg/slogx"
)

// AccessTokenCookie is the fallback credential location for browser clients
// that cannot set an Authorization header.
const AccessTokenCookie = "access_token"

// IdentityResolver turns verified token claims into a full Identity.
// Implementations read the permission store so group membership and domain
// scope reflect the current state, not the state at token issue time.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, claims jwtx.Claims) (Identity, error)
}

// AuthnMiddleware authenticates the request and injects the Identity into
// the request context.
//
// Credential extraction order: Authorization bearer header first, then the
// access_token cookie. A missing credential and an invalid one both yield
// 401, but with distinct error codes so clients know whether to re-send or
// re-authenticate; an expired token gets its own code so clients know to
// refresh.
func AuthnMiddleware(v jwtx.Verifier, resolver IdentityResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := extractToken(r)
			if !ok {
				writeBearerError(w, "unauthenticated", "missing credentials")
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				if errors.Is(err, jwtx.ErrExpired) {
					writeBearerError(w, "token_expired", "access token expired")
					return
				}
				log.Warn("jwt verify failed", "err", err)
				writeBearerError(w, "invalid_token", "token verification failed")
				return
			}

			identity, err := resolver.ResolveIdentity(ctx, claims)
			if err != nil {
				log.Error("identity resolution failed", "user_id", claims.Subject, "err", err)
				WriteError(w, http.StatusServiceUnavailable, "upstream_unavailable", "could not resolve permissions")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyIdentity, identity)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the access_token cookie.
func extractToken(r *http.Request) (string, bool) {
	if authz := r.Header.Get("Authorization"); authz != "" {
		if !strings.HasPrefix(authz, "Bearer ") {
			return "", false
		}
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer")), true
	}

	if c, err := r.Cookie(AccessTokenCookie); err == nil && c.Value != "" {
		return c.Value, true
	}

	return "", false
}

// RFC 6750-style error response for bearer auth.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, code, desc)
}
