package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/pkg/jwtx"
)

type stubVerifier struct {
	claims jwtx.Claims
	err    error
}

func (v stubVerifier) Verify(token string) (jwtx.Claims, error) {
	return v.claims, v.err
}

type stubResolver struct {
	identity Identity
	err      error
}

func (r stubResolver) ResolveIdentity(ctx context.Context, claims jwtx.Claims) (Identity, error) {
	return r.identity, r.err
}

func okClaims(subject string) jwtx.Claims {
	return jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
		Email:            "ops@example.com",
	}
}

func authnServe(t *testing.T, v jwtx.Verifier, res IdentityResolver, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	var sawIdentity bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawIdentity = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	AuthnMiddleware(v, res)(inner).ServeHTTP(rec, req)
	if rec.Code == http.StatusNoContent {
		require.True(t, sawIdentity, "handler ran without identity in context")
	}
	return rec
}

func TestAuthnMissingCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	rec := authnServe(t, stubVerifier{}, stubResolver{}, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "unauthenticated")
}

func TestAuthnBearerHeader(t *testing.T) {
	v := stubVerifier{claims: okClaims("u1")}
	res := stubResolver{identity: Identity{UserID: "u1", Roles: []string{RoleAdmin}}}

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req.Header.Set("Authorization", "Bearer sometoken")

	rec := authnServe(t, v, res, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthnCookieFallback(t *testing.T) {
	v := stubVerifier{claims: okClaims("u1")}
	res := stubResolver{identity: Identity{UserID: "u1"}}

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: "sometoken"})

	rec := authnServe(t, v, res, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthnExpiredTokenHasDistinctCode(t *testing.T) {
	v := stubVerifier{err: jwtx.ErrExpired}

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req.Header.Set("Authorization", "Bearer stale")

	rec := authnServe(t, v, stubResolver{}, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "token_expired")
}

func TestAuthnInvalidToken(t *testing.T) {
	v := stubVerifier{err: jwtx.ErrInvalidSig}

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req.Header.Set("Authorization", "Bearer forged")

	rec := authnServe(t, v, stubResolver{}, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestAuthnResolverOutage(t *testing.T) {
	v := stubVerifier{claims: okClaims("u1")}
	res := stubResolver{err: errors.New("database is locked")}

	req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
	req.Header.Set("Authorization", "Bearer sometoken")

	rec := authnServe(t, v, res, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
