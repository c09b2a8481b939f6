package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/mail"
	"github.com/wardenhq/warden/internal/admin/obs"
	"github.com/wardenhq/warden/internal/admin/service"
	"github.com/wardenhq/warden/internal/admin/store/storetest"
	"github.com/wardenhq/warden/pkg/cryptox"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/jwtx"
)

type testEnv struct {
	router *Router
	st     *storetest.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := storetest.New()

	signer, err := jwtx.NewEphemeralSigner("test-1")
	require.NoError(t, err)
	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(jwtx.NewVerifier(keys, "warden"), "test", st,
		service.NewDBHealth(st, nil),
		httpx.NewSlidingWindowLimiter(httpx.DefaultRateLimitConfig()),
		obs.NewMetrics(), logger)

	audit := service.NewAuditService(st, nil)
	perms := service.NewPermissionService(st)
	r.TokenService = service.NewTokenService(st, signer, perms, audit,
		mail.NopMailer{}, service.TokenServiceConfig{Issuer: "warden"})
	r.PermissionService = perms
	r.UserService = service.NewUserService(st, audit, mail.NopMailer{})
	r.RoleService = service.NewRoleService(st, audit)
	r.GroupService = service.NewGroupService(st, audit)
	r.DocumentService = service.NewDocumentService(st, nil, audit)
	r.AuditService = audit
	r.ApplyRoutes()

	return &testEnv{router: r, st: st}
}

func (e *testEnv) seedUser(t *testing.T, email, password, roleName string) idx.ID {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := &domain.User{ID: idx.New(), Email: email, PasswordHash: hash, Active: true}
	e.st.UsersByID[u.ID] = u

	role := &domain.Role{ID: idx.New(), Name: roleName, Domains: []string{"cms"}, Active: true}
	e.st.RolesByID[role.ID] = role
	e.st.UserRoles[u.ID] = []idx.ID{role.ID}
	return u.ID
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := e.do(http.MethodPost, "/v1/auth/login", "",
		map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair service.TokenPair
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pair))
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root@example.com", "correct horse battery", httpx.RoleSuperAdmin)

	token := env.login(t, "root@example.com", "correct horse battery")

	rec := env.do(http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me meResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	require.Equal(t, "root@example.com", me.Email)
	require.Contains(t, me.Roles, httpx.RoleSuperAdmin)
	require.True(t, me.IsSuperAdmin)
	require.Equal(t, []string{"cms"}, me.Domains)
}

func TestPolicyEnforcementOnUserListing(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root@example.com", "correct horse battery", httpx.RoleSuperAdmin)
	env.seedUser(t, "viewer@example.com", "another passphrase!", "viewer")

	// No credentials at all.
	rec := env.do(http.MethodGet, "/v1/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authenticated but underprivileged.
	viewer := env.login(t, "viewer@example.com", "another passphrase!")
	rec = env.do(http.MethodGet, "/v1/users", viewer, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Super-administrator sees the listing.
	admin := env.login(t, "root@example.com", "correct horse battery")
	rec = env.do(http.MethodGet, "/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleChangeTakesEffectNextRequest(t *testing.T) {
	env := newTestEnv(t)
	userID := env.seedUser(t, "ops@example.com", "correct horse battery", httpx.RoleAdmin)

	token := env.login(t, "ops@example.com", "correct horse battery")

	rec := env.do(http.MethodGet, "/v1/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deactivate the role behind the live token; the next request already
	// sees the reduced privilege.
	roleID := env.st.UserRoles[userID][0]
	env.st.RolesByID[roleID].Active = false

	rec = env.do(http.MethodGet, "/v1/users", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
