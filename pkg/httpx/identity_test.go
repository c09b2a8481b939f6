package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRolePredicates(t *testing.T) {
	tests := []struct {
		roles        []string
		admin        bool
		superAdmin   bool
		groupAdmin   bool
		adminOrEedit bool
	}{
		{nil, false, false, false, false},
		{[]string{}, false, false, false, false},
		{[]string{"viewer"}, false, false, false, false},
		{[]string{RoleEditor}, false, false, false, true},
		{[]string{RoleGroupEditor}, false, false, true, true},
		{[]string{RoleGroupAdmin}, false, false, true, true},
		{[]string{RoleAdmin}, true, false, true, true},
		{[]string{RoleSuperAdmin}, true, true, true, true},
		{[]string{"viewer", RoleAdmin}, true, false, true, true},
	}

	for _, tt := range tests {
		require.Equal(t, tt.admin, IsAdmin(tt.roles), "IsAdmin(%v)", tt.roles)
		require.Equal(t, tt.superAdmin, IsSuperAdmin(tt.roles), "IsSuperAdmin(%v)", tt.roles)
		require.Equal(t, tt.groupAdmin, IsGroupAdmin(tt.roles), "IsGroupAdmin(%v)", tt.roles)
		require.Equal(t, tt.adminOrEedit, IsAdminOrEditor(tt.roles), "IsAdminOrEditor(%v)", tt.roles)
	}
}

func TestHasAllDomains(t *testing.T) {
	require.True(t, Identity{Domains: []string{DomainAll}}.HasAllDomains())
	require.False(t, Identity{Domains: []string{"billing", "crm"}}.HasAllDomains())
	require.False(t, Identity{}.HasAllDomains())
}

func TestRequireRoleMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	do := func(mw Middleware, identity *Identity) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if identity != nil {
			r = r.WithContext(context.WithValue(r.Context(), CtxKeyIdentity, *identity))
		}
		w := httptest.NewRecorder()
		mw(next).ServeHTTP(w, r)
		return w.Code
	}

	// No identity at all yields 401, not 403.
	require.Equal(t, http.StatusUnauthorized, do(RequireAdmin(), nil))

	viewer := &Identity{UserID: "u1", Roles: []string{"viewer"}}
	admin := &Identity{UserID: "u2", Roles: []string{RoleAdmin}}
	super := &Identity{UserID: "u3", Roles: []string{RoleSuperAdmin}}
	empty := &Identity{UserID: "u4"}

	require.Equal(t, http.StatusForbidden, do(RequireAdmin(), viewer))
	require.Equal(t, http.StatusForbidden, do(RequireAdmin(), empty))
	require.Equal(t, http.StatusOK, do(RequireAdmin(), admin))

	require.Equal(t, http.StatusForbidden, do(RequireSuperAdmin(), admin))
	require.Equal(t, http.StatusOK, do(RequireSuperAdmin(), super))

	editor := &Identity{UserID: "u5", Roles: []string{RoleEditor}}
	require.Equal(t, http.StatusOK, do(RequireAdminOrEditor(), editor))
	require.Equal(t, http.StatusForbidden, do(RequireGroupAdmin(), editor))
}
