package httpx

import (
	"net/http"
	"slices"
)

// Well-known role names. Authorization policy is expressed entirely in
// terms of these; per-user grants do not exist.
const (
	RoleSuperAdmin  = "super-administrator"
	RoleAdmin       = "administrator"
	RoleGroupAdmin  = "group-administrator"
	RoleGroupEditor = "group-editor"
	RoleEditor      = "editor"
)

// DomainAll is the sentinel domain granting access to every domain key.
const DomainAll = "all"

// Identity is the authenticated caller for the lifetime of one request.
// It is rebuilt from token claims and fresh store reads on every request;
// role or group membership changes take effect on the next request.
type Identity struct {
	UserID  string   `json:"user_id"`
	Email   string   `json:"email"`
	Roles   []string `json:"roles"`
	Groups  []string `json:"groups"`
	Domains []string `json:"domains"`
}

// HasAllDomains reports whether the identity's resolved domain set carries
// the "all" sentinel.
func (id Identity) HasAllDomains() bool {
	return slices.Contains(id.Domains, DomainAll)
}

// IsAdmin passes iff the role set intersects {administrator, super-administrator}.
func IsAdmin(roles []string) bool {
	return hasAny(roles, RoleAdmin, RoleSuperAdmin)
}

// IsSuperAdmin passes iff the role set contains super-administrator.
func IsSuperAdmin(roles []string) bool {
	return hasAny(roles, RoleSuperAdmin)
}

// IsGroupAdmin passes for group-level administrators and above.
func IsGroupAdmin(roles []string) bool {
	return hasAny(roles, RoleGroupAdmin, RoleGroupEditor, RoleAdmin, RoleSuperAdmin)
}

// IsAdminOrEditor passes for anyone allowed to modify content.
func IsAdminOrEditor(roles []string) bool {
	return hasAny(roles, RoleEditor, RoleGroupAdmin, RoleGroupEditor, RoleAdmin, RoleSuperAdmin)
}

// hasAny reports whether roles intersects want. An empty role set fails
// every policy check.
func hasAny(roles []string, want ...string) bool {
	for _, r := range roles {
		if slices.Contains(want, r) {
			return true
		}
	}
	return false
}

// RequireAdmin rejects with 403 unless the caller is an administrator.
func RequireAdmin() Middleware { return requireRoles(IsAdmin) }

// RequireSuperAdmin rejects with 403 unless the caller is a super-administrator.
func RequireSuperAdmin() Middleware { return requireRoles(IsSuperAdmin) }

// RequireGroupAdmin rejects with 403 unless the caller administers a group
// or holds a broader admin role.
func RequireGroupAdmin() Middleware { return requireRoles(IsGroupAdmin) }

// RequireAdminOrEditor rejects with 403 unless the caller may edit content.
func RequireAdminOrEditor() Middleware { return requireRoles(IsAdminOrEditor) }

// requireRoles enforces a role predicate against the authenticated identity.
// Forbidden is distinct from unauthenticated: here the identity is known,
// the privilege is insufficient.
func requireRoles(allowed func([]string) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthenticated", "missing credentials")
				return
			}

			if !allowed(id.Roles) {
				WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
