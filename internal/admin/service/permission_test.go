package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/store/storetest"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/jwtx"
)

func seedRole(st *storetest.Store, name string, active bool, perms, domains []string) idx.ID {
	r := &domain.Role{
		ID:          idx.New(),
		Name:        name,
		Permissions: perms,
		Domains:     domains,
		Active:      active,
	}
	st.RolesByID[r.ID] = r
	return r.ID
}

func seedGroup(st *storetest.Store, name string, active bool, perms, domains, customers []string) idx.ID {
	g := &domain.Group{
		ID:          idx.New(),
		Name:        name,
		Permissions: perms,
		Domains:     domains,
		Customers:   customers,
		Active:      active,
	}
	st.GroupsByID[g.ID] = g
	return g.ID
}

func seedUser(st *storetest.Store, email string) idx.ID {
	u := &domain.User{
		ID:     idx.New(),
		Email:  email,
		Active: true,
	}
	st.UsersByID[u.ID] = u
	return u.ID
}

func TestResolvePermissionsUnionsRolesAndGroups(t *testing.T) {
	st := storetest.New()
	svc := NewPermissionService(st)

	userID := seedUser(st, "ops@example.com")
	roleID := seedRole(st, "editor", true, []string{"content.write", "content.read"}, []string{"cms"})
	groupID := seedGroup(st, "support", true, []string{"tickets.read", "content.read"}, []string{"helpdesk"}, nil)
	st.UserRoles[userID] = []idx.ID{roleID}
	st.UserGroups[userID] = []idx.ID{groupID}

	perms, err := svc.ResolvePermissions(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"content.read", "content.write", "tickets.read"}, perms)
}

func TestResolveExcludesInactiveContributors(t *testing.T) {
	st := storetest.New()
	svc := NewPermissionService(st)

	userID := seedUser(st, "ops@example.com")
	activeRole := seedRole(st, "viewer", true, []string{"content.read"}, []string{"cms"})
	inactiveRole := seedRole(st, "legacy", false, []string{"legacy.everything"}, []string{"legacy"})
	inactiveGroup := seedGroup(st, "retired", false, []string{"retired.perm"}, []string{"retired"}, []string{"acme"})
	st.UserRoles[userID] = []idx.ID{activeRole, inactiveRole}
	st.UserGroups[userID] = []idx.ID{inactiveGroup}

	perms, err := svc.ResolvePermissions(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"content.read"}, perms)

	domains, err := svc.ResolveDomains(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"cms"}, domains)

	customers, err := svc.ResolveCustomers(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, customers)
}

func TestResolveDomainsAllSentinelShortCircuits(t *testing.T) {
	st := storetest.New()
	svc := NewPermissionService(st)

	userID := seedUser(st, "ops@example.com")
	st.UserRoles[userID] = []idx.ID{
		seedRole(st, "super-administrator", true, nil, []string{"all"}),
		seedRole(st, "viewer", true, nil, []string{"cms", "billing"}),
	}

	domains, err := svc.ResolveDomains(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"all"}, domains)
}

func TestResolveDomainsIncludesDirectGrants(t *testing.T) {
	st := storetest.New()
	svc := NewPermissionService(st)

	userID := seedUser(st, "ops@example.com")
	st.UsersByID[userID].Domains = []string{"billing"}
	st.UserRoles[userID] = []idx.ID{
		seedRole(st, "viewer", true, nil, []string{"cms"}),
	}

	domains, err := svc.ResolveDomains(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"billing", "cms"}, domains)

	// A direct "all" grant short-circuits like any other contributor.
	st.UsersByID[userID].Domains = []string{"all"}
	domains, err = svc.ResolveDomains(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"all"}, domains)
}

func TestResolveCustomersComesOnlyFromGroups(t *testing.T) {
	st := storetest.New()
	svc := NewPermissionService(st)

	userID := seedUser(st, "ops@example.com")
	st.UserRoles[userID] = []idx.ID{
		seedRole(st, "admin", true, []string{"everything"}, []string{"all"}),
	}
	st.UserGroups[userID] = []idx.ID{
		seedGroup(st, "east", true, nil, nil, []string{"acme", "globex"}),
		seedGroup(st, "west", true, nil, nil, []string{"acme", "initech"}),
	}

	customers, err := svc.ResolveCustomers(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, []string{"acme", "globex", "initech"}, customers)
}

func TestResolveIdentityReflectsCurrentMembership(t *testing.T) {
	st := storetest.New()
	svc := NewPermissionService(st)

	userID := seedUser(st, "ops@example.com")
	roleID := seedRole(st, "administrator", true, nil, []string{"cms"})
	st.UserRoles[userID] = []idx.ID{roleID}

	claims := jwtx.NewAccessClaims(userID.String(), "sess-1", "ops@example.com",
		[]string{"administrator"}, 15*time.Minute, "warden", time.Now().UTC())

	id, err := svc.ResolveIdentity(context.Background(), claims)
	require.NoError(t, err)
	require.Equal(t, []string{"administrator"}, id.Roles)

	// Deactivate the role: the very next resolution drops it even though
	// the token still claims it.
	st.RolesByID[roleID].Active = false
	id, err = svc.ResolveIdentity(context.Background(), claims)
	require.NoError(t, err)
	require.Empty(t, id.Roles)
	require.Empty(t, id.Domains)
}

func TestResolveEmptyMembership(t *testing.T) {
	st := storetest.New()
	svc := NewPermissionService(st)

	userID := seedUser(st, "nobody@example.com")

	perms, err := svc.ResolvePermissions(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, perms)

	domains, err := svc.ResolveDomains(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, domains)
}
