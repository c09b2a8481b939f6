package service

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/httpx"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/jwtx"
)

// PermissionService resolves the effective authorization state of a user
// from role and group membership. Resolution is recomputed from fresh store
// reads on every call; nothing is cached, so role and group edits take
// effect on the next request.
type PermissionService struct {
	store store.Store
}

func NewPermissionService(st store.Store) *PermissionService {
	return &PermissionService{store: st}
}

// resolution is the flattened authorization state of one user: the user
// record itself (for its direct domain grants) plus active roles and
// active groups. Inactive entries contribute nothing.
type resolution struct {
	user   *domain.User
	roles  []*domain.Role
	groups []*domain.Group
}

func (s *PermissionService) resolve(ctx context.Context, userID idx.ID) (resolution, error) {
	var res resolution

	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("load user: %w", err)
	}
	res.user = u

	roleIDs, err := s.store.Users().RoleIDs(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("resolve roles: %w", err)
	}
	groupIDs, err := s.store.Users().GroupIDs(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("resolve groups: %w", err)
	}

	roles, err := s.store.Roles().GetByIDs(ctx, roleIDs)
	if err != nil {
		return res, fmt.Errorf("load roles: %w", err)
	}
	groups, err := s.store.Groups().GetByIDs(ctx, groupIDs)
	if err != nil {
		return res, fmt.Errorf("load groups: %w", err)
	}

	for _, r := range roles {
		if r.Active {
			res.roles = append(res.roles, r)
		}
	}
	for _, g := range groups {
		if g.Active {
			res.groups = append(res.groups, g)
		}
	}
	return res, nil
}

// ResolveDomains returns the union of domain scopes across the user's
// direct grants and active roles and groups. If any contributor carries the "all" sentinel
// the result is exactly ["all"]; individual domain keys are dropped since
// the sentinel subsumes them.
func (s *PermissionService) ResolveDomains(ctx context.Context, userID idx.ID) ([]string, error) {
	res, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return mergeDomains(res), nil
}

// ResolvePermissions returns the deduplicated union of permission strings
// across the user's active roles and groups.
func (s *PermissionService) ResolvePermissions(ctx context.Context, userID idx.ID) ([]string, error) {
	res, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, r := range res.roles {
		for _, p := range r.Permissions {
			set[p] = struct{}{}
		}
	}
	for _, g := range res.groups {
		for _, p := range g.Permissions {
			set[p] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

// ResolveCustomers returns the deduplicated union of customer scopes.
// Only groups carry customers; roles never contribute here.
func (s *PermissionService) ResolveCustomers(ctx context.Context, userID idx.ID) ([]string, error) {
	res, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for _, g := range res.groups {
		for _, c := range g.Customers {
			set[c] = struct{}{}
		}
	}
	return sortedKeys(set), nil
}

// ResolveIdentity builds the per-request Identity from verified claims plus
// fresh membership reads. Implements httpx.IdentityResolver.
func (s *PermissionService) ResolveIdentity(ctx context.Context, claims jwtx.Claims) (httpx.Identity, error) {
	userID, err := idx.Parse(claims.Subject)
	if err != nil {
		return httpx.Identity{}, fmt.Errorf("parse subject: %w", err)
	}

	res, err := s.resolve(ctx, userID)
	if err != nil {
		return httpx.Identity{}, err
	}

	roleNames := make([]string, 0, len(res.roles))
	for _, r := range res.roles {
		roleNames = append(roleNames, r.Name)
	}
	groupNames := make([]string, 0, len(res.groups))
	for _, g := range res.groups {
		groupNames = append(groupNames, g.Name)
	}
	sort.Strings(roleNames)
	sort.Strings(groupNames)

	return httpx.Identity{
		UserID:  claims.Subject,
		Email:   claims.Email,
		Roles:   roleNames,
		Groups:  groupNames,
		Domains: mergeDomains(res),
	}, nil
}

// roleNames returns the active role names for a user, for embedding into
// access token claims. Claims are advisory only; authorization always
// re-resolves from the store.
func (s *PermissionService) roleNames(ctx context.Context, userID idx.ID) ([]string, error) {
	res, err := s.resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.roles))
	for _, r := range res.roles {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names, nil
}

// mergeDomains unions domain scopes, collapsing to the "all" sentinel the
// moment any contributor carries it. The user's direct grants count as a
// contributor alongside roles and groups.
func mergeDomains(res resolution) []string {
	set := make(map[string]struct{})
	if res.user != nil {
		if slices.Contains(res.user.Domains, httpx.DomainAll) {
			return []string{httpx.DomainAll}
		}
		for _, d := range res.user.Domains {
			set[d] = struct{}{}
		}
	}
	for _, r := range res.roles {
		if slices.Contains(r.Domains, httpx.DomainAll) {
			return []string{httpx.DomainAll}
		}
		for _, d := range r.Domains {
			set[d] = struct{}{}
		}
	}
	for _, g := range res.groups {
		if slices.Contains(g.Domains, httpx.DomainAll) {
			return []string{httpx.DomainAll}
		}
		for _, d := range g.Domains {
			set[d] = struct{}{}
		}
	}
	return sortedKeys(set)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
