package domain

import (
	"time"

	"github.com/wardenhq/warden/pkg/idx"
)

// Role is a named bundle of permissions and domain scopes. Roles are
// assigned to users directly; an inactive role contributes nothing to
// resolution regardless of membership. Priority orders roles for display
// and tie-breaking; it carries no weight in resolution, which is a pure
// union.
type Role struct {
	ID          idx.ID
	Name        string
	Description string
	Permissions []string
	Domains     []string
	Priority    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Group is a membership collection carrying its own permissions, domain
// scopes, and customer scopes. Groups and roles contribute to resolution
// identically except that only groups carry customers.
type Group struct {
	ID          idx.ID
	Name        string
	Description string
	Permissions []string
	Domains     []string
	Customers   []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
