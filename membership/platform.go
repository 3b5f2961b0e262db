// Package membership reconciles entitlement tiers into exclusive role
// grants on the community platform. The Platform interface is the only
// surface the core depends on; the Discord adapter lives behind it.
package membership

import "context"

// Role is a platform role resolved by exact name match.
type Role struct {
	ID   string
	Name string
}

// Member is a live community member with the role IDs they currently hold.
type Member struct {
	ID         string
	DisplayTag string
	RoleIDs    []string
}

// HasRole reports whether the member currently holds the given role.
func (m *Member) HasRole(roleID string) bool {
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Platform is the membership API the reconciler mutates. Role lookups are
// exact, case-sensitive matches against the platform's configured role set.
// FetchMember returns nil (no error) when the member has left.
type Platform interface {
	LookupRoleByName(ctx context.Context, name string) (*Role, error)
	FetchMember(ctx context.Context, memberID string) (*Member, error)
	AddRole(ctx context.Context, memberID, roleID string) error
	RemoveRoles(ctx context.Context, memberID string, roleIDs []string) error
}
