package membership

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/downtowncxsh/xplx-access-bot/apperr"
)

// Reconciler converts a resolved tier into an exclusive role state: after a
// successful grant the member holds exactly the base role plus the target
// tier role. Roles are added before the complement is removed so a member is
// never transiently without an access role; the brief two-tier window is
// harmless because tier roles gate visibility additively.
type Reconciler struct {
	Platform  Platform
	BaseRole  string
	TierRoles []string
	Logger    *logrus.Logger
}

func NewReconciler(platform Platform, baseRole string, tierRoles []string, logger *logrus.Logger) *Reconciler {
	return &Reconciler{Platform: platform, BaseRole: baseRole, TierRoles: tierRoles, Logger: logger}
}

// requireRole resolves a role that must exist on the platform. A miss is a
// fleet misconfiguration, not a transient fault, so it surfaces as a loud
// role_config error and is never retried.
func (r *Reconciler) requireRole(ctx context.Context, name string) (*Role, error) {
	role, err := r.Platform.LookupRoleByName(ctx, name)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrPlatform, "role lookup failed")
	}
	if role == nil {
		r.Logger.WithFields(logrus.Fields{
			"role": name,
		}).Error("configured role missing on platform")
		return nil, apperr.New(apperr.ErrRoleConfig.Code, apperr.ErrRoleConfig.Status, "role not found on platform: "+name)
	}
	return role, nil
}

func (r *Reconciler) ensureRole(ctx context.Context, member *Member, role *Role) error {
	if member.HasRole(role.ID) {
		return nil
	}
	if err := r.Platform.AddRole(ctx, member.ID, role.ID); err != nil {
		return apperr.Wrap(err, apperr.ErrPlatform, "add role "+role.Name)
	}
	return nil
}

// heldTierRoles resolves every configured tier role the member currently
// holds, except the one named by keep. Tier roles deleted from the platform
// cannot be held, so lookup misses here are skipped with a warning rather
// than treated as fatal.
func (r *Reconciler) heldTierRoles(ctx context.Context, member *Member, keep string) ([]string, error) {
	var held []string
	for _, name := range r.TierRoles {
		if name == keep {
			continue
		}
		role, err := r.Platform.LookupRoleByName(ctx, name)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrPlatform, "role lookup failed")
		}
		if role == nil {
			r.Logger.WithFields(logrus.Fields{
				"role": name,
			}).Warn("configured tier role absent on platform, skipping removal")
			continue
		}
		if member.HasRole(role.ID) {
			held = append(held, role.ID)
		}
	}
	return held, nil
}

// GrantExclusive leaves the member holding exactly {base, target} out of the
// configured role set. Ordering: add base, add target, remove the complement.
func (r *Reconciler) GrantExclusive(ctx context.Context, memberID, targetRole string) error {
	base, err := r.requireRole(ctx, r.BaseRole)
	if err != nil {
		return err
	}
	target, err := r.requireRole(ctx, targetRole)
	if err != nil {
		return err
	}

	member, err := r.Platform.FetchMember(ctx, memberID)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrPlatform, "fetch member")
	}
	if member == nil {
		return apperr.New(apperr.ErrPlatform.Code, apperr.ErrPlatform.Status, "member not found: "+memberID)
	}

	if err := r.ensureRole(ctx, member, base); err != nil {
		return err
	}
	if err := r.ensureRole(ctx, member, target); err != nil {
		return err
	}

	complement, err := r.heldTierRoles(ctx, member, targetRole)
	if err != nil {
		return err
	}
	if len(complement) > 0 {
		if err := r.Platform.RemoveRoles(ctx, memberID, complement); err != nil {
			return apperr.Wrap(err, apperr.ErrPlatform, "remove complement roles")
		}
	}
	return nil
}

// DowngradeToBase is the degenerate grant: base stays, every tier role goes.
func (r *Reconciler) DowngradeToBase(ctx context.Context, memberID string) error {
	base, err := r.requireRole(ctx, r.BaseRole)
	if err != nil {
		return err
	}

	member, err := r.Platform.FetchMember(ctx, memberID)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrPlatform, "fetch member")
	}
	if member == nil {
		return apperr.New(apperr.ErrPlatform.Code, apperr.ErrPlatform.Status, "member not found: "+memberID)
	}

	if err := r.ensureRole(ctx, member, base); err != nil {
		return err
	}

	held, err := r.heldTierRoles(ctx, member, "")
	if err != nil {
		return err
	}
	if len(held) > 0 {
		if err := r.Platform.RemoveRoles(ctx, memberID, held); err != nil {
			return apperr.Wrap(err, apperr.ErrPlatform, "remove tier roles")
		}
	}
	return nil
}
