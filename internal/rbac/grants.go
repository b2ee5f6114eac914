package rbac

import (
	"context"
	"log/slog"
	"strconv"
)

// GrantAdminStore persists the three grant relations. Every insert is
// idempotent at the storage layer; the boolean result reports whether a row
// was actually created or removed.
type GrantAdminStore interface {
	InsertUserCapability(ctx context.Context, grant UserCapabilityGrant) (bool, error)
	DeleteUserCapability(ctx context.Context, userID, capabilityID int64) (bool, error)
	InsertUserRole(ctx context.Context, grant UserRoleGrant) (bool, error)
	DeleteUserRole(ctx context.Context, userID, roleID int64, moduleID *int64) (bool, error)
	InsertRoleCapability(ctx context.Context, roleID, capabilityID int64) (bool, error)
	DeleteRoleCapability(ctx context.Context, roleID, capabilityID int64) (bool, error)
	ListUserCapabilities(ctx context.Context, userID int64) ([]UserCapabilityGrant, error)
	ListRoleCapabilities(ctx context.Context, roleID int64) ([]int64, error)
}

// BulkBinder is implemented by stores that can apply a capability batch
// atomically. Stores without it get the bindings inserted one by one.
type BulkBinder interface {
	BulkInsertRoleCapabilities(ctx context.Context, roleID int64, capabilityIDs []int64) (BulkBindResult, error)
}

// AuditSink receives grant mutation events for asynchronous recording.
// Failures are logged and never affect the grant operation.
type AuditSink interface {
	GrantChanged(ctx context.Context, action string, actorID int64, meta map[string]any) error
}

// Grants orchestrates the grant administration operations.
type Grants struct {
	store  GrantAdminStore
	logger *slog.Logger
	audit  AuditSink
}

// NewGrants constructs a Grants service.
func NewGrants(store GrantAdminStore, logger *slog.Logger, audit AuditSink) *Grants {
	return &Grants{store: store, logger: logger, audit: audit}
}

// GrantCapabilityToUser records a direct grant. Granting an existing pair is
// a success no-op.
func (g *Grants) GrantCapabilityToUser(ctx context.Context, grant UserCapabilityGrant) (GrantResult, error) {
	created, err := g.store.InsertUserCapability(ctx, grant)
	if err != nil {
		return GrantResult{}, err
	}
	if created {
		g.notify(ctx, "grant.capability", grant.UserID, map[string]any{
			"capability_id": grant.CapabilityID,
			"granted_by":    grant.GrantedBy,
		})
	}
	return GrantResult{Created: created}, nil
}

// RevokeCapabilityFromUser removes a direct grant. Revoking a missing pair is
// a success no-op.
func (g *Grants) RevokeCapabilityFromUser(ctx context.Context, userID, capabilityID int64) (RevokeResult, error) {
	removed, err := g.store.DeleteUserCapability(ctx, userID, capabilityID)
	if err != nil {
		return RevokeResult{}, err
	}
	if removed {
		g.notify(ctx, "revoke.capability", userID, map[string]any{"capability_id": capabilityID})
	}
	return RevokeResult{Removed: removed}, nil
}

// AssignRoleToUser assigns a role, optionally scoped to a module.
func (g *Grants) AssignRoleToUser(ctx context.Context, grant UserRoleGrant) (GrantResult, error) {
	created, err := g.store.InsertUserRole(ctx, grant)
	if err != nil {
		return GrantResult{}, err
	}
	if created {
		meta := map[string]any{"role_id": grant.RoleID, "assigned_by": grant.AssignedBy}
		if grant.ModuleID != nil {
			meta["module_id"] = *grant.ModuleID
		}
		g.notify(ctx, "grant.role", grant.UserID, meta)
	}
	return GrantResult{Created: created}, nil
}

// RevokeRoleFromUser removes role assignments for the pair. A nil moduleID
// removes every module scope.
func (g *Grants) RevokeRoleFromUser(ctx context.Context, userID, roleID int64, moduleID *int64) (RevokeResult, error) {
	removed, err := g.store.DeleteUserRole(ctx, userID, roleID, moduleID)
	if err != nil {
		return RevokeResult{}, err
	}
	if removed {
		g.notify(ctx, "revoke.role", userID, map[string]any{"role_id": roleID})
	}
	return RevokeResult{Removed: removed}, nil
}

// BindCapabilityToRole adds a capability to a role bundle.
func (g *Grants) BindCapabilityToRole(ctx context.Context, roleID, capabilityID int64) (GrantResult, error) {
	created, err := g.store.InsertRoleCapability(ctx, roleID, capabilityID)
	if err != nil {
		return GrantResult{}, err
	}
	if created {
		g.notify(ctx, "bind.role_capability", 0, map[string]any{
			"role_id":       roleID,
			"capability_id": capabilityID,
		})
	}
	return GrantResult{Created: created}, nil
}

// UnbindCapabilityFromRole removes a capability from a role bundle.
func (g *Grants) UnbindCapabilityFromRole(ctx context.Context, roleID, capabilityID int64) (RevokeResult, error) {
	removed, err := g.store.DeleteRoleCapability(ctx, roleID, capabilityID)
	if err != nil {
		return RevokeResult{}, err
	}
	if removed {
		g.notify(ctx, "unbind.role_capability", 0, map[string]any{
			"role_id":       roleID,
			"capability_id": capabilityID,
		})
	}
	return RevokeResult{Removed: removed}, nil
}

// BindCapabilitiesToRole binds many capabilities to a role, reporting how
// many bindings were created and how many already existed. Partial overlap
// with existing bindings is not an error.
func (g *Grants) BindCapabilitiesToRole(ctx context.Context, roleID int64, capabilityIDs []int64) (BulkBindResult, error) {
	var result BulkBindResult
	if binder, ok := g.store.(BulkBinder); ok {
		var err error
		result, err = binder.BulkInsertRoleCapabilities(ctx, roleID, capabilityIDs)
		if err != nil {
			return BulkBindResult{}, err
		}
	} else {
		for _, capabilityID := range capabilityIDs {
			created, err := g.store.InsertRoleCapability(ctx, roleID, capabilityID)
			if err != nil {
				return result, err
			}
			if created {
				result.Created++
			} else {
				result.Existing++
			}
		}
	}
	if result.Created > 0 {
		g.notify(ctx, "bind.role_capability.bulk", 0, map[string]any{
			"role_id": roleID,
			"created": result.Created,
		})
	}
	return result, nil
}

// ListUserCapabilities returns the direct grants held by a user.
func (g *Grants) ListUserCapabilities(ctx context.Context, userID int64) ([]UserCapabilityGrant, error) {
	return g.store.ListUserCapabilities(ctx, userID)
}

// ListRoleCapabilities returns the capability IDs bound to a role.
func (g *Grants) ListRoleCapabilities(ctx context.Context, roleID int64) ([]int64, error) {
	return g.store.ListRoleCapabilities(ctx, roleID)
}

func (g *Grants) notify(ctx context.Context, action string, subjectID int64, meta map[string]any) {
	if g.audit == nil {
		return
	}
	if err := g.audit.GrantChanged(ctx, action, subjectID, meta); err != nil && g.logger != nil {
		g.logger.Warn("audit enqueue failed",
			slog.String("action", action),
			slog.String("subject", strconv.FormatInt(subjectID, 10)),
			slog.Any("error", err))
	}
}
