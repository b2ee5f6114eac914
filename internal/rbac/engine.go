package rbac

import (
	"context"
	"errors"
	"log/slog"
)

// CatalogStore resolves capability references against the catalog.
type CatalogStore interface {
	ResolveCapability(ctx context.Context, ref Ref) (ResolvedCapability, error)
}

// GrantStore answers existence queries over the three grant relations.
type GrantStore interface {
	HasDirectGrant(ctx context.Context, userID, capabilityID int64) (bool, error)
	RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error)
	AnyRoleHasCapability(ctx context.Context, roleIDs []int64, capabilityID int64) (bool, error)
}

// DecisionRecorder observes authorization outcomes, typically for metrics.
type DecisionRecorder interface {
	RecordDecision(allowed bool, reason string)
}

// Engine evaluates whether an actor may invoke a capability. It only reads
// from the catalog and grant stores; grants are re-read on every call so a
// revocation takes effect on the next request.
type Engine struct {
	catalog  CatalogStore
	grants   GrantStore
	logger   *slog.Logger
	recorder DecisionRecorder
}

// NewEngine constructs an Engine.
func NewEngine(catalog CatalogStore, grants GrantStore, logger *slog.Logger, recorder DecisionRecorder) *Engine {
	return &Engine{catalog: catalog, grants: grants, logger: logger, recorder: recorder}
}

// Authorize decides whether actor may invoke the referenced capability.
// Access is granted when the actor is active and is chief of the capability's
// module, holds a direct grant, or holds any role bound to the capability.
// Storage failures always deny, never allow.
func (e *Engine) Authorize(ctx context.Context, actor *Actor, ref Ref) Decision {
	return e.record(e.authorize(ctx, actor, ref))
}

func (e *Engine) authorize(ctx context.Context, actor *Actor, ref Ref) Decision {
	if actor == nil || actor.ID == 0 {
		return deny(ReasonUnauthenticated, "authentication required")
	}

	capability, err := e.catalog.ResolveCapability(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return deny(ReasonCapabilityNotFound, "unknown capability")
		}
		return e.storageDeny(ctx, "resolve capability", ref, err)
	}

	if !actor.IsActive {
		return deny(ReasonActorInactive, "account deactivated")
	}

	if capability.ModuleChiefID != nil && *capability.ModuleChiefID == actor.ID {
		return allow()
	}

	direct, err := e.grants.HasDirectGrant(ctx, actor.ID, capability.ID)
	if err != nil {
		return e.storageDeny(ctx, "direct grant lookup", ref, err)
	}
	if direct {
		return allow()
	}

	roleIDs, err := e.grants.RoleIDsForUser(ctx, actor.ID)
	if err != nil {
		return e.storageDeny(ctx, "role lookup", ref, err)
	}
	if len(roleIDs) > 0 {
		viaRole, err := e.grants.AnyRoleHasCapability(ctx, roleIDs, capability.ID)
		if err != nil {
			return e.storageDeny(ctx, "role grant lookup", ref, err)
		}
		if viaRole {
			return allow()
		}
	}

	return deny(ReasonAccessDenied, "access denied")
}

func (e *Engine) storageDeny(ctx context.Context, op string, ref Ref, err error) Decision {
	if e.logger != nil {
		e.logger.ErrorContext(ctx, "authorize storage failure",
			slog.String("op", op),
			slog.String("capability", ref.String()),
			slog.Any("error", err))
	}
	return deny(ReasonStorageUnavailable, "authorization check unavailable")
}

func (e *Engine) record(d Decision) Decision {
	if e.recorder != nil {
		e.recorder.RecordDecision(d.Allowed, string(d.Reason))
	}
	return d
}
