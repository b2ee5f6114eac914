package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/horizon-hrms/horizon-hrms/internal/platform/httpx"
)

// DenialSink receives denied authorization attempts for asynchronous audit
// recording.
type DenialSink interface {
	AccessDenied(ctx context.Context, actorID int64, capability, reason string) error
}

// Middleware guards HTTP routes with the permission engine.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
	Audit  DenialSink
}

// RequireCapability guards a route by capability path.
func (m Middleware) RequireCapability(path string) func(http.Handler) http.Handler {
	return m.require(RefByPath(path))
}

// RequireCapabilityID guards a route by capability ID.
func (m Middleware) RequireCapabilityID(id int64) func(http.Handler) http.Handler {
	return m.require(RefByID(id))
}

func (m Middleware) require(ref Ref) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			decision := m.Engine.Authorize(r.Context(), actor, ref)
			if decision.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			m.recordDenial(r, actor, ref, decision)
			respondDecision(w, decision)
		})
	}
}

func (m Middleware) recordDenial(r *http.Request, actor *Actor, ref Ref, decision Decision) {
	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}
	if m.Audit != nil {
		if err := m.Audit.AccessDenied(r.Context(), actorID, ref.String(), string(decision.Reason)); err != nil && m.Logger != nil {
			m.Logger.Warn("denial audit enqueue failed", slog.Any("error", err))
		}
	}
	if m.Logger != nil {
		m.Logger.InfoContext(r.Context(), "access denied",
			slog.Int64("actor_id", actorID),
			slog.String("capability", ref.String()),
			slog.String("reason", string(decision.Reason)))
	}
}

func respondDecision(w http.ResponseWriter, decision Decision) {
	switch decision.Reason {
	case ReasonUnauthenticated:
		httpx.Problem(w, http.StatusUnauthorized, string(decision.Reason), decision.Message)
	case ReasonCapabilityNotFound:
		httpx.Problem(w, http.StatusNotFound, string(decision.Reason), decision.Message)
	case ReasonStorageUnavailable:
		httpx.Problem(w, http.StatusServiceUnavailable, string(decision.Reason), decision.Message)
	default:
		httpx.Problem(w, http.StatusForbidden, string(decision.Reason), decision.Message)
	}
}
