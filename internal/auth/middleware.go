package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/horizon-hrms/horizon-hrms/internal/platform/httpx"
	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
)

// Middleware resolves bearer credentials into request-scoped actors.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// Attach resolves the bearer token, if any, and stores the Actor in the
// request context. Requests without a resolvable actor pass through; guarded
// routes deny them at the permission check.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		actor, _, err := m.Service.Resolve(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrUnauthenticated) && !errors.Is(err, ErrActorNotFound) && m.Logger != nil {
				m.Logger.Error("resolve actor", slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(rbac.ContextWithActor(r.Context(), actor)))
	})
}

// RequireActor rejects requests that did not resolve to an actor.
func (m Middleware) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rbac.ActorFromContext(r.Context()) == nil {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
