package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
	"github.com/horizon-hrms/horizon-hrms/internal/shared"
)

// Service wraps authentication business rules and actor resolution.
type Service struct {
	repo        Repository
	tokens      *TokenManager
	revocations RevocationStore
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager, revocations RevocationStore) *Service {
	return &Service{repo: repo, tokens: tokens, revocations: revocations}
}

// Authenticate validates email/password credentials and issues a bearer
// token. Deactivated accounts cannot log in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(user.ID, time.Now())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Logout revokes the bearer token for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, raw string) error {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return err
	}
	return s.revocations.Revoke(ctx, claims.JTI, time.Until(claims.ExpiresAt))
}

// Resolve turns a bearer token into an Actor enriched with role membership
// and chief-of module IDs. The active flag is carried on the Actor; blocking
// inactive actors is the permission engine's responsibility so the check is
// enforced in exactly one place.
func (s *Service) Resolve(ctx context.Context, raw string) (*rbac.Actor, *User, error) {
	if raw == "" {
		return nil, nil, ErrUnauthenticated
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}
	if claims.JTI != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.JTI)
		if err != nil {
			return nil, nil, err
		}
		if revoked {
			return nil, nil, ErrUnauthenticated
		}
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, ErrActorNotFound
		}
		return nil, nil, err
	}

	var roleIDs, chiefOf []int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roleIDs, err = s.repo.RoleIDsForUser(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		chiefOf, err = s.repo.ChiefModuleIDs(gctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	actor := &rbac.Actor{
		ID:               user.ID,
		IsActive:         user.IsActive,
		RoleIDs:          roleIDs,
		ChiefOfModuleIDs: chiefOf,
	}
	return actor, user, nil
}
