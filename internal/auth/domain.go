package auth

import (
	"errors"
	"time"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	AgentID      *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Resolver failure modes. Token problems of any shape resolve to
// ErrUnauthenticated so callers cannot distinguish a forged token from an
// expired one.
var (
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrActorNotFound   = errors.New("auth: actor not found")
)
