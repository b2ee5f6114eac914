package catalog

import (
	"errors"
	"time"
)

// Module is a top-level organizational grouping of capabilities. A module
// may designate a chief user who implicitly holds every capability in it.
type Module struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	ChiefID   *int64    `json:"chief_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Capability is a single actionable permission unit scoped to one module.
// Its path is unique across the whole catalog, not just within its module.
type Capability struct {
	ID          int64     `json:"id"`
	ModuleID    int64     `json:"module_id"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Position    int       `json:"position"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("catalog: not found")
	// ErrDuplicate indicates a name or path collision.
	ErrDuplicate = errors.New("catalog: duplicate")
	// ErrChiefNotFound indicates the designated chief user does not exist.
	ErrChiefNotFound = errors.New("catalog: chief user not found")
	// ErrChiefInactive indicates the designated chief user is deactivated.
	ErrChiefInactive = errors.New("catalog: chief user inactive")
)
