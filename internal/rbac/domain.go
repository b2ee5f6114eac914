package rbac

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// ErrUnknownReference indicates a grant referencing a missing user, role or
// capability.
var ErrUnknownReference = errors.New("rbac: unknown reference")

// Actor is the authenticated identity evaluated by the permission engine.
// It is produced once per request by the resolver and passed explicitly.
type Actor struct {
	ID               int64
	IsActive         bool
	RoleIDs          []int64
	ChiefOfModuleIDs []int64
}

// Ref identifies a capability either by numeric ID or by its routing path.
type Ref struct {
	ID   int64
	Path string
}

// RefByID builds a capability reference from a catalog ID.
func RefByID(id int64) Ref { return Ref{ID: id} }

// RefByPath builds a capability reference from a routing path.
func RefByPath(path string) Ref { return Ref{Path: path} }

func (r Ref) String() string {
	if r.Path != "" {
		return r.Path
	}
	return fmt.Sprintf("#%d", r.ID)
}

// ResolvedCapability is a capability row joined with its owning module.
type ResolvedCapability struct {
	ID            int64
	Path          string
	ModuleID      int64
	ModuleChiefID *int64
}

// Reason classifies why an authorization decision denied access.
type Reason string

// Deny reasons surfaced to callers. The codes are stable and machine
// checkable; they never reveal which grant path was closest to succeeding.
const (
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonActorInactive      Reason = "actor_inactive"
	ReasonCapabilityNotFound Reason = "capability_not_found"
	ReasonAccessDenied       Reason = "access_denied"
	ReasonStorageUnavailable Reason = "storage_unavailable"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// UserCapabilityGrant is a direct user to capability grant.
type UserCapabilityGrant struct {
	UserID       int64
	CapabilityID int64
	GrantedBy    string
	Note         string
	CreatedAt    time.Time
}

// UserRoleGrant assigns a role to a user, optionally scoped to a module.
type UserRoleGrant struct {
	UserID     int64
	RoleID     int64
	ModuleID   *int64
	AssignedBy string
	Note       string
	CreatedAt  time.Time
}

// RoleCapabilityGrant binds a capability into a role bundle.
type RoleCapabilityGrant struct {
	RoleID       int64
	CapabilityID int64
	CreatedAt    time.Time
}

// GrantResult reports the outcome of an idempotent grant operation.
type GrantResult struct {
	Created bool `json:"created"`
}

// RevokeResult reports the outcome of an idempotent revoke operation.
type RevokeResult struct {
	Removed bool `json:"removed"`
}

// BulkBindResult reports counts for a bulk role to capability binding.
type BulkBindResult struct {
	Created  int `json:"created"`
	Existing int `json:"existing"`
}
