// Package testutil provides in-memory catalog and grant stores for tests.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/horizon-hrms/horizon-hrms/internal/rbac"
)

// ErrStorageDown simulates a persistence outage.
var ErrStorageDown = errors.New("testutil: storage down")

type moduleRow struct {
	id      int64
	chiefID *int64
}

type capabilityRow struct {
	id       int64
	moduleID int64
	path     string
}

type userRoleKey struct {
	userID   int64
	roleID   int64
	moduleID int64 // zero when unscoped
}

type pair struct {
	a, b int64
}

// AccessFixture is an in-memory implementation of the catalog and grant
// stores. The builder methods return the fixture for chaining.
type AccessFixture struct {
	mu sync.Mutex

	modules      map[int64]moduleRow
	capabilities map[int64]capabilityRow
	byPath       map[string]int64

	userCapabilities map[pair]rbac.UserCapabilityGrant
	userRoles        map[userRoleKey]rbac.UserRoleGrant
	roleCapabilities map[pair]rbac.RoleCapabilityGrant

	// FailStorage makes every store call return ErrStorageDown.
	FailStorage bool
}

// NewAccessFixture builds an empty fixture.
func NewAccessFixture() *AccessFixture {
	return &AccessFixture{
		modules:          make(map[int64]moduleRow),
		capabilities:     make(map[int64]capabilityRow),
		byPath:           make(map[string]int64),
		userCapabilities: make(map[pair]rbac.UserCapabilityGrant),
		userRoles:        make(map[userRoleKey]rbac.UserRoleGrant),
		roleCapabilities: make(map[pair]rbac.RoleCapabilityGrant),
	}
}

// WithModule adds a module; chiefID may be zero for no chief.
func (f *AccessFixture) WithModule(id int64, chiefID int64) *AccessFixture {
	row := moduleRow{id: id}
	if chiefID != 0 {
		row.chiefID = &chiefID
	}
	f.modules[id] = row
	return f
}

// WithCapability adds a capability under a module.
func (f *AccessFixture) WithCapability(id, moduleID int64, path string) *AccessFixture {
	f.capabilities[id] = capabilityRow{id: id, moduleID: moduleID, path: path}
	f.byPath[path] = id
	return f
}

// WithDirectGrant records a user to capability grant.
func (f *AccessFixture) WithDirectGrant(userID, capabilityID int64) *AccessFixture {
	f.userCapabilities[pair{userID, capabilityID}] = rbac.UserCapabilityGrant{
		UserID:       userID,
		CapabilityID: capabilityID,
		CreatedAt:    time.Now(),
	}
	return f
}

// WithUserRole records a role assignment.
func (f *AccessFixture) WithUserRole(userID, roleID int64) *AccessFixture {
	f.userRoles[userRoleKey{userID: userID, roleID: roleID}] = rbac.UserRoleGrant{
		UserID:    userID,
		RoleID:    roleID,
		CreatedAt: time.Now(),
	}
	return f
}

// WithRoleCapability binds a capability into a role.
func (f *AccessFixture) WithRoleCapability(roleID, capabilityID int64) *AccessFixture {
	f.roleCapabilities[pair{roleID, capabilityID}] = rbac.RoleCapabilityGrant{
		RoleID:       roleID,
		CapabilityID: capabilityID,
		CreatedAt:    time.Now(),
	}
	return f
}

func (f *AccessFixture) failed() error {
	if f.FailStorage {
		return ErrStorageDown
	}
	return nil
}

// ResolveCapability implements rbac.CatalogStore.
func (f *AccessFixture) ResolveCapability(ctx context.Context, ref rbac.Ref) (rbac.ResolvedCapability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return rbac.ResolvedCapability{}, err
	}
	id := ref.ID
	if ref.Path != "" {
		var ok bool
		id, ok = f.byPath[ref.Path]
		if !ok {
			return rbac.ResolvedCapability{}, rbac.ErrNotFound
		}
	}
	capability, ok := f.capabilities[id]
	if !ok {
		return rbac.ResolvedCapability{}, rbac.ErrNotFound
	}
	module := f.modules[capability.moduleID]
	return rbac.ResolvedCapability{
		ID:            capability.id,
		Path:          capability.path,
		ModuleID:      capability.moduleID,
		ModuleChiefID: module.chiefID,
	}, nil
}

// HasDirectGrant implements rbac.GrantStore.
func (f *AccessFixture) HasDirectGrant(ctx context.Context, userID, capabilityID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	_, ok := f.userCapabilities[pair{userID, capabilityID}]
	return ok, nil
}

// RoleIDsForUser implements rbac.GrantStore.
func (f *AccessFixture) RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{})
	var ids []int64
	for key := range f.userRoles {
		if key.userID != userID {
			continue
		}
		if _, dup := seen[key.roleID]; dup {
			continue
		}
		seen[key.roleID] = struct{}{}
		ids = append(ids, key.roleID)
	}
	return ids, nil
}

// AnyRoleHasCapability implements rbac.GrantStore.
func (f *AccessFixture) AnyRoleHasCapability(ctx context.Context, roleIDs []int64, capabilityID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	for _, roleID := range roleIDs {
		if _, ok := f.roleCapabilities[pair{roleID, capabilityID}]; ok {
			return true, nil
		}
	}
	return false, nil
}

// InsertUserCapability implements rbac.GrantAdminStore.
func (f *AccessFixture) InsertUserCapability(ctx context.Context, grant rbac.UserCapabilityGrant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	key := pair{grant.UserID, grant.CapabilityID}
	if _, exists := f.userCapabilities[key]; exists {
		return false, nil
	}
	grant.CreatedAt = time.Now()
	f.userCapabilities[key] = grant
	return true, nil
}

// DeleteUserCapability implements rbac.GrantAdminStore.
func (f *AccessFixture) DeleteUserCapability(ctx context.Context, userID, capabilityID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	key := pair{userID, capabilityID}
	if _, exists := f.userCapabilities[key]; !exists {
		return false, nil
	}
	delete(f.userCapabilities, key)
	return true, nil
}

// InsertUserRole implements rbac.GrantAdminStore.
func (f *AccessFixture) InsertUserRole(ctx context.Context, grant rbac.UserRoleGrant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	key := userRoleKey{userID: grant.UserID, roleID: grant.RoleID}
	if grant.ModuleID != nil {
		key.moduleID = *grant.ModuleID
	}
	if _, exists := f.userRoles[key]; exists {
		return false, nil
	}
	grant.CreatedAt = time.Now()
	f.userRoles[key] = grant
	return true, nil
}

// DeleteUserRole implements rbac.GrantAdminStore.
func (f *AccessFixture) DeleteUserRole(ctx context.Context, userID, roleID int64, moduleID *int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	removed := false
	for key := range f.userRoles {
		if key.userID != userID || key.roleID != roleID {
			continue
		}
		if moduleID != nil && key.moduleID != *moduleID {
			continue
		}
		delete(f.userRoles, key)
		removed = true
	}
	return removed, nil
}

// InsertRoleCapability implements rbac.GrantAdminStore.
func (f *AccessFixture) InsertRoleCapability(ctx context.Context, roleID, capabilityID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	key := pair{roleID, capabilityID}
	if _, exists := f.roleCapabilities[key]; exists {
		return false, nil
	}
	f.roleCapabilities[key] = rbac.RoleCapabilityGrant{RoleID: roleID, CapabilityID: capabilityID, CreatedAt: time.Now()}
	return true, nil
}

// DeleteRoleCapability implements rbac.GrantAdminStore.
func (f *AccessFixture) DeleteRoleCapability(ctx context.Context, roleID, capabilityID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return false, err
	}
	key := pair{roleID, capabilityID}
	if _, exists := f.roleCapabilities[key]; !exists {
		return false, nil
	}
	delete(f.roleCapabilities, key)
	return true, nil
}

// ListUserCapabilities implements rbac.GrantAdminStore.
func (f *AccessFixture) ListUserCapabilities(ctx context.Context, userID int64) ([]rbac.UserCapabilityGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return nil, err
	}
	var grants []rbac.UserCapabilityGrant
	for key, grant := range f.userCapabilities {
		if key.a == userID {
			grants = append(grants, grant)
		}
	}
	return grants, nil
}

// ListRoleCapabilities implements rbac.GrantAdminStore.
func (f *AccessFixture) ListRoleCapabilities(ctx context.Context, roleID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failed(); err != nil {
		return nil, err
	}
	var ids []int64
	for key := range f.roleCapabilities {
		if key.a == roleID {
			ids = append(ids, key.b)
		}
	}
	return ids, nil
}

var (
	_ rbac.CatalogStore    = (*AccessFixture)(nil)
	_ rbac.GrantStore      = (*AccessFixture)(nil)
	_ rbac.GrantAdminStore = (*AccessFixture)(nil)
)
