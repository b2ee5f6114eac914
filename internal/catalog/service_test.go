package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryCatalogRepo struct {
	modules      map[int64]Module
	capabilities map[int64]Capability
	users        map[int64]bool // id -> active
	nextModule   int64
	nextCap      int64
}

func newMemoryCatalogRepo() *memoryCatalogRepo {
	return &memoryCatalogRepo{
		modules:      make(map[int64]Module),
		capabilities: make(map[int64]Capability),
		users:        make(map[int64]bool),
	}
}

func (r *memoryCatalogRepo) ListModules(ctx context.Context) ([]Module, error) {
	var modules []Module
	for _, m := range r.modules {
		modules = append(modules, m)
	}
	return modules, nil
}

func (r *memoryCatalogRepo) GetModule(ctx context.Context, id int64) (Module, error) {
	module, ok := r.modules[id]
	if !ok {
		return Module{}, ErrNotFound
	}
	return module, nil
}

func (r *memoryCatalogRepo) CreateModule(ctx context.Context, module Module) (Module, error) {
	for _, existing := range r.modules {
		if existing.Name == module.Name {
			return Module{}, ErrDuplicate
		}
	}
	r.nextModule++
	module.ID = r.nextModule
	r.modules[module.ID] = module
	return module, nil
}

func (r *memoryCatalogRepo) UpdateModule(ctx context.Context, module Module) (Module, error) {
	existing, ok := r.modules[module.ID]
	if !ok {
		return Module{}, ErrNotFound
	}
	existing.Name = module.Name
	existing.Slug = module.Slug
	existing.IsActive = module.IsActive
	r.modules[module.ID] = existing
	return existing, nil
}

func (r *memoryCatalogRepo) SetModuleChief(ctx context.Context, moduleID int64, chiefID *int64) error {
	module, ok := r.modules[moduleID]
	if !ok {
		return ErrNotFound
	}
	module.ChiefID = chiefID
	r.modules[moduleID] = module
	return nil
}

func (r *memoryCatalogRepo) UserStatus(ctx context.Context, userID int64) (bool, bool, error) {
	active, ok := r.users[userID]
	return ok, active, nil
}

func (r *memoryCatalogRepo) ListCapabilities(ctx context.Context, moduleID int64) ([]Capability, error) {
	var capabilities []Capability
	for _, c := range r.capabilities {
		if c.ModuleID == moduleID {
			capabilities = append(capabilities, c)
		}
	}
	return capabilities, nil
}

func (r *memoryCatalogRepo) GetCapability(ctx context.Context, id int64) (Capability, error) {
	capability, ok := r.capabilities[id]
	if !ok {
		return Capability{}, ErrNotFound
	}
	return capability, nil
}

func (r *memoryCatalogRepo) CreateCapability(ctx context.Context, capability Capability) (Capability, error) {
	for _, existing := range r.capabilities {
		if existing.Path == capability.Path {
			return Capability{}, ErrDuplicate
		}
	}
	r.nextCap++
	capability.ID = r.nextCap
	r.capabilities[capability.ID] = capability
	return capability, nil
}

func (r *memoryCatalogRepo) UpdateCapability(ctx context.Context, capability Capability) (Capability, error) {
	if _, ok := r.capabilities[capability.ID]; !ok {
		return Capability{}, ErrNotFound
	}
	r.capabilities[capability.ID] = capability
	return capability, nil
}

func (r *memoryCatalogRepo) DeleteCapability(ctx context.Context, id int64) error {
	if _, ok := r.capabilities[id]; !ok {
		return ErrNotFound
	}
	delete(r.capabilities, id)
	return nil
}

var _ RepositoryPort = (*memoryCatalogRepo)(nil)

func TestCreateModuleDefaultsSlug(t *testing.T) {
	service := NewService(newMemoryCatalogRepo())

	module, err := service.CreateModule(context.Background(), "Congés Payés", "", true)
	require.NoError(t, err)
	require.Equal(t, "conges-payes", module.Slug)
}

func TestAssignChiefValidation(t *testing.T) {
	repo := newMemoryCatalogRepo()
	repo.modules[7] = Module{ID: 7, Name: "Congés"}
	repo.users[100] = true
	repo.users[300] = false
	service := NewService(repo)
	ctx := context.Background()

	chief := int64(100)
	require.NoError(t, service.AssignChief(ctx, 7, &chief))
	require.Equal(t, &chief, repo.modules[7].ChiefID)

	unknown := int64(999)
	require.ErrorIs(t, service.AssignChief(ctx, 7, &unknown), ErrChiefNotFound)

	inactive := int64(300)
	require.ErrorIs(t, service.AssignChief(ctx, 7, &inactive), ErrChiefInactive)

	// Clearing the chief needs no user validation.
	require.NoError(t, service.AssignChief(ctx, 7, nil))
	require.Nil(t, repo.modules[7].ChiefID)
}

func TestCreateCapabilityValidation(t *testing.T) {
	repo := newMemoryCatalogRepo()
	repo.modules[7] = Module{ID: 7, Name: "Congés"}
	service := NewService(repo)
	ctx := context.Background()

	_, err := service.CreateCapability(ctx, Capability{ModuleID: 7, Name: "Valider", Path: "no-slash"})
	require.Error(t, err)

	_, err = service.CreateCapability(ctx, Capability{ModuleID: 99, Name: "Valider", Path: "/rh/conges/valider"})
	require.ErrorIs(t, err, ErrNotFound)

	created, err := service.CreateCapability(ctx, Capability{ModuleID: 7, Name: "Valider", Path: "/rh/conges/valider"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	_, err = service.CreateCapability(ctx, Capability{ModuleID: 7, Name: "Valider bis", Path: "/rh/conges/valider"})
	require.ErrorIs(t, err, ErrDuplicate)
}
