package catalog

import (
	"context"
	"errors"
	"strings"
)

// Service handles catalog business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListModules returns all modules.
func (s *Service) ListModules(ctx context.Context) ([]Module, error) {
	return s.repo.ListModules(ctx)
}

// GetModule fetches a module by ID.
func (s *Service) GetModule(ctx context.Context, id int64) (Module, error) {
	return s.repo.GetModule(ctx, id)
}

// CreateModule inserts a new module. The slug defaults to a slugified name.
func (s *Service) CreateModule(ctx context.Context, name, slug string, active bool) (Module, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Module{}, errors.New("catalog: module name required")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	return s.repo.CreateModule(ctx, Module{Name: name, Slug: slug, IsActive: active})
}

// UpdateModule updates an existing module.
func (s *Service) UpdateModule(ctx context.Context, id int64, name, slug string, active bool) (Module, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Module{}, errors.New("catalog: module name required")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		slug = Slugify(name)
	}
	return s.repo.UpdateModule(ctx, Module{ID: id, Name: name, Slug: slug, IsActive: active})
}

// AssignChief designates the module chief. The chief must be an existing,
// active user; a nil chiefID clears the designation.
func (s *Service) AssignChief(ctx context.Context, moduleID int64, chiefID *int64) error {
	if chiefID != nil {
		exists, active, err := s.repo.UserStatus(ctx, *chiefID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrChiefNotFound
		}
		if !active {
			return ErrChiefInactive
		}
	}
	return s.repo.SetModuleChief(ctx, moduleID, chiefID)
}

// ListCapabilities returns the capabilities of a module.
func (s *Service) ListCapabilities(ctx context.Context, moduleID int64) ([]Capability, error) {
	if _, err := s.repo.GetModule(ctx, moduleID); err != nil {
		return nil, err
	}
	return s.repo.ListCapabilities(ctx, moduleID)
}

// GetCapability fetches a capability by ID.
func (s *Service) GetCapability(ctx context.Context, id int64) (Capability, error) {
	return s.repo.GetCapability(ctx, id)
}

// CreateCapability inserts a new capability under a module.
func (s *Service) CreateCapability(ctx context.Context, capability Capability) (Capability, error) {
	capability.Name = strings.TrimSpace(capability.Name)
	capability.Path = strings.TrimSpace(capability.Path)
	if capability.Name == "" {
		return Capability{}, errors.New("catalog: capability name required")
	}
	if !strings.HasPrefix(capability.Path, "/") {
		return Capability{}, errors.New("catalog: capability path must start with /")
	}
	if _, err := s.repo.GetModule(ctx, capability.ModuleID); err != nil {
		return Capability{}, err
	}
	return s.repo.CreateCapability(ctx, capability)
}

// UpdateCapability updates an existing capability.
func (s *Service) UpdateCapability(ctx context.Context, capability Capability) (Capability, error) {
	capability.Name = strings.TrimSpace(capability.Name)
	capability.Path = strings.TrimSpace(capability.Path)
	if capability.Name == "" {
		return Capability{}, errors.New("catalog: capability name required")
	}
	if !strings.HasPrefix(capability.Path, "/") {
		return Capability{}, errors.New("catalog: capability path must start with /")
	}
	return s.repo.UpdateCapability(ctx, capability)
}

// DeleteCapability removes a capability by ID.
func (s *Service) DeleteCapability(ctx context.Context, id int64) error {
	return s.repo.DeleteCapability(ctx, id)
}
