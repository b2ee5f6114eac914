package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

// RepositoryPort defines data access methods for the catalog.
type RepositoryPort interface {
	ListModules(ctx context.Context) ([]Module, error)
	GetModule(ctx context.Context, id int64) (Module, error)
	CreateModule(ctx context.Context, module Module) (Module, error)
	UpdateModule(ctx context.Context, module Module) (Module, error)
	SetModuleChief(ctx context.Context, moduleID int64, chiefID *int64) error
	UserStatus(ctx context.Context, userID int64) (exists, active bool, err error)
	ListCapabilities(ctx context.Context, moduleID int64) ([]Capability, error)
	GetCapability(ctx context.Context, id int64) (Capability, error)
	CreateCapability(ctx context.Context, capability Capability) (Capability, error)
	UpdateCapability(ctx context.Context, capability Capability) (Capability, error)
	DeleteCapability(ctx context.Context, id int64) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const moduleColumns = `id, name, slug, is_active, chief_id, created_at, updated_at`

// ListModules returns all modules ordered by name.
func (r *Repository) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+moduleColumns+` FROM modules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var modules []Module
	for rows.Next() {
		module, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, module)
	}
	return modules, rows.Err()
}

// GetModule fetches a module by ID.
func (r *Repository) GetModule(ctx context.Context, id int64) (Module, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+moduleColumns+` FROM modules WHERE id = $1`, id)
	module, err := scanModule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Module{}, ErrNotFound
		}
		return Module{}, err
	}
	return module, nil
}

// CreateModule inserts a new module.
func (r *Repository) CreateModule(ctx context.Context, module Module) (Module, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO modules (name, slug, is_active, chief_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+moduleColumns,
		module.Name, module.Slug, module.IsActive, module.ChiefID)
	created, err := scanModule(row)
	if err != nil {
		return Module{}, mapCatalogError(err)
	}
	return created, nil
}

// UpdateModule updates name, slug and active flag.
func (r *Repository) UpdateModule(ctx context.Context, module Module) (Module, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE modules SET name = $2, slug = $3, is_active = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+moduleColumns,
		module.ID, module.Name, module.Slug, module.IsActive)
	updated, err := scanModule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Module{}, ErrNotFound
		}
		return Module{}, mapCatalogError(err)
	}
	return updated, nil
}

// SetModuleChief assigns or clears the module chief.
func (r *Repository) SetModuleChief(ctx context.Context, moduleID int64, chiefID *int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE modules SET chief_id = $2, updated_at = NOW() WHERE id = $1`, moduleID, chiefID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UserStatus reports whether a user exists and is active.
func (r *Repository) UserStatus(ctx context.Context, userID int64) (bool, bool, error) {
	var active bool
	err := r.pool.QueryRow(ctx, `SELECT is_active FROM users WHERE id = $1`, userID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	return true, active, nil
}

const capabilityColumns = `id, module_id, name, path, position, description, created_at, updated_at`

// ListCapabilities returns the capabilities of a module ordered by position.
func (r *Repository) ListCapabilities(ctx context.Context, moduleID int64) ([]Capability, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+capabilityColumns+` FROM capabilities WHERE module_id = $1 ORDER BY position, id`, moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var capabilities []Capability
	for rows.Next() {
		capability, err := scanCapability(rows)
		if err != nil {
			return nil, err
		}
		capabilities = append(capabilities, capability)
	}
	return capabilities, rows.Err()
}

// GetCapability fetches a capability by ID.
func (r *Repository) GetCapability(ctx context.Context, id int64) (Capability, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+capabilityColumns+` FROM capabilities WHERE id = $1`, id)
	capability, err := scanCapability(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Capability{}, ErrNotFound
		}
		return Capability{}, err
	}
	return capability, nil
}

// CreateCapability inserts a new capability.
func (r *Repository) CreateCapability(ctx context.Context, capability Capability) (Capability, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO capabilities (module_id, name, path, position, description)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+capabilityColumns,
		capability.ModuleID, capability.Name, capability.Path, capability.Position, capability.Description)
	created, err := scanCapability(row)
	if err != nil {
		return Capability{}, mapCatalogError(err)
	}
	return created, nil
}

// UpdateCapability updates a capability.
func (r *Repository) UpdateCapability(ctx context.Context, capability Capability) (Capability, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE capabilities SET name = $2, path = $3, position = $4, description = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+capabilityColumns,
		capability.ID, capability.Name, capability.Path, capability.Position, capability.Description)
	updated, err := scanCapability(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Capability{}, ErrNotFound
		}
		return Capability{}, mapCatalogError(err)
	}
	return updated, nil
}

// DeleteCapability removes a capability by ID.
func (r *Repository) DeleteCapability(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM capabilities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanModule(row pgx.Row) (Module, error) {
	var m Module
	err := row.Scan(&m.ID, &m.Name, &m.Slug, &m.IsActive, &m.ChiefID, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func scanCapability(row pgx.Row) (Capability, error) {
	var c Capability
	err := row.Scan(&c.ID, &c.ModuleID, &c.Name, &c.Path, &c.Position, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func mapCatalogError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*Repository)(nil)
