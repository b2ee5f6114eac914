package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/horizon-hrms/horizon-hrms/internal/platform/db"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PGStore provides PostgreSQL backed persistence for the permission engine
// and the grant administration operations. Grant uniqueness is enforced by
// unique constraints, so concurrent identical grants cannot create duplicate
// rows.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// ResolveCapability loads a capability joined with its owning module, by ID
// or by path. Paths are unique across the whole catalog.
func (s *PGStore) ResolveCapability(ctx context.Context, ref Ref) (ResolvedCapability, error) {
	const base = `SELECT c.id, c.path, c.module_id, m.chief_id
		FROM capabilities c
		JOIN modules m ON m.id = c.module_id`

	var row pgx.Row
	if ref.Path != "" {
		row = s.pool.QueryRow(ctx, base+` WHERE c.path = $1`, ref.Path)
	} else {
		row = s.pool.QueryRow(ctx, base+` WHERE c.id = $1`, ref.ID)
	}

	var capability ResolvedCapability
	if err := row.Scan(&capability.ID, &capability.Path, &capability.ModuleID, &capability.ModuleChiefID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResolvedCapability{}, ErrNotFound
		}
		return ResolvedCapability{}, err
	}
	return capability, nil
}

// HasDirectGrant reports whether a direct user to capability grant exists.
func (s *PGStore) HasDirectGrant(ctx context.Context, userID, capabilityID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_capabilities WHERE user_id = $1 AND capability_id = $2)`,
		userID, capabilityID).Scan(&exists)
	return exists, err
}

// RoleIDsForUser returns the IDs of all roles assigned to the user.
func (s *PGStore) RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT role_id FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AnyRoleHasCapability reports whether any of the roles is bound to the
// capability.
func (s *PGStore) AnyRoleHasCapability(ctx context.Context, roleIDs []int64, capabilityID int64) (bool, error) {
	if len(roleIDs) == 0 {
		return false, nil
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_capabilities WHERE capability_id = $1 AND role_id = ANY($2))`,
		capabilityID, roleIDs).Scan(&exists)
	return exists, err
}

// InsertUserCapability records a direct grant. Returns false when the grant
// already existed.
func (s *PGStore) InsertUserCapability(ctx context.Context, grant UserCapabilityGrant) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO user_capabilities (user_id, capability_id, granted_by, note)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, capability_id) DO NOTHING`,
		grant.UserID, grant.CapabilityID, grant.GrantedBy, grant.Note)
	if err != nil {
		return false, mapConstraintError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteUserCapability removes a direct grant. Returns false when no row
// matched.
func (s *PGStore) DeleteUserCapability(ctx context.Context, userID, capabilityID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_capabilities WHERE user_id = $1 AND capability_id = $2`,
		userID, capabilityID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertUserRole assigns a role to a user, optionally scoped to a module.
func (s *PGStore) InsertUserRole(ctx context.Context, grant UserRoleGrant) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id, module_id, assigned_by, note)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, role_id, module_id) DO NOTHING`,
		grant.UserID, grant.RoleID, grant.ModuleID, grant.AssignedBy, grant.Note)
	if err != nil {
		return false, mapConstraintError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteUserRole removes role assignments for the pair. A nil moduleID
// removes every module scope of the assignment.
func (s *PGStore) DeleteUserRole(ctx context.Context, userID, roleID int64, moduleID *int64) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if moduleID == nil {
		tag, err = s.pool.Exec(ctx,
			`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	} else {
		tag, err = s.pool.Exec(ctx,
			`DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2 AND module_id = $3`,
			userID, roleID, *moduleID)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertRoleCapability binds a capability into a role bundle.
func (s *PGStore) InsertRoleCapability(ctx context.Context, roleID, capabilityID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO role_capabilities (role_id, capability_id)
		 VALUES ($1, $2)
		 ON CONFLICT (role_id, capability_id) DO NOTHING`,
		roleID, capabilityID)
	if err != nil {
		return false, mapConstraintError(err)
	}
	return tag.RowsAffected() == 1, nil
}

// BulkInsertRoleCapabilities binds a capability batch inside one transaction
// so a partial batch never becomes visible.
func (s *PGStore) BulkInsertRoleCapabilities(ctx context.Context, roleID int64, capabilityIDs []int64) (BulkBindResult, error) {
	var result BulkBindResult
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, capabilityID := range capabilityIDs {
			tag, err := tx.Exec(ctx,
				`INSERT INTO role_capabilities (role_id, capability_id)
				 VALUES ($1, $2)
				 ON CONFLICT (role_id, capability_id) DO NOTHING`,
				roleID, capabilityID)
			if err != nil {
				return mapConstraintError(err)
			}
			if tag.RowsAffected() == 1 {
				result.Created++
			} else {
				result.Existing++
			}
		}
		return nil
	})
	if err != nil {
		return BulkBindResult{}, err
	}
	return result, nil
}

// DeleteRoleCapability removes a capability from a role bundle.
func (s *PGStore) DeleteRoleCapability(ctx context.Context, roleID, capabilityID int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM role_capabilities WHERE role_id = $1 AND capability_id = $2`,
		roleID, capabilityID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListUserCapabilities returns the direct grants held by a user.
func (s *PGStore) ListUserCapabilities(ctx context.Context, userID int64) ([]UserCapabilityGrant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, capability_id, granted_by, note, created_at
		 FROM user_capabilities WHERE user_id = $1 ORDER BY capability_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []UserCapabilityGrant
	for rows.Next() {
		var g UserCapabilityGrant
		if err := rows.Scan(&g.UserID, &g.CapabilityID, &g.GrantedBy, &g.Note, &g.CreatedAt); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// ListRoleCapabilities returns the capability IDs bound to a role.
func (s *PGStore) ListRoleCapabilities(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT capability_id FROM role_capabilities WHERE role_id = $1 ORDER BY capability_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return ErrUnknownReference
	}
	return err
}
