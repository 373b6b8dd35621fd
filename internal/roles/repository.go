package roles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/warden-rbac/warden/internal/platform/db"
	"github.com/warden-rbac/warden/internal/shared"
)

// Repository provides role persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (*Role, error)
	List(ctx context.Context, page shared.Page) ([]Role, int, error)
	Search(ctx context.Context, name string, page shared.Page) ([]Role, int, error)
	ListUsers(ctx context.Context, roleID uuid.UUID, page shared.Page) ([]RoleUser, int, error)
	GetPermissions(ctx context.Context, roleID uuid.UUID) (*RolePermissions, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	Insert(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	SoftDelete(ctx context.Context, id, actor uuid.UUID) error
	CountMembers(ctx context.Context, id uuid.UUID) (int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, queries{q: tx})
	})
}

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	return queries{q: r.pool}.Get(ctx, id)
}

const roleColumns = `id, name, description, is_active, created_by, created_on, updated_by, updated_on`

const listQuery = `
SELECT ` + roleColumns + `
FROM roles
WHERE is_deleted = FALSE AND name <> $3
ORDER BY name
LIMIT NULLIF($2, 0) OFFSET $1`

const countListQuery = `SELECT count(*) FROM roles WHERE is_deleted = FALSE AND name <> $1`

// List returns one page of non-deleted roles plus the total count. The
// reserved role never appears.
func (r *PGRepository) List(ctx context.Context, page shared.Page) ([]Role, int, error) {
	var (
		items []Role
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listQuery, page.Offset, page.Limit, ReservedRole)
		if err != nil {
			return fmt.Errorf("roles: list: %w", err)
		}
		defer rows.Close()
		items, err = collectRoles(rows)
		return err
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countListQuery, ReservedRole).Scan(&total); err != nil {
			return fmt.Errorf("roles: count: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const searchQuery = `
SELECT ` + roleColumns + `
FROM roles
WHERE is_deleted = FALSE AND name <> $4 AND name ILIKE '%' || $1 || '%'
ORDER BY name
LIMIT NULLIF($3, 0) OFFSET $2`

const countSearchQuery = `
SELECT count(*) FROM roles
WHERE is_deleted = FALSE AND name <> $2 AND name ILIKE '%' || $1 || '%'`

// Search matches role names case-insensitively on a substring.
func (r *PGRepository) Search(ctx context.Context, name string, page shared.Page) ([]Role, int, error) {
	var (
		items []Role
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, searchQuery, name, page.Offset, page.Limit, ReservedRole)
		if err != nil {
			return fmt.Errorf("roles: search: %w", err)
		}
		defer rows.Close()
		items, err = collectRoles(rows)
		return err
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countSearchQuery, name, ReservedRole).Scan(&total); err != nil {
			return fmt.Errorf("roles: search count: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const listUsersQuery = `
SELECT id, email, is_active
FROM users
WHERE role_id = $1 AND is_deleted = FALSE
ORDER BY email
LIMIT NULLIF($3, 0) OFFSET $2`

const countUsersQuery = `SELECT count(*) FROM users WHERE role_id = $1 AND is_deleted = FALSE`

// ListUsers returns the non-deleted users holding the role.
func (r *PGRepository) ListUsers(ctx context.Context, roleID uuid.UUID, page shared.Page) ([]RoleUser, int, error) {
	var (
		items []RoleUser
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listUsersQuery, roleID, page.Offset, page.Limit)
		if err != nil {
			return fmt.Errorf("roles: list users: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var u RoleUser
			if err := rows.Scan(&u.ID, &u.Email, &u.IsActive); err != nil {
				return fmt.Errorf("roles: scan user: %w", err)
			}
			items = append(items, u)
		}
		return rows.Err()
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countUsersQuery, roleID).Scan(&total); err != nil {
			return fmt.Errorf("roles: count users: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const permissionsQuery = `
SELECT ra.id, COALESCE(m.name, ''), a.action_name, ra.is_active
FROM role_actions ra
JOIN actions a ON a.id = ra.actions_id AND a.is_deleted = FALSE
LEFT JOIN modules m ON m.id = a.module_id AND m.is_deleted = FALSE
WHERE ra.role_id = $1 AND ra.is_deleted = FALSE
ORDER BY m.name, a.action_name`

// GetPermissions returns the role together with its non-deleted grants.
func (r *PGRepository) GetPermissions(ctx context.Context, roleID uuid.UUID) (*RolePermissions, error) {
	role, err := queries{q: r.pool}.Get(ctx, roleID)
	if err != nil {
		return nil, err
	}
	result := &RolePermissions{ID: role.ID, Name: role.Name, IsActive: role.IsActive, Grants: []Grant{}}

	rows, err := r.pool.Query(ctx, permissionsQuery, roleID)
	if err != nil {
		return nil, fmt.Errorf("roles: permissions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.PermissionID, &g.ModuleName, &g.ActionName, &g.IsActive); err != nil {
			return nil, fmt.Errorf("roles: scan grant: %w", err)
		}
		result.Grants = append(result.Grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type queries struct {
	q db.Querier
}

const getQuery = `
SELECT ` + roleColumns + `
FROM roles
WHERE id = $1 AND is_deleted = FALSE AND name <> $2`

func (s queries) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	return scanRole(s.q.QueryRow(ctx, getQuery, id, ReservedRole))
}

// GetByName matches byte for byte; the reserved role is included so its
// name can never be claimed.
func (s queries) GetByName(ctx context.Context, name string) (*Role, error) {
	return scanRole(s.q.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = $1 AND is_deleted = FALSE`, name))
}

func (s queries) Insert(ctx context.Context, role *Role) error {
	_, err := s.q.Exec(ctx, `
INSERT INTO roles (id, name, description, is_active, created_by, created_on)
VALUES ($1, $2, $3, $4, $5, $6)`,
		role.ID, role.Name, role.Description, role.IsActive, role.CreatedBy, role.CreatedOn)
	if err != nil {
		return fmt.Errorf("roles: insert: %w", err)
	}
	return nil
}

func (s queries) Update(ctx context.Context, role *Role) error {
	tag, err := s.q.Exec(ctx, `
UPDATE roles
SET name = $2, description = $3, is_active = $4, updated_by = $5, updated_on = $6
WHERE id = $1 AND is_deleted = FALSE AND name <> $7`,
		role.ID, role.Name, role.Description, role.IsActive, role.UpdatedBy, role.UpdatedOn, ReservedRole)
	if err != nil {
		return fmt.Errorf("roles: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
UPDATE roles
SET is_deleted = TRUE, is_active = FALSE, updated_by = $2, updated_on = now()
WHERE id = $1 AND is_deleted = FALSE AND name <> $3`, id, actor, ReservedRole)
	if err != nil {
		return fmt.Errorf("roles: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) CountMembers(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE role_id = $1 AND is_deleted = FALSE`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("roles: count members: %w", err)
	}
	return count, nil
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	var items []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *role)
	}
	return items, rows.Err()
}

func scanRole(row pgx.Row) (*Role, error) {
	var (
		role      Role
		createdBy uuid.NullUUID
		updatedBy uuid.NullUUID
		updatedOn sql.NullTime
	)
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.IsActive,
		&createdBy, &role.CreatedOn, &updatedBy, &updatedOn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("roles: scan: %w", err)
	}
	if createdBy.Valid {
		role.CreatedBy = &createdBy.UUID
	}
	if updatedBy.Valid {
		role.UpdatedBy = &updatedBy.UUID
	}
	if updatedOn.Valid {
		t := updatedOn.Time
		role.UpdatedOn = &t
	}
	return &role, nil
}

var (
	_ Repository   = (*PGRepository)(nil)
	_ TxRepository = queries{}
)
