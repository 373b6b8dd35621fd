package permissions

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

// Repository provides grant persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (*Permission, error)
	List(ctx context.Context, page shared.Page) ([]Permission, int, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Permission, error)
	// FindPair looks a (role, action) pair up regardless of deletion state
	// so a soft-deleted grant can be reactivated.
	FindPair(ctx context.Context, roleID, actionID uuid.UUID) (*pairState, error)
	RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error)
	ActionExists(ctx context.Context, actionID uuid.UUID) (bool, error)
	Insert(ctx context.Context, p *Permission) error
	Reactivate(ctx context.Context, id uuid.UUID, description string, actor uuid.UUID) error
	Update(ctx context.Context, p *Permission) error
	SoftDelete(ctx context.Context, id, actor uuid.UUID) error
}

type pairState struct {
	ID        uuid.UUID
	IsDeleted bool
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

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Permission, error) {
	return queries{q: r.pool}.Get(ctx, id)
}

const permissionColumns = `
ra.id, ra.role_id, COALESCE(r.name, ''), ra.actions_id, COALESCE(a.action_name, ''),
COALESCE(m.name, ''), ra.description, ra.is_active,
ra.created_by, ra.created_on, ra.updated_by, ra.updated_on`

const permissionJoins = `
FROM role_actions ra
LEFT JOIN roles r ON r.id = ra.role_id AND r.is_deleted = FALSE
LEFT JOIN actions a ON a.id = ra.actions_id AND a.is_deleted = FALSE
LEFT JOIN modules m ON m.id = a.module_id AND m.is_deleted = FALSE`

const listQuery = `
SELECT ` + permissionColumns + permissionJoins + `
WHERE ra.is_deleted = FALSE
ORDER BY r.name, m.name, a.action_name
LIMIT NULLIF($2, 0) OFFSET $1`

const countQuery = `SELECT count(*) FROM role_actions WHERE is_deleted = FALSE`

// List returns one page of non-deleted grants plus the total count.
func (r *PGRepository) List(ctx context.Context, page shared.Page) ([]Permission, int, error) {
	var (
		items []Permission
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listQuery, page.Offset, page.Limit)
		if err != nil {
			return fmt.Errorf("permissions: list: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			p, err := scanPermission(rows)
			if err != nil {
				return err
			}
			items = append(items, *p)
		}
		return rows.Err()
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
			return fmt.Errorf("permissions: count: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type queries struct {
	q db.Querier
}

const getQuery = `
SELECT ` + permissionColumns + permissionJoins + `
WHERE ra.id = $1 AND ra.is_deleted = FALSE`

func (s queries) Get(ctx context.Context, id uuid.UUID) (*Permission, error) {
	return scanPermission(s.q.QueryRow(ctx, getQuery, id))
}

func (s queries) FindPair(ctx context.Context, roleID, actionID uuid.UUID) (*pairState, error) {
	var state pairState
	err := s.q.QueryRow(ctx,
		`SELECT id, is_deleted FROM role_actions WHERE role_id = $1 AND actions_id = $2`,
		roleID, actionID).Scan(&state.ID, &state.IsDeleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("permissions: find pair: %w", err)
	}
	return &state, nil
}

func (s queries) RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1 AND is_deleted = FALSE)`, roleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("permissions: check role: %w", err)
	}
	return exists, nil
}

func (s queries) ActionExists(ctx context.Context, actionID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM actions WHERE id = $1 AND is_deleted = FALSE)`, actionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("permissions: check action: %w", err)
	}
	return exists, nil
}

func (s queries) Insert(ctx context.Context, p *Permission) error {
	_, err := s.q.Exec(ctx, `
INSERT INTO role_actions (id, role_id, actions_id, description, is_active, created_by, created_on)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.RoleID, p.ActionID, p.Description, p.IsActive, p.CreatedBy, p.CreatedOn)
	if err != nil {
		return fmt.Errorf("permissions: insert: %w", err)
	}
	return nil
}

func (s queries) Reactivate(ctx context.Context, id uuid.UUID, description string, actor uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
UPDATE role_actions
SET is_deleted = FALSE, is_active = TRUE, description = $2, updated_by = $3, updated_on = now()
WHERE id = $1 AND is_deleted = TRUE`, id, description, actor)
	if err != nil {
		return fmt.Errorf("permissions: reactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) Update(ctx context.Context, p *Permission) error {
	tag, err := s.q.Exec(ctx, `
UPDATE role_actions
SET description = $2, is_active = $3, updated_by = $4, updated_on = $5
WHERE id = $1 AND is_deleted = FALSE`,
		p.ID, p.Description, p.IsActive, p.UpdatedBy, p.UpdatedOn)
	if err != nil {
		return fmt.Errorf("permissions: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
UPDATE role_actions
SET is_deleted = TRUE, is_active = FALSE, updated_by = $2, updated_on = now()
WHERE id = $1 AND is_deleted = FALSE`, id, actor)
	if err != nil {
		return fmt.Errorf("permissions: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanPermission(row pgx.Row) (*Permission, error) {
	var (
		p         Permission
		createdBy uuid.NullUUID
		updatedBy uuid.NullUUID
		updatedOn sql.NullTime
	)
	err := row.Scan(&p.ID, &p.RoleID, &p.RoleName, &p.ActionID, &p.ActionName, &p.ModuleName,
		&p.Description, &p.IsActive, &createdBy, &p.CreatedOn, &updatedBy, &updatedOn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("permissions: scan: %w", err)
	}
	if createdBy.Valid {
		p.CreatedBy = &createdBy.UUID
	}
	if updatedBy.Valid {
		p.UpdatedBy = &updatedBy.UUID
	}
	if updatedOn.Valid {
		t := updatedOn.Time
		p.UpdatedOn = &t
	}
	return &p, nil
}

var (
	_ Repository   = (*PGRepository)(nil)
	_ TxRepository = queries{}
)
