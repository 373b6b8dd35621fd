package actions

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

// Repository provides action persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (*Action, error)
	List(ctx context.Context, page shared.Page) ([]Action, int, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Action, error)
	GetByNameInModule(ctx context.Context, moduleID uuid.UUID, name string) (*Action, error)
	ModuleExists(ctx context.Context, moduleID uuid.UUID) (bool, error)
	Insert(ctx context.Context, a *Action) error
	Update(ctx context.Context, a *Action) error
	SoftDelete(ctx context.Context, id, actor uuid.UUID) error
	CountChildGrants(ctx context.Context, id uuid.UUID) (int, error)
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

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Action, error) {
	return queries{q: r.pool}.Get(ctx, id)
}

const listQuery = `
SELECT a.id, a.action_name, a.description, a.module_id, COALESCE(m.name, ''), a.is_active,
       a.created_by, a.created_on, a.updated_by, a.updated_on
FROM actions a
LEFT JOIN modules m ON m.id = a.module_id AND m.is_deleted = FALSE
WHERE a.is_deleted = FALSE
ORDER BY m.name, a.action_name
LIMIT NULLIF($2, 0) OFFSET $1`

const countQuery = `SELECT count(*) FROM actions WHERE is_deleted = FALSE`

// List returns one page of non-deleted actions plus the total count.
func (r *PGRepository) List(ctx context.Context, page shared.Page) ([]Action, int, error) {
	var (
		items []Action
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listQuery, page.Offset, page.Limit)
		if err != nil {
			return fmt.Errorf("actions: list: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanAction(rows)
			if err != nil {
				return err
			}
			items = append(items, *a)
		}
		return rows.Err()
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
			return fmt.Errorf("actions: count: %w", err)
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
SELECT a.id, a.action_name, a.description, a.module_id, COALESCE(m.name, ''), a.is_active,
       a.created_by, a.created_on, a.updated_by, a.updated_on
FROM actions a
LEFT JOIN modules m ON m.id = a.module_id AND m.is_deleted = FALSE
WHERE a.id = $1 AND a.is_deleted = FALSE`

func (s queries) Get(ctx context.Context, id uuid.UUID) (*Action, error) {
	return scanAction(s.q.QueryRow(ctx, getQuery, id))
}

const getByNameQuery = `
SELECT a.id, a.action_name, a.description, a.module_id, '', a.is_active,
       a.created_by, a.created_on, a.updated_by, a.updated_on
FROM actions a
WHERE a.module_id = $1 AND a.action_name = $2 AND a.is_deleted = FALSE`

func (s queries) GetByNameInModule(ctx context.Context, moduleID uuid.UUID, name string) (*Action, error) {
	return scanAction(s.q.QueryRow(ctx, getByNameQuery, moduleID, name))
}

func (s queries) ModuleExists(ctx context.Context, moduleID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM modules WHERE id = $1 AND is_deleted = FALSE)`, moduleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("actions: check module: %w", err)
	}
	return exists, nil
}

func (s queries) Insert(ctx context.Context, a *Action) error {
	_, err := s.q.Exec(ctx, `
INSERT INTO actions (id, action_name, description, module_id, is_active, created_by, created_on)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ActionName, a.Description, a.ModuleID, a.IsActive, a.CreatedBy, a.CreatedOn)
	if err != nil {
		return fmt.Errorf("actions: insert: %w", err)
	}
	return nil
}

func (s queries) Update(ctx context.Context, a *Action) error {
	tag, err := s.q.Exec(ctx, `
UPDATE actions
SET action_name = $2, description = $3, is_active = $4, updated_by = $5, updated_on = $6
WHERE id = $1 AND is_deleted = FALSE`,
		a.ID, a.ActionName, a.Description, a.IsActive, a.UpdatedBy, a.UpdatedOn)
	if err != nil {
		return fmt.Errorf("actions: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
UPDATE actions
SET is_deleted = TRUE, is_active = FALSE, updated_by = $2, updated_on = now()
WHERE id = $1 AND is_deleted = FALSE`, id, actor)
	if err != nil {
		return fmt.Errorf("actions: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) CountChildGrants(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM role_actions WHERE actions_id = $1 AND is_deleted = FALSE`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("actions: count child grants: %w", err)
	}
	return count, nil
}

func scanAction(row pgx.Row) (*Action, error) {
	var (
		a         Action
		createdBy uuid.NullUUID
		updatedBy uuid.NullUUID
		updatedOn sql.NullTime
	)
	err := row.Scan(&a.ID, &a.ActionName, &a.Description, &a.ModuleID, &a.ModuleName, &a.IsActive,
		&createdBy, &a.CreatedOn, &updatedBy, &updatedOn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("actions: scan: %w", err)
	}
	if createdBy.Valid {
		a.CreatedBy = &createdBy.UUID
	}
	if updatedBy.Valid {
		a.UpdatedBy = &updatedBy.UUID
	}
	if updatedOn.Valid {
		t := updatedOn.Time
		a.UpdatedOn = &t
	}
	return &a, nil
}

var (
	_ Repository   = (*PGRepository)(nil)
	_ TxRepository = queries{}
)
