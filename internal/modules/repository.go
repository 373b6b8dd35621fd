package modules

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

// Repository provides module persistence. Reads run on the pool; mutations
// run inside WithTx so check and write commit atomically.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (*Module, error)
	List(ctx context.Context, page shared.Page) ([]Module, int, error)
	ListActions(ctx context.Context, id uuid.UUID, page shared.Page) ([]ModuleAction, int, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Module, error)
	GetByName(ctx context.Context, name string) (*Module, error)
	Insert(ctx context.Context, m *Module) error
	Update(ctx context.Context, m *Module) error
	SoftDelete(ctx context.Context, id, actor uuid.UUID) error
	CountChildActions(ctx context.Context, id uuid.UUID) (int, error)
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

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Module, error) {
	return queries{q: r.pool}.Get(ctx, id)
}

const listQuery = `
SELECT id, name, description, is_active, created_by, created_on, updated_by, updated_on
FROM modules
WHERE is_deleted = FALSE
ORDER BY name
LIMIT NULLIF($2, 0) OFFSET $1`

const countQuery = `SELECT count(*) FROM modules WHERE is_deleted = FALSE`

// List returns one page of non-deleted modules plus the total count under
// the identical filter.
func (r *PGRepository) List(ctx context.Context, page shared.Page) ([]Module, int, error) {
	var (
		items []Module
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listQuery, page.Offset, page.Limit)
		if err != nil {
			return fmt.Errorf("modules: list: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			m, err := scanModule(rows)
			if err != nil {
				return err
			}
			items = append(items, *m)
		}
		return rows.Err()
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
			return fmt.Errorf("modules: count: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const listActionsQuery = `
SELECT m.id, m.name, m.description, m.is_active, a.id, a.action_name, a.is_active
FROM modules m
JOIN actions a ON a.module_id = m.id
WHERE m.id = $1 AND m.is_deleted = FALSE AND a.is_deleted = FALSE
ORDER BY a.action_name
LIMIT NULLIF($3, 0) OFFSET $2`

const countActionsQuery = `
SELECT count(*)
FROM modules m
JOIN actions a ON a.module_id = m.id
WHERE m.id = $1 AND m.is_deleted = FALSE AND a.is_deleted = FALSE`

// ListActions returns a module's non-deleted actions plus the total count.
func (r *PGRepository) ListActions(ctx context.Context, id uuid.UUID, page shared.Page) ([]ModuleAction, int, error) {
	var (
		items []ModuleAction
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listActionsQuery, id, page.Offset, page.Limit)
		if err != nil {
			return fmt.Errorf("modules: list actions: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var row ModuleAction
			if err := rows.Scan(&row.ID, &row.Name, &row.Description, &row.IsActive,
				&row.ActionID, &row.ActionName, &row.ActionIsActive); err != nil {
				return fmt.Errorf("modules: scan action row: %w", err)
			}
			items = append(items, row)
		}
		return rows.Err()
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countActionsQuery, id).Scan(&total); err != nil {
			return fmt.Errorf("modules: count actions: %w", err)
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
SELECT id, name, description, is_active, created_by, created_on, updated_by, updated_on
FROM modules
WHERE id = $1 AND is_deleted = FALSE`

func (s queries) Get(ctx context.Context, id uuid.UUID) (*Module, error) {
	return scanModule(s.q.QueryRow(ctx, getQuery, id))
}

const getByNameQuery = `
SELECT id, name, description, is_active, created_by, created_on, updated_by, updated_on
FROM modules
WHERE name = $1 AND is_deleted = FALSE`

func (s queries) GetByName(ctx context.Context, name string) (*Module, error) {
	return scanModule(s.q.QueryRow(ctx, getByNameQuery, name))
}

func (s queries) Insert(ctx context.Context, m *Module) error {
	_, err := s.q.Exec(ctx, `
INSERT INTO modules (id, name, description, is_active, created_by, created_on)
VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Name, m.Description, m.IsActive, m.CreatedBy, m.CreatedOn)
	if err != nil {
		return fmt.Errorf("modules: insert: %w", err)
	}
	return nil
}

func (s queries) Update(ctx context.Context, m *Module) error {
	tag, err := s.q.Exec(ctx, `
UPDATE modules
SET name = $2, description = $3, is_active = $4, updated_by = $5, updated_on = $6
WHERE id = $1 AND is_deleted = FALSE`,
		m.ID, m.Name, m.Description, m.IsActive, m.UpdatedBy, m.UpdatedOn)
	if err != nil {
		return fmt.Errorf("modules: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
UPDATE modules
SET is_deleted = TRUE, is_active = FALSE, updated_by = $2, updated_on = now()
WHERE id = $1 AND is_deleted = FALSE`, id, actor)
	if err != nil {
		return fmt.Errorf("modules: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) CountChildActions(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.q.QueryRow(ctx,
		`SELECT count(*) FROM actions WHERE module_id = $1 AND is_deleted = FALSE`, id).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("modules: count child actions: %w", err)
	}
	return count, nil
}

func scanModule(row pgx.Row) (*Module, error) {
	var (
		m         Module
		createdBy uuid.NullUUID
		updatedBy uuid.NullUUID
		updatedOn sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.IsActive,
		&createdBy, &m.CreatedOn, &updatedBy, &updatedOn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("modules: scan: %w", err)
	}
	if createdBy.Valid {
		m.CreatedBy = &createdBy.UUID
	}
	if updatedBy.Valid {
		m.UpdatedBy = &updatedBy.UUID
	}
	if updatedOn.Valid {
		t := updatedOn.Time
		m.UpdatedOn = &t
	}
	return &m, nil
}

var (
	_ Repository   = (*PGRepository)(nil)
	_ TxRepository = queries{}
)
