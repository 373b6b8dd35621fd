package users

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
	"github.com/warden-rbac/warden/internal/roles"
	"github.com/warden-rbac/warden/internal/shared"
)

// Repository provides user persistence.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context, viewer uuid.UUID, page shared.Page) ([]User, int, error)
	Search(ctx context.Context, viewer uuid.UUID, email string, page shared.Page) ([]User, int, error)
}

// TxRepository exposes the operations available inside a transaction.
type TxRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error)
	Insert(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, actor uuid.UUID) error
	SoftDelete(ctx context.Context, id, actor uuid.UUID) error
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

func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return queries{q: r.pool}.Get(ctx, id)
}

const userColumns = `
u.id, u.email, u.password, COALESCE(u.role_id, '00000000-0000-0000-0000-000000000000'::uuid),
COALESCE(r.name, ''), u.is_active, u.created_by, u.created_on, u.updated_by, u.updated_on`

const listQuery = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE
WHERE u.is_deleted = FALSE AND u.id <> $1 AND COALESCE(r.name, '') <> $4
ORDER BY u.email
LIMIT NULLIF($3, 0) OFFSET $2`

const countListQuery = `
SELECT count(*)
FROM users u
LEFT JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE
WHERE u.is_deleted = FALSE AND u.id <> $1 AND COALESCE(r.name, '') <> $2`

// List returns one page of non-deleted users plus the total count. The
// viewer and holders of the reserved role never appear.
func (r *PGRepository) List(ctx context.Context, viewer uuid.UUID, page shared.Page) ([]User, int, error) {
	var (
		items []User
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, listQuery, viewer, page.Offset, page.Limit, roles.ReservedRole)
		if err != nil {
			return fmt.Errorf("users: list: %w", err)
		}
		defer rows.Close()
		items, err = collectUsers(rows)
		return err
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countListQuery, viewer, roles.ReservedRole).Scan(&total); err != nil {
			return fmt.Errorf("users: count: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

const searchQuery = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE
WHERE u.is_deleted = FALSE AND u.id <> $1 AND COALESCE(r.name, '') <> $5
  AND u.email ILIKE '%' || $2 || '%'
ORDER BY u.email
LIMIT NULLIF($4, 0) OFFSET $3`

const countSearchQuery = `
SELECT count(*)
FROM users u
LEFT JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE
WHERE u.is_deleted = FALSE AND u.id <> $1 AND COALESCE(r.name, '') <> $3
  AND u.email ILIKE '%' || $2 || '%'`

// Search matches user emails case-insensitively on a substring, with the
// same exclusions as List.
func (r *PGRepository) Search(ctx context.Context, viewer uuid.UUID, email string, page shared.Page) ([]User, int, error) {
	var (
		items []User
		total int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(ctx, searchQuery, viewer, email, page.Offset, page.Limit, roles.ReservedRole)
		if err != nil {
			return fmt.Errorf("users: search: %w", err)
		}
		defer rows.Close()
		items, err = collectUsers(rows)
		return err
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(ctx, countSearchQuery, viewer, email, roles.ReservedRole).Scan(&total); err != nil {
			return fmt.Errorf("users: search count: %w", err)
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
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE
WHERE u.id = $1 AND u.is_deleted = FALSE`

func (s queries) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(s.q.QueryRow(ctx, getQuery, id))
}

const getByEmailQuery = `
SELECT ` + userColumns + `
FROM users u
LEFT JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE
WHERE lower(u.email) = lower($1) AND u.is_deleted = FALSE`

func (s queries) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.q.QueryRow(ctx, getByEmailQuery, email))
}

func (s queries) RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1 AND is_deleted = FALSE)`, roleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("users: check role: %w", err)
	}
	return exists, nil
}

func (s queries) Insert(ctx context.Context, u *User) error {
	_, err := s.q.Exec(ctx, `
INSERT INTO users (id, email, password, role_id, is_active, created_by, created_on)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.PasswordHash, u.RoleID, u.IsActive, u.CreatedBy, u.CreatedOn)
	if err != nil {
		return fmt.Errorf("users: insert: %w", err)
	}
	return nil
}

func (s queries) Update(ctx context.Context, u *User) error {
	tag, err := s.q.Exec(ctx, `
UPDATE users
SET email = $2, role_id = $3, is_active = $4, updated_by = $5, updated_on = $6
WHERE id = $1 AND is_deleted = FALSE`,
		u.ID, u.Email, u.RoleID, u.IsActive, u.UpdatedBy, u.UpdatedOn)
	if err != nil {
		return fmt.Errorf("users: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, actor uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
UPDATE users
SET password = $2, updated_by = $3, updated_on = now()
WHERE id = $1 AND is_deleted = FALSE`, id, hash, actor)
	if err != nil {
		return fmt.Errorf("users: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s queries) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	tag, err := s.q.Exec(ctx, `
UPDATE users
SET is_deleted = TRUE, is_active = FALSE, updated_by = $2, updated_on = now()
WHERE id = $1 AND is_deleted = FALSE`, id, actor)
	if err != nil {
		return fmt.Errorf("users: soft delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectUsers(rows pgx.Rows) ([]User, error) {
	var items []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *u)
	}
	return items, rows.Err()
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u         User
		createdBy uuid.NullUUID
		updatedBy uuid.NullUUID
		updatedOn sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName, &u.IsActive,
		&createdBy, &u.CreatedOn, &updatedBy, &updatedOn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("users: scan: %w", err)
	}
	if createdBy.Valid {
		u.CreatedBy = &createdBy.UUID
	}
	if updatedBy.Valid {
		u.UpdatedBy = &updatedBy.UUID
	}
	if updatedOn.Valid {
		t := updatedOn.Time
		u.UpdatedOn = &t
	}
	return &u, nil
}

var (
	_ Repository   = (*PGRepository)(nil)
	_ TxRepository = queries{}
)
