package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-rbac/warden/internal/shared"
)

// Repository defines persistence operations for the credential chain.
type Repository interface {
	// FindByEmail fetches a user by email regardless of soft-delete state;
	// the login chain itself rejects deleted accounts.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByID fetches a non-deleted user, used to re-derive the subject of
	// a refresh token from current database state.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `
SELECT u.id, u.email, u.password, COALESCE(u.role_id, '00000000-0000-0000-0000-000000000000'::uuid),
       COALESCE(r.name, ''), u.is_active, u.is_deleted
FROM users u
LEFT JOIN roles r ON r.id = u.role_id AND r.is_deleted = FALSE`

// FindByEmail fetches a user by email. When a live row and soft-deleted
// rows share the email, the live row wins.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		userColumns+` WHERE lower(u.email) = lower($1) ORDER BY u.is_deleted LIMIT 1`, email))
}

// FindByID fetches a non-deleted user by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, userColumns+` WHERE u.id = $1 AND u.is_deleted = FALSE`, id))
}

func (r *PGRepository) scanOne(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.RoleID,
		&user.RoleName, &user.IsActive, &user.IsDeleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan user: %w", err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
