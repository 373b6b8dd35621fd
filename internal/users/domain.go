// Package users manages user accounts, their role assignment and password
// maintenance.
package users

import (
	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/shared"
)

// User is an account that can authenticate and hold a role. The password
// hash never leaves the package.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       uuid.UUID `json:"role_id"`
	RoleName     string    `json:"role_name,omitempty"`
	IsActive     bool      `json:"is_active"`
	shared.Audit
}

// CreateRequest carries the fields for a new user.
type CreateRequest struct {
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8"`
	RoleID   uuid.UUID `json:"role_id" validate:"required"`
}

// UpdateRequest carries a partial update; blank fields keep stored values.
// The password is never updated through this request.
type UpdateRequest struct {
	Email    string     `json:"email"`
	RoleID   *uuid.UUID `json:"role_id"`
	IsActive *bool      `json:"is_active"`
}

// ResetPasswordRequest carries an administrative password reset.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// ChangePasswordRequest carries a self-service password change. The current
// password must be proven before the new one is accepted.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
