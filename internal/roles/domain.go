// Package roles manages the roles users hold and the views onto their
// members and granted permissions.
package roles

import (
	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/shared"
)

// ReservedRole is hidden from every listing, lookup and search and can
// never be updated or deleted through the API.
const ReservedRole = "super admin"

// Role is a named set of permissions assignable to users.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	shared.Audit
}

// RoleUser is a member of a role as returned by the role-users view.
type RoleUser struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	IsActive bool      `json:"is_active"`
}

// Grant is one permission row attached to a role.
type Grant struct {
	PermissionID uuid.UUID `json:"permission_id"`
	ModuleName   string    `json:"module_name"`
	ActionName   string    `json:"action_name"`
	IsActive     bool      `json:"is_active"`
}

// RolePermissions is a role together with its non-deleted grants.
type RolePermissions struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsActive bool      `json:"is_active"`
	Grants   []Grant   `json:"permissions"`
}

// CreateRequest carries the fields for a new role.
type CreateRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UpdateRequest carries a partial update; blank fields keep stored values.
type UpdateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}
