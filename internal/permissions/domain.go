// Package permissions manages the grants linking roles to actions.
package permissions

import (
	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/shared"
)

// Permission is a grant of one action to one role.
type Permission struct {
	ID          uuid.UUID `json:"id"`
	RoleID      uuid.UUID `json:"role_id"`
	RoleName    string    `json:"role_name,omitempty"`
	ActionID    uuid.UUID `json:"action_id"`
	ActionName  string    `json:"action_name,omitempty"`
	ModuleName  string    `json:"module_name,omitempty"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	shared.Audit
}

// CreateRequest carries the fields for a new grant.
type CreateRequest struct {
	RoleID      uuid.UUID `json:"role_id" validate:"required"`
	ActionID    uuid.UUID `json:"action_id" validate:"required"`
	Description string    `json:"description"`
}

// UpdateRequest carries a partial update; the role and action of a grant
// never change, revoke and assign instead.
type UpdateRequest struct {
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}
