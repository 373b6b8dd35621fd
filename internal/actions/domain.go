// Package actions manages the named operations that can be permitted within
// a module.
package actions

import (
	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/shared"
)

// Action is a named operation within a module.
type Action struct {
	ID          uuid.UUID `json:"id"`
	ActionName  string    `json:"action_name"`
	Description string    `json:"description"`
	ModuleID    uuid.UUID `json:"module_id"`
	ModuleName  string    `json:"module_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	shared.Audit
}

// CreateRequest carries the fields for a new action.
type CreateRequest struct {
	ActionName  string    `json:"action_name" validate:"required"`
	Description string    `json:"description"`
	ModuleID    uuid.UUID `json:"module_id" validate:"required"`
	IsActive    *bool     `json:"is_active"`
}

// UpdateRequest carries a partial update; blank fields keep stored values.
type UpdateRequest struct {
	ActionName  string `json:"action_name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}
