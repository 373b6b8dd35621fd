// Package modules manages the named functional areas actions belong to.
package modules

import (
	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/shared"
)

// Module is a named functional area of the system.
type Module struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	shared.Audit
}

// ModuleAction is one row of a module joined with one of its actions.
type ModuleAction struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	IsActive       bool      `json:"is_active"`
	ActionID       uuid.UUID `json:"action_id"`
	ActionName     string    `json:"action_name"`
	ActionIsActive bool      `json:"action_is_active"`
}

// CreateRequest carries the fields for a new module.
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
