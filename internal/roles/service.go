package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/shared"
)

// Service orchestrates role business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create inserts a new role unless a non-deleted one with the same name
// exists. Names compare byte for byte, so "Admin" and "admin" coexist.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateRequest) (*Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}

	var created *Role
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetByName(ctx, name)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: role %q", shared.ErrDuplicate, name)
		}
		role := &Role{
			ID:          uuid.New(),
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			IsActive:    true,
			Audit:       shared.Audit{CreatedBy: &actor, CreatedOn: time.Now().UTC()},
		}
		if err := tx.Insert(ctx, role); err != nil {
			return err
		}
		created = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("role created", slog.String("name", created.Name))
	return created, nil
}

// Get returns a single non-deleted role. The reserved role reads as absent.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of roles with the total count of visible rows.
func (s *Service) List(ctx context.Context, page shared.Page) ([]Role, int, error) {
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Role{}
	}
	return items, total, nil
}

// Search matches role names case-insensitively on a substring.
func (s *Service) Search(ctx context.Context, name string, page shared.Page) ([]Role, int, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, 0, fmt.Errorf("%w: search term required", shared.ErrValidation)
	}
	items, total, err := s.repo.Search(ctx, name, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Role{}
	}
	return items, total, nil
}

// ListUsers returns the non-deleted users holding the role.
func (s *Service) ListUsers(ctx context.Context, roleID uuid.UUID, page shared.Page) ([]RoleUser, int, error) {
	if _, err := s.repo.Get(ctx, roleID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.ListUsers(ctx, roleID, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []RoleUser{}
	}
	return items, total, nil
}

// GetPermissions returns the role with its non-deleted grants.
func (s *Service) GetPermissions(ctx context.Context, roleID uuid.UUID) (*RolePermissions, error) {
	return s.repo.GetPermissions(ctx, roleID)
}

// Update merges the submitted fields into the stored role. A name change
// re-checks uniqueness against non-deleted roles.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, req UpdateRequest) (*Role, error) {
	var updated *Role
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		name := shared.MergeString(req.Name, current.Name)
		if name != current.Name {
			existing, err := tx.GetByName(ctx, name)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: role %q", shared.ErrDuplicate, name)
			}
		}

		current.Name = name
		current.Description = shared.MergeString(req.Description, current.Description)
		current.IsActive = shared.MergeBool(req.IsActive, current.IsActive)
		current.UpdatedBy = &actor
		now := time.Now().UTC()
		current.UpdatedOn = &now

		if err := tx.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("role updated", slog.String("id", id.String()))
	return updated, nil
}

// Delete soft-deletes a role unless non-deleted users still hold it.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.CountMembers(ctx, id)
		if err != nil {
			return err
		}
		if count >= 1 {
			return fmt.Errorf("%w: delete assigned users first", shared.ErrChildRecords)
		}
		return tx.SoftDelete(ctx, id, actor)
	})
	if err != nil {
		return err
	}
	s.logger.Info("role deleted", slog.String("id", id.String()))
	return nil
}
