package modules

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

// Service orchestrates module business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create inserts a new module unless an active one with the same name
// exists. A soft-deleted module does not block the name.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateRequest) (*Module, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: module name required", shared.ErrValidation)
	}

	var created *Module
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetByName(ctx, name)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: module %q", shared.ErrDuplicate, name)
		}
		m := &Module{
			ID:          uuid.New(),
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			IsActive:    true,
			Audit:       shared.Audit{CreatedBy: &actor, CreatedOn: time.Now().UTC()},
		}
		if err := tx.Insert(ctx, m); err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("module created", slog.String("name", created.Name))
	return created, nil
}

// Get fetches a non-deleted module by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Module, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of modules with the total count.
func (s *Service) List(ctx context.Context, page shared.Page) ([]Module, int, error) {
	return s.repo.List(ctx, page)
}

// ListActions returns a module's non-deleted actions with the total count.
func (s *Service) ListActions(ctx context.Context, id uuid.UUID, page shared.Page) ([]ModuleAction, int, error) {
	return s.repo.ListActions(ctx, id, page)
}

// Update applies a partial update: blank fields keep stored values, and the
// name-uniqueness check only fires when the name actually changes.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, req UpdateRequest) (*Module, error) {
	var updated *Module
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		name := shared.MergeString(req.Name, current.Name)
		if name != current.Name {
			if _, err := tx.GetByName(ctx, name); err == nil {
				return fmt.Errorf("%w: module %q", shared.ErrDuplicate, name)
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}

		now := time.Now().UTC()
		current.Name = name
		current.Description = shared.MergeString(req.Description, current.Description)
		current.IsActive = shared.MergeBool(req.IsActive, current.IsActive)
		current.UpdatedBy = &actor
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
	s.logger.Info("module updated", slog.String("id", id.String()))
	return updated, nil
}

// Delete soft-deletes a module, refused while non-deleted child actions
// still reference it.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		children, err := tx.CountChildActions(ctx, id)
		if err != nil {
			return err
		}
		if children >= 1 {
			return fmt.Errorf("%w: delete assigned actions first", shared.ErrChildRecords)
		}
		return tx.SoftDelete(ctx, id, actor)
	})
	if err != nil {
		return err
	}
	s.logger.Info("module deleted", slog.String("id", id.String()))
	return nil
}
