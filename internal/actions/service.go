package actions

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

// Service orchestrates action business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create inserts a new action under an existing module. The name must be
// unique among the module's non-deleted actions; a soft-deleted action
// does not block it.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateRequest) (*Action, error) {
	name := strings.TrimSpace(req.ActionName)
	if name == "" {
		return nil, fmt.Errorf("%w: action name required", shared.ErrValidation)
	}

	var created *Action
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.ModuleExists(ctx, req.ModuleID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: module %s", shared.ErrInvalidReference, req.ModuleID)
		}
		existing, err := tx.GetByNameInModule(ctx, req.ModuleID, name)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: action %q", shared.ErrDuplicate, name)
		}
		a := &Action{
			ID:          uuid.New(),
			ActionName:  name,
			Description: strings.TrimSpace(req.Description),
			ModuleID:    req.ModuleID,
			IsActive:    true,
			Audit:       shared.Audit{CreatedBy: &actor, CreatedOn: time.Now().UTC()},
		}
		if req.IsActive != nil {
			a.IsActive = *req.IsActive
		}
		if err := tx.Insert(ctx, a); err != nil {
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("action created", slog.String("name", created.ActionName), slog.String("module_id", created.ModuleID.String()))
	return created, nil
}

// Get returns a single non-deleted action.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Action, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of actions with the total count of non-deleted rows.
func (s *Service) List(ctx context.Context, page shared.Page) ([]Action, int, error) {
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Action{}
	}
	return items, total, nil
}

// Update merges the submitted fields into the stored action. Blank strings
// keep the current value and a nil is_active keeps the current flag.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, req UpdateRequest) (*Action, error) {
	var updated *Action
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		name := shared.MergeString(req.ActionName, current.ActionName)
		if name != current.ActionName {
			existing, err := tx.GetByNameInModule(ctx, current.ModuleID, name)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: action %q", shared.ErrDuplicate, name)
			}
		}

		current.ActionName = name
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
	s.logger.Info("action updated", slog.String("id", id.String()))
	return updated, nil
}

// Delete soft-deletes an action unless non-deleted role grants still
// reference it.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.CountChildGrants(ctx, id)
		if err != nil {
			return err
		}
		if count >= 1 {
			return fmt.Errorf("%w: delete assigned role permissions first", shared.ErrChildRecords)
		}
		return tx.SoftDelete(ctx, id, actor)
	})
	if err != nil {
		return err
	}
	s.logger.Info("action deleted", slog.String("id", id.String()))
	return nil
}
