package permissions

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

// Service orchestrates grant business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Assign grants an action to a role. A soft-deleted pair is brought back
// instead of inserting a second row; an active pair is a conflict.
func (s *Service) Assign(ctx context.Context, actor uuid.UUID, req CreateRequest) (*Permission, error) {
	description := strings.TrimSpace(req.Description)

	var grantID uuid.UUID
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.RoleExists(ctx, req.RoleID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: role %s", shared.ErrInvalidReference, req.RoleID)
		}
		ok, err = tx.ActionExists(ctx, req.ActionID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: action %s", shared.ErrInvalidReference, req.ActionID)
		}

		pair, err := tx.FindPair(ctx, req.RoleID, req.ActionID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		switch {
		case pair != nil && !pair.IsDeleted:
			return fmt.Errorf("%w: role already has this action", shared.ErrDuplicate)
		case pair != nil:
			if err := tx.Reactivate(ctx, pair.ID, description, actor); err != nil {
				return err
			}
			grantID = pair.ID
		default:
			p := &Permission{
				ID:          uuid.New(),
				RoleID:      req.RoleID,
				ActionID:    req.ActionID,
				Description: description,
				IsActive:    true,
				Audit:       shared.Audit{CreatedBy: &actor, CreatedOn: time.Now().UTC()},
			}
			if err := tx.Insert(ctx, p); err != nil {
				return err
			}
			grantID = p.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("permission assigned",
		slog.String("role_id", req.RoleID.String()), slog.String("action_id", req.ActionID.String()))
	// Reload to pick up the joined role, action and module names.
	return s.repo.Get(ctx, grantID)
}

// Get returns a single non-deleted grant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Permission, error) {
	return s.repo.Get(ctx, id)
}

// List returns one page of grants with the total count of non-deleted rows.
func (s *Service) List(ctx context.Context, page shared.Page) ([]Permission, int, error) {
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Permission{}
	}
	return items, total, nil
}

// Update merges the submitted fields into the stored grant. Only the
// description and the active flag can change.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, req UpdateRequest) (*Permission, error) {
	var updated *Permission
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
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
	s.logger.Info("permission updated", slog.String("id", id.String()))
	return updated, nil
}

// Delete revokes a grant. Grants are leaves, nothing references them.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SoftDelete(ctx, id, actor)
	})
	if err != nil {
		return err
	}
	s.logger.Info("permission revoked", slog.String("id", id.String()))
	return nil
}
