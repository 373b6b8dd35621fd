package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/warden-rbac/warden/internal/shared"
)

// Service orchestrates user business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create inserts a new user. The email must be unused among non-deleted
// users and the role must exist.
func (s *Service) Create(ctx context.Context, actor uuid.UUID, req CreateRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email required", shared.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	var created *User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.RoleExists(ctx, req.RoleID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: role %s", shared.ErrInvalidReference, req.RoleID)
		}
		existing, err := tx.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: email %q", shared.ErrDuplicate, email)
		}
		u := &User{
			ID:           uuid.New(),
			Email:        email,
			PasswordHash: string(hash),
			RoleID:       req.RoleID,
			IsActive:     true,
			Audit:        shared.Audit{CreatedBy: &actor, CreatedOn: time.Now().UTC()},
		}
		if err := tx.Insert(ctx, u); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", slog.String("email", created.Email))
	return created, nil
}

// Get returns a single non-deleted user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Profile returns the viewer's own account.
func (s *Service) Profile(ctx context.Context, viewer uuid.UUID) (*User, error) {
	return s.repo.Get(ctx, viewer)
}

// List returns one page of users with the total count of visible rows. The
// viewer and reserved-role holders are excluded.
func (s *Service) List(ctx context.Context, viewer uuid.UUID, page shared.Page) ([]User, int, error) {
	items, total, err := s.repo.List(ctx, viewer, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []User{}
	}
	return items, total, nil
}

// Search matches user emails case-insensitively on a substring.
func (s *Service) Search(ctx context.Context, viewer uuid.UUID, email string, page shared.Page) ([]User, int, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, 0, fmt.Errorf("%w: search term required", shared.ErrValidation)
	}
	items, total, err := s.repo.Search(ctx, viewer, email, page)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []User{}
	}
	return items, total, nil
}

// Update merges the submitted fields into the stored user. An email change
// re-checks uniqueness and a role change re-checks the reference.
func (s *Service) Update(ctx context.Context, actor, id uuid.UUID, req UpdateRequest) (*User, error) {
	var updated *User
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}

		email := strings.ToLower(shared.MergeString(req.Email, current.Email))
		if email != current.Email {
			existing, err := tx.GetByEmail(ctx, email)
			if err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: email %q", shared.ErrDuplicate, email)
			}
		}

		if req.RoleID != nil && *req.RoleID != current.RoleID {
			ok, err := tx.RoleExists(ctx, *req.RoleID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: role %s", shared.ErrInvalidReference, *req.RoleID)
			}
			current.RoleID = *req.RoleID
		}

		current.Email = email
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
	s.logger.Info("user updated", slog.String("id", id.String()))
	return updated, nil
}

// ResetPassword sets a new password on another account. Resetting one's
// own password goes through ChangePassword instead.
func (s *Service) ResetPassword(ctx context.Context, actor, id uuid.UUID, req ResetPasswordRequest) error {
	if actor == id {
		return fmt.Errorf("%w: use the profile password change for your own account", shared.ErrSelfAction)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Get(ctx, id); err != nil {
			return err
		}
		return tx.UpdatePassword(ctx, id, string(hash), actor)
	})
	if err != nil {
		return err
	}
	s.logger.Info("password reset", slog.String("id", id.String()), slog.String("actor", actor.String()))
	return nil
}

// ChangePassword rotates the viewer's own password after proving the
// current one.
func (s *Service) ChangePassword(ctx context.Context, viewer uuid.UUID, req ChangePasswordRequest) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, viewer)
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(current.PasswordHash), []byte(req.CurrentPassword)) != nil {
			return fmt.Errorf("%w: current password does not match", shared.ErrInvalidCredentials)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("users: hash password: %w", err)
		}
		return tx.UpdatePassword(ctx, viewer, string(hash), viewer)
	})
	if err != nil {
		return err
	}
	s.logger.Info("password changed", slog.String("id", viewer.String()))
	return nil
}

// Delete soft-deletes a user. Deleting one's own account is rejected.
func (s *Service) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if actor == id {
		return fmt.Errorf("%w: cannot delete your own account", shared.ErrSelfAction)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.SoftDelete(ctx, id, actor)
	})
	if err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("id", id.String()))
	return nil
}
