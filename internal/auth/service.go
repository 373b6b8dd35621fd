package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/warden-rbac/warden/internal/rbac"
	"github.com/warden-rbac/warden/internal/shared"
)

// PermissionResolver computes the permission set for a role.
type PermissionResolver interface {
	Resolve(ctx context.Context, roleID uuid.UUID) (rbac.PermissionSet, error)
}

// LoginMetrics counts login outcomes. A nil value disables counting.
type LoginMetrics interface {
	RecordLogin(outcome string)
}

// Service wraps the credential chain and token issuance.
type Service struct {
	repo     Repository
	resolver PermissionResolver
	tokens   *TokenManager
	throttle *LoginThrottle
	metrics  LoginMetrics
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, resolver PermissionResolver, tokens *TokenManager, throttle *LoginThrottle, metrics LoginMetrics, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, tokens: tokens, throttle: throttle, metrics: metrics, logger: logger}
}

// Login runs the credential chain in strict order: account exists, password
// verifies, not deleted, active. Every failure collapses into the same
// generic error so callers cannot probe which check failed. On success the
// role's permissions are resolved and a token pair minted.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	if !s.throttle.Allow(ctx, email) {
		return nil, shared.ErrTooManyAttempts
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.rejected(ctx, email)
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.rejected(ctx, email)
		return nil, shared.ErrInvalidCredentials
	}
	if user.IsDeleted {
		s.rejected(ctx, email)
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.rejected(ctx, email)
		return nil, shared.ErrInvalidCredentials
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.throttle.Reset(ctx, email)
	if s.metrics != nil {
		s.metrics.RecordLogin("success")
	}
	s.logger.Info("login succeeded", slog.String("email", email))
	return session, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The subject is
// re-derived and permissions re-resolved from current database state, so
// grants revoked since the original login disappear within one refresh
// cycle. A bad token and a vanished user are distinct failures.
func (s *Service) Refresh(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, shared.ErrRefreshToken
	}
	claims, err := s.tokens.VerifyRefresh(rawToken)
	if err != nil {
		return nil, shared.ErrRefreshToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, shared.ErrRefreshToken
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUserGone
		}
		return nil, err
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session refreshed", slog.String("email", user.Email))
	return session, nil
}

func (s *Service) issue(ctx context.Context, user *User) (*Session, error) {
	permissions := rbac.PermissionSet{}
	if user.RoleID != uuid.Nil {
		resolved, err := s.resolver.Resolve(ctx, user.RoleID)
		if err != nil {
			return nil, err
		}
		permissions = resolved
	}
	pair, err := s.tokens.Issue(user, permissions)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserEmail:    user.Email,
		RoleName:     user.RoleName,
		Permissions:  permissions,
	}, nil
}

func (s *Service) rejected(ctx context.Context, email string) {
	s.throttle.Record(ctx, email)
	if s.metrics != nil {
		s.metrics.RecordLogin("rejected")
	}
	s.logger.Info("login rejected", slog.String("email", email))
}
