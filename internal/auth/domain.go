// Package auth implements credential verification and session token issuance.
package auth

import (
	"github.com/google/uuid"

	"github.com/warden-rbac/warden/internal/rbac"
)

// User is the account record as the credential chain sees it.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	RoleID       uuid.UUID
	RoleName     string
	IsActive     bool
	IsDeleted    bool
}

// TokenPair is one access/refresh token issuance.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is the login/refresh response payload: the token pair plus the
// permission set embedded in it.
type Session struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	UserEmail    string             `json:"user_email"`
	RoleName     string             `json:"role_name"`
	Permissions  rbac.PermissionSet `json:"permissions"`
}
