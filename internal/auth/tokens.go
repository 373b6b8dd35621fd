package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/warden-rbac/warden/internal/rbac"
)

// TokenManager signs and verifies the access/refresh token pair. Tokens are
// HMAC-SHA256 signed and immutable once issued; the only mutation path is
// re-issuance through login or refresh.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenManager constructs a TokenManager. The secret is required and must
// be at least 32 bytes.
func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth: jwt secret must be at least 32 bytes")
	}
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Issue mints an access/refresh pair for the user, embedding role id, active
// flag, and the resolved permission set as claims.
func (m *TokenManager) Issue(user *User, permissions rbac.PermissionSet) (TokenPair, error) {
	access, err := m.sign(user, permissions, rbac.TokenUseAccess, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.sign(user, permissions, rbac.TokenUseRefresh, m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) sign(user *User, permissions rbac.PermissionSet, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &rbac.Claims{
		Role:        user.RoleID.String(),
		IsActive:    user.IsActive,
		Permissions: permissions,
		TokenUse:    use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign %s token: %w", use, err)
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns its claims.
func (m *TokenManager) VerifyAccess(token string) (*rbac.Claims, error) {
	return m.verify(token, rbac.TokenUseAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (m *TokenManager) VerifyRefresh(token string) (*rbac.Claims, error) {
	return m.verify(token, rbac.TokenUseRefresh)
}

func (m *TokenManager) verify(tokenString, use string) (*rbac.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &rbac.Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	claims, ok := token.Claims.(*rbac.Claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if claims.TokenUse != use {
		return nil, fmt.Errorf("auth: token is not a %s token", use)
	}
	return claims, nil
}

var _ rbac.TokenVerifier = (*TokenManager)(nil)
