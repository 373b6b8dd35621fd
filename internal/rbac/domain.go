// Package rbac implements the permission model core: the permission set
// resolved from role grants, the token claims that carry it, and the
// authorization gate that enforces it per request.
package rbac

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PermissionSet maps a lowercased module name to the ordered-unique list of
// lowercased action names granted within it. This is the exact shape embedded
// as the "permissions" claim in issued tokens.
type PermissionSet map[string][]string

// Add records an action under a module, preserving insertion order and
// dropping duplicates. Inputs are expected pre-normalized to lowercase.
func (p PermissionSet) Add(module, action string) {
	for _, existing := range p[module] {
		if existing == action {
			return
		}
	}
	p[module] = append(p[module], action)
}

// Has reports whether the set grants the action within the module. The match
// is case-insensitive against the lowercase-normalized claim.
func (p PermissionSet) Has(module, action string) bool {
	actions, ok := p[strings.ToLower(module)]
	if !ok {
		return false
	}
	action = strings.ToLower(action)
	for _, granted := range actions {
		if granted == action {
			return true
		}
	}
	return false
}

// Token use discriminators. A refresh token can never pass the access gate
// and vice versa.
const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// Claims is the signed token payload: subject is the user id, plus role id,
// account active flag, and the resolved permission set.
type Claims struct {
	Role        string        `json:"role"`
	IsActive    bool          `json:"is_active"`
	Permissions PermissionSet `json:"permissions"`
	TokenUse    string        `json:"token_use"`
	jwt.RegisteredClaims
}

// UserID parses the token subject back into the user id.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
