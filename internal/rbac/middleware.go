package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/warden-rbac/warden/internal/platform/httpx"
	"github.com/warden-rbac/warden/internal/shared"
)

// TokenVerifier validates a raw access token and returns its claims.
type TokenVerifier interface {
	VerifyAccess(token string) (*Claims, error)
}

// Middleware wires the authorization gate for HTTP handlers. Authenticate
// verifies the bearer token once per request; Require checks the claims
// against a scope without touching the database.
type Middleware struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

// Authenticate extracts and verifies the bearer access token, storing its
// claims in the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		claims, err := m.Verifier.VerifyAccess(token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Info("access token rejected", slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
	})
}

// Require allows the request only when the context claims are active and
// grant the scope's (module, action) pair. Missing module, missing action,
// or an inactive flag all deny.
func (m Middleware) Require(scope shared.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if !claims.IsActive || !claims.Permissions.Has(scope.Module, scope.Action) {
				if m.Logger != nil {
					m.Logger.Info("permission denied",
						slog.String("scope", scope.String()),
						slog.String("subject", claims.Subject))
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
