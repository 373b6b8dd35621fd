package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warden-rbac/warden/internal/actions"
	"github.com/warden-rbac/warden/internal/auth"
	"github.com/warden-rbac/warden/internal/modules"
	"github.com/warden-rbac/warden/internal/observability"
	"github.com/warden-rbac/warden/internal/permissions"
	"github.com/warden-rbac/warden/internal/rbac"
	"github.com/warden-rbac/warden/internal/roles"
	"github.com/warden-rbac/warden/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Pool               *pgxpool.Pool
	AuthHandler        *auth.Handler
	ModulesHandler     *modules.Handler
	ActionsHandler     *actions.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *permissions.Handler
	Gate               rbac.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with warden defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := params.Pool.Ping(r.Context()); err != nil {
			params.Logger.Warn("readiness ping", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		// Credential probing gets a tighter rate limit than the rest of the API.
		r.Use(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		params.AuthHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(params.Gate.Authenticate)
		r.Route("/modules", params.ModulesHandler.MountRoutes)
		r.Route("/actions", params.ActionsHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	})

	return r
}
