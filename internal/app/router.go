package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kaucher/gatehouse/internal/auth"
	"github.com/kaucher/gatehouse/internal/platform/httpx"
	"github.com/kaucher/gatehouse/internal/roles"
	"github.com/kaucher/gatehouse/internal/users"
	"github.com/kaucher/gatehouse/jobs"
)

// BuildInfo identifies the running binary on the info endpoint.
type BuildInfo struct {
	Version string `json:"api_version"`
	Build   string `json:"build_version"`
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	RolesHandler *roles.Handler
	JobsHandler  *jobs.Handler
	Build        BuildInfo
}

// NewRouter constructs the chi.Router with Gatehouse defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api-info", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, params.Build)
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/roles", params.RolesHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
