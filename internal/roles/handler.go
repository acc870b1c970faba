package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/kaucher/gatehouse/internal/auth"
	"github.com/kaucher/gatehouse/internal/platform/httpx"
	"github.com/kaucher/gatehouse/internal/scopes"
)

// Handler wires HTTP endpoints for role management and diagnostics.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     auth.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard auth.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers role routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{name}", h.handleGet)
	r.Get("/{name}/scopes", h.handleScopes)
	r.Get("/{name}/analysis", h.handleAnalysis)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireScopes("roles:manage"))
		r.Post("/", h.handleCreate)
		r.Get("/exclusions/audit", h.handleExclusionAudit)
		r.Post("/{name}/exclusions", h.handleAddExclusion)
		r.Delete("/{name}/exclusions/{scope}", h.handleRemoveExclusion)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	if list == nil {
		list = []Role{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) handleScopes(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	resolved, err := h.service.ResolveScopes(name)
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": name, "scopes": resolved})
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Analyze(chi.URLParam(r, "name"))
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis)
}

type createRoleRequest struct {
	Name             string   `json:"name" validate:"required,min=2,max=64"`
	Description      string   `json:"description"`
	InheritsFrom     []string `json:"inherits_from" validate:"required,min=1"`
	AdditionalScopes []string `json:"additional_scopes"`
	ExcludedScopes   []string `json:"excluded_scopes"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	role, err := h.service.CreateRole(r.Context(), CreateRoleInput{
		Name:             req.Name,
		Description:      req.Description,
		InheritsFrom:     req.InheritsFrom,
		AdditionalScopes: req.AdditionalScopes,
		ExcludedScopes:   req.ExcludedScopes,
	})
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) handleExclusionAudit(w http.ResponseWriter, r *http.Request) {
	issues, err := h.service.AuditExclusions()
	if err != nil {
		h.logger.Error("audit exclusions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
		return
	}
	if issues == nil {
		issues = []scopes.InvalidExclusion{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"issues": issues})
}

type exclusionRequest struct {
	Scope string `json:"scope" validate:"required"`
}

func (h *Handler) handleAddExclusion(w http.ResponseWriter, r *http.Request) {
	var req exclusionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	role, err := h.service.AddExclusion(r.Context(), chi.URLParam(r, "name"), req.Scope)
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) handleRemoveExclusion(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.RemoveExclusion(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "scope"))
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scopes.ErrUnknownRole):
		httpx.Problem(w, http.StatusNotFound, "not found", "unknown role")
	case errors.Is(err, scopes.ErrRoleExists):
		httpx.Problem(w, http.StatusConflict, "conflict", "role already exists")
	case errors.Is(err, scopes.ErrMalformedScope):
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", "malformed scope")
	case errors.Is(err, scopes.ErrCyclicRoleGraph):
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", "cyclic role inheritance")
	default:
		h.logger.Error("role operation failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
	}
}
