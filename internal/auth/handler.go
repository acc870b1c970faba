package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kaucher/gatehouse/internal/authz"
	"github.com/kaucher/gatehouse/internal/platform/httpx"
	"github.com/kaucher/gatehouse/internal/shared"
	"github.com/kaucher/gatehouse/internal/token"
)

const authCookieName = "Authorization"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	accessTTL time.Duration
	secure    bool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, accessTTL time.Duration, secure bool) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		accessTTL: accessTTL,
		secure:    secure,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	loginLimiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	introspectLimiter := httprate.Limit(30, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))
	r.With(loginLimiter).Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
	r.With(introspectLimiter).Post("/introspect", h.handleIntrospect)
	r.Post("/logout", h.handleLogout)

	guard := Guard{Service: h.service, Logger: h.logger}
	r.With(guard.RequireScopes("users:me")).Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8"`
	Scopes   []string `json:"scopes,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	pair, user, err := h.service.Login(r.Context(), req.Email, req.Password, req.Scopes)
	if err != nil {
		h.respondError(w, err)
		return
	}

	expiresAt := time.Now().Add(h.accessTTL)
	auditID := uuid.NewString()
	meta := LoginMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
	if err := h.service.RecordLogin(r.Context(), auditID, user.ID, expiresAt, meta); err != nil {
		h.logger.Warn("record login", slog.Any("error", err))
	}

	h.setAuthCookie(w, pair.AccessToken, expiresAt)
	httpx.JSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.setAuthCookie(w, pair.AccessToken, time.Now().Add(h.accessTTL))
	httpx.JSON(w, http.StatusOK, pair)
}

type introspectRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *Handler) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	var req introspectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.Introspect(r.Context(), req.Token))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Tokens are never stored server-side; logout only clears the cookie.
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "no principal in context")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"id":     principal.ID,
		"email":  principal.Email,
		"roles":  principal.Roles,
		"scopes": principal.Scopes,
	})
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, accessToken string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "Bearer " + accessToken,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, authz.ErrNoRolesAssigned):
		httpx.Problem(w, http.StatusForbidden, "forbidden", "no roles assigned")
	case errors.Is(err, shared.ErrPrincipalNotFound):
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "principal not found")
	case errors.Is(err, token.ErrExpiredToken),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrWrongTokenType),
		errors.Is(err, token.ErrMissingSubject):
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "invalid token")
	case errors.Is(err, token.ErrInsufficientScope):
		httpx.Problem(w, http.StatusForbidden, "forbidden", "insufficient scope")
	default:
		// Catalog configuration errors land here; they are never
		// user-triggerable and warrant a 5xx.
		h.logger.Error("auth request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
	}
}

// BearerToken extracts a bearer token from the Authorization header, falling
// back to the Authorization cookie.
func BearerToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	if raw == "" {
		if cookie, err := r.Cookie(authCookieName); err == nil {
			raw = cookie.Value
		}
	}
	scheme, value, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || value == "" {
		return "", false
	}
	return value, true
}
