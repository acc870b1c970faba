package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kaucher/gatehouse/internal/platform/httpx"
	"github.com/kaucher/gatehouse/internal/shared"
	"github.com/kaucher/gatehouse/internal/token"
)

// Guard wires token-based authorization for HTTP handlers.
type Guard struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireScopes validates the request's access token, requires every listed
// scope in its claim and stores the resolved principal in the request
// context. Token failures yield 401; a valid token lacking a scope yields 403.
func (g Guard) RequireScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			principal, err := g.Service.Authenticate(r.Context(), raw, scopes)
			if err != nil {
				g.reject(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func (g Guard) reject(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, token.ErrInsufficientScope):
		httpx.Problem(w, http.StatusForbidden, "forbidden", "insufficient scope")
	case errors.Is(err, token.ErrExpiredToken):
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "token expired")
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrWrongTokenType),
		errors.Is(err, token.ErrMissingSubject),
		errors.Is(err, shared.ErrPrincipalNotFound):
		httpx.Problem(w, http.StatusUnauthorized, "unauthorized", "invalid token")
	default:
		if g.Logger != nil {
			g.Logger.Error("authorize request", slog.Any("error", err))
		}
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "")
	}
}
