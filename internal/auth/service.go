package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kaucher/gatehouse/internal/authz"
	"github.com/kaucher/gatehouse/internal/shared"
	"github.com/kaucher/gatehouse/internal/token"
)

const bearerTokenType = "bearer"

// Service wraps authentication business rules: credential checks, token
// issuance and token-to-principal resolution.
type Service struct {
	repo   Repository
	engine *authz.Engine
	tokens *token.Service
}

// NewService constructs a new Service.
func NewService(repo Repository, engine *authz.Engine, tokens *token.Service) *Service {
	return &Service{repo: repo, engine: engine, tokens: tokens}
}

// Login validates credentials and issues an access/refresh token pair. An
// explicit requestedScopes list narrows the grant to requested ∩ entitled;
// unentitled requested scopes are dropped silently, never escalated. Unknown
// email, wrong password and inactive account all surface as
// shared.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string, requestedScopes []string) (*TokenPair, *User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, shared.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user, requestedScopes)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh validates a refresh token and issues a fresh access token against
// the subject's current roles, so permission changes take effect without
// re-login. The refresh token is returned unchanged; it stays valid until
// its own expiry.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	subject, err := s.tokens.ValidateRefreshToken(rawRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, subject)
	if err != nil {
		return nil, shared.ErrPrincipalNotFound
	}
	if !user.IsActive {
		return nil, shared.ErrPrincipalNotFound
	}

	pair, err := s.issuePair(ctx, user, nil)
	if err != nil {
		return nil, err
	}
	pair.RefreshToken = rawRefresh
	return pair, nil
}

func (s *Service) issuePair(ctx context.Context, user *User, requestedScopes []string) (*TokenPair, error) {
	roles, err := s.repo.RolesByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, authz.ErrNoRolesAssigned
	}
	roleIDs := make([]int64, len(roles))
	roleNames := make([]string, len(roles))
	for i, role := range roles {
		roleIDs[i] = role.ID
		roleNames[i] = role.Name
	}

	entitled, err := s.engine.ScopesForRoles(ctx, roleNames)
	if err != nil {
		return nil, err
	}
	granted := authz.FilterRequested(entitled, requestedScopes)

	access, err := s.tokens.IssueAccessToken(user.Email, roleIDs, roleNames, granted)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.Email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:   access,
		RefreshToken:  refresh,
		TokenType:     bearerTokenType,
		GrantedScopes: granted,
	}, nil
}

// Authenticate validates an access token, enforces requiredScopes against
// its scope claim and re-resolves the subject to a live user. Token validity
// alone is never sufficient; a deleted or deactivated user fails with
// shared.ErrPrincipalNotFound on every call.
func (s *Service) Authenticate(ctx context.Context, rawAccess string, requiredScopes []string) (*shared.Principal, error) {
	claims, err := s.tokens.ValidateAccessToken(rawAccess, requiredScopes)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrPrincipalNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrPrincipalNotFound
	}
	return &shared.Principal{
		ID:     user.ID,
		Email:  user.Email,
		Roles:  claims.Roles,
		Scopes: claims.Scopes,
	}, nil
}

// Introspect reports token liveness without ever raising. An otherwise-valid
// token whose subject no longer resolves is reported inactive.
func (s *Service) Introspect(ctx context.Context, raw string) token.Introspection {
	res := s.tokens.Introspect(raw)
	if !res.Active {
		return res
	}
	user, err := s.repo.FindByEmail(ctx, res.Claims.Subject)
	if err != nil || !user.IsActive {
		return token.Introspection{Active: false, Reason: "principal not found"}
	}
	return res
}

// RecordLogin persists the login audit metadata.
func (s *Service) RecordLogin(ctx context.Context, id string, userID int64, expiresAt time.Time, meta LoginMeta) error {
	return s.repo.RecordLogin(ctx, id, userID, expiresAt, meta.IP, meta.UserAgent)
}
