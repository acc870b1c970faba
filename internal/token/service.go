package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken indicates a malformed token or a bad signature.
	ErrInvalidToken = errors.New("token: invalid token")
	// ErrExpiredToken indicates the token is past its expiry.
	ErrExpiredToken = errors.New("token: expired token")
	// ErrWrongTokenType indicates an access token used as a refresh token
	// or the reverse.
	ErrWrongTokenType = errors.New("token: wrong token type")
	// ErrMissingSubject indicates a token without a subject claim.
	ErrMissingSubject = errors.New("token: missing subject")
	// ErrInsufficientScope indicates a required scope absent from the claim.
	ErrInsufficientScope = errors.New("token: insufficient scope")
)

// Config carries the signing material and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// Service issues and validates signed tokens. It is stateless; every
// operation is a pure computation over the configured secrets and the clock.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService constructs a Service using the wall clock.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg, now: time.Now}
}

// NewServiceWithClock constructs a Service with an injected clock for tests.
func NewServiceWithClock(cfg Config, now func() time.Time) *Service {
	return &Service{cfg: cfg, now: now}
}

// IssueAccessToken signs an access token carrying identity, roles and the
// granted scope set.
func (s *Service) IssueAccessToken(subject string, roleIDs []int64, roleNames, grantedScopes []string) (string, error) {
	now := s.now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
		},
		TokenType: TypeAccess,
		RoleIDs:   roleIDs,
		Roles:     roleNames,
		Scopes:    grantedScopes,
	}
	return s.sign(claims, s.cfg.AccessSecret)
}

// IssueRefreshToken signs a refresh token carrying only identity. Refresh
// tokens are identity-renewal artifacts, not authorization artifacts, so no
// scopes or roles are embedded.
func (s *Service) IssueRefreshToken(subject string) (string, error) {
	now := s.now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.RefreshTTL)),
		},
		TokenType: TypeRefresh,
	}
	return s.sign(claims, s.cfg.RefreshSecret)
}

func (s *Service) sign(claims *Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// ValidateAccessToken verifies signature and expiry against the access
// secret, checks the token type and subject, and requires every scope in
// requiredScopes to be present in the claim.
func (s *Service) ValidateAccessToken(raw string, requiredScopes []string) (*Claims, error) {
	claims, err := s.parse(raw, s.cfg.AccessSecret)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			// Classify a token signed with the sibling secret: still
			// rejected, but as a type mismatch rather than a forgery.
			if other, otherErr := s.parse(raw, s.cfg.RefreshSecret); otherErr == nil && other.TokenType == TypeRefresh {
				return nil, ErrWrongTokenType
			}
		}
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	for _, required := range requiredScopes {
		if !claims.HasScope(required) {
			return nil, fmt.Errorf("%w: %s", ErrInsufficientScope, required)
		}
	}
	return claims, nil
}

// ValidateRefreshToken verifies a refresh token and returns its subject.
func (s *Service) ValidateRefreshToken(raw string) (string, error) {
	claims, err := s.parse(raw, s.cfg.RefreshSecret)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			if other, otherErr := s.parse(raw, s.cfg.AccessSecret); otherErr == nil && other.TokenType == TypeAccess {
				return "", ErrWrongTokenType
			}
		}
		return "", err
	}
	if claims.TokenType != TypeRefresh {
		return "", ErrWrongTokenType
	}
	if claims.Subject == "" {
		return "", ErrMissingSubject
	}
	return claims.Subject, nil
}

// Introspection is the always-answer result of Introspect.
type Introspection struct {
	Active bool    `json:"active"`
	Claims *Claims `json:"claims,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// Introspect reports whether a token is live. It never returns an error:
// expiry, bad signatures and schema failures all become a structured
// inactive result. Both token kinds are recognized.
func (s *Service) Introspect(raw string) Introspection {
	claims, err := s.parse(raw, s.cfg.AccessSecret)
	if err != nil && errors.Is(err, ErrInvalidToken) {
		claims, err = s.parse(raw, s.cfg.RefreshSecret)
	}
	if err != nil {
		reason := "invalid"
		if errors.Is(err, ErrExpiredToken) {
			reason = "expired"
		}
		return Introspection{Active: false, Reason: reason}
	}
	if claims.Subject == "" {
		return Introspection{Active: false, Reason: "missing subject"}
	}
	return Introspection{Active: true, Claims: claims}
}

func (s *Service) parse(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
