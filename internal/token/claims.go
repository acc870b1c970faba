package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Type discriminates access tokens from refresh tokens. The two are signed
// with distinct secrets and are never interchangeable.
type Type string

const (
	// TypeAccess marks a short-lived, scope-bearing access token.
	TypeAccess Type = "access"
	// TypeRefresh marks a longer-lived, identity-only refresh token.
	TypeRefresh Type = "refresh"
)

// Claims is the only supported claim shape for this service. Scopes and
// roles are present on access tokens only; refresh tokens carry identity,
// nothing else.
type Claims struct {
	jwt.RegisteredClaims

	TokenType Type     `json:"token_type"`
	RoleIDs   []int64  `json:"role_ids,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

// HasScope reports whether the claim set carries the scope.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
