package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleRef identifies a role assigned to a user.
type RoleRef struct {
	ID   int64
	Name string
}

// TokenPair is the credential bundle returned by login and refresh.
type TokenPair struct {
	AccessToken   string   `json:"access_token"`
	RefreshToken  string   `json:"refresh_token"`
	TokenType     string   `json:"token_type"`
	GrantedScopes []string `json:"scopes"`
}

// LoginMeta carries request metadata recorded with the login audit row.
type LoginMeta struct {
	IP        string
	UserAgent string
}
