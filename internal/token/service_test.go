package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "gatehouse-test",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewService(testConfig())
	raw, err := svc.IssueAccessToken("user@test.local", []int64{7}, []string{"manager"}, []string{"users:me", "reports:read"})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "user@test.local", claims.Subject)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.Equal(t, []int64{7}, claims.RoleIDs)
	assert.Equal(t, []string{"manager"}, claims.Roles)
	assert.Equal(t, []string{"users:me", "reports:read"}, claims.Scopes)
	assert.NotEmpty(t, claims.ID)
}

func TestAccessTokenRequiredScopes(t *testing.T) {
	svc := NewService(testConfig())
	raw, err := svc.IssueAccessToken("user@test.local", nil, nil, []string{"users:me"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(raw, []string{"users:me"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(raw, []string{"users:me", "admin:full"})
	assert.ErrorIs(t, err, ErrInsufficientScope)
}

func TestExpiredAccessToken(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = -time.Second
	svc := NewService(cfg)

	raw, err := svc.IssueAccessToken("user@test.local", nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(raw, nil)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestExpiryUsesInjectedClock(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := NewServiceWithClock(testConfig(), func() time.Time { return now })

	raw, err := svc.IssueAccessToken("user@test.local", nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(raw, nil)
	require.NoError(t, err)

	now = now.Add(16 * time.Minute)
	_, err = svc.ValidateAccessToken(raw, nil)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCrossTypeRejection(t *testing.T) {
	svc := NewService(testConfig())

	refresh, err := svc.IssueRefreshToken("user@test.local")
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(refresh, nil)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	access, err := svc.IssueAccessToken("user@test.local", nil, nil, nil)
	require.NoError(t, err)
	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTamperedTokenRejected(t *testing.T) {
	svc := NewService(testConfig())
	raw, err := svc.IssueAccessToken("user@test.local", nil, nil, nil)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, err = svc.ValidateAccessToken(tampered, nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGarbageTokenRejected(t *testing.T) {
	svc := NewService(testConfig())
	_, err := svc.ValidateAccessToken("not-a-token", nil)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMissingSubjectRejected(t *testing.T) {
	svc := NewService(testConfig())
	raw, err := svc.IssueAccessToken("", nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(raw, nil)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	svc := NewService(testConfig())
	raw, err := svc.IssueRefreshToken("user@test.local")
	require.NoError(t, err)

	subject, err := svc.ValidateRefreshToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "user@test.local", subject)
}

func TestIntrospectNeverErrors(t *testing.T) {
	svc := NewService(testConfig())

	access, err := svc.IssueAccessToken("user@test.local", nil, nil, []string{"users:me"})
	require.NoError(t, err)
	res := svc.Introspect(access)
	assert.True(t, res.Active)
	require.NotNil(t, res.Claims)
	assert.Equal(t, TypeAccess, res.Claims.TokenType)

	refresh, err := svc.IssueRefreshToken("user@test.local")
	require.NoError(t, err)
	res = svc.Introspect(refresh)
	assert.True(t, res.Active)
	require.NotNil(t, res.Claims)
	assert.Equal(t, TypeRefresh, res.Claims.TokenType)

	res = svc.Introspect("garbage")
	assert.False(t, res.Active)
	assert.Equal(t, "invalid", res.Reason)
	assert.Nil(t, res.Claims)
}

func TestIntrospectExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = -time.Second
	svc := NewService(cfg)

	raw, err := svc.IssueAccessToken("user@test.local", nil, nil, nil)
	require.NoError(t, err)

	res := svc.Introspect(raw)
	assert.False(t, res.Active)
	assert.Equal(t, "expired", res.Reason)
}
