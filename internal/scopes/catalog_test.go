package scopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckScope(t *testing.T) {
	assert.NoError(t, CheckScope("users:read"))
	assert.ErrorIs(t, CheckScope("users"), ErrMalformedScope)
	assert.ErrorIs(t, CheckScope(":read"), ErrMalformedScope)
	assert.ErrorIs(t, CheckScope("users:"), ErrMalformedScope)
}

func TestNewCatalogRejectsMalformedScope(t *testing.T) {
	_, err := NewCatalog(map[string][]string{"student": {"oops"}}, nil)
	assert.ErrorIs(t, err, ErrMalformedScope)

	_, err = NewCatalog(
		map[string][]string{"student": {"users:me"}},
		map[string]Declaration{"x": {InheritsFrom: []string{"student"}, ExcludedScopes: []string{"bad"}}},
	)
	assert.ErrorIs(t, err, ErrMalformedScope)
}

func TestCatalogRoleNames(t *testing.T) {
	catalog := testCatalog(t)
	assert.Equal(t, []string{"junior_manager", "manager", "student"}, catalog.RoleNames())
}

func TestCatalogBaseScopesCopy(t *testing.T) {
	catalog := testCatalog(t)
	scopes, err := catalog.BaseScopes("student")
	require.NoError(t, err)
	scopes[0] = "tampered"

	again, err := catalog.BaseScopes("student")
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment:read", "users:me"}, again)
}

func TestCatalogDeclarationUnknown(t *testing.T) {
	catalog := testCatalog(t)
	_, err := catalog.Declaration("ghost")
	assert.ErrorIs(t, err, ErrUnknownRole)
	_, err = catalog.Declaration("student") // base, not derived
	assert.ErrorIs(t, err, ErrUnknownRole)
}
