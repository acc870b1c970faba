package scopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(
		map[string][]string{
			"student": {"users:me", "equipment:read"},
		},
		map[string]Declaration{
			"manager": {
				InheritsFrom:     []string{"student"},
				AdditionalScopes: []string{"equipment:create", "equipment:delete"},
			},
			"junior_manager": {
				InheritsFrom:   []string{"manager"},
				ExcludedScopes: []string{"equipment:delete"},
			},
		},
	)
	require.NoError(t, err)
	return catalog
}

func TestResolveBaseRoleVerbatim(t *testing.T) {
	r := NewResolver(testCatalog(t))
	scopes, err := r.Resolve("student")
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment:read", "users:me"}, scopes)
}

func TestResolveBaseRoleReturnsCopy(t *testing.T) {
	r := NewResolver(testCatalog(t))
	first, err := r.Resolve("student")
	require.NoError(t, err)
	first[0] = "tampered"

	second, err := r.Resolve("student")
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment:read", "users:me"}, second)
}

func TestResolveInheritsAndAdds(t *testing.T) {
	r := NewResolver(testCatalog(t))
	scopes, err := r.Resolve("manager")
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment:create", "equipment:delete", "equipment:read", "users:me"}, scopes)
}

func TestExclusionAlwaysWins(t *testing.T) {
	r := NewResolver(testCatalog(t))
	scopes, err := r.Resolve("junior_manager")
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment:create", "equipment:read", "users:me"}, scopes)
	assert.NotContains(t, scopes, "equipment:delete")
}

func TestResolveIdempotent(t *testing.T) {
	r := NewResolver(testCatalog(t))
	first, err := r.Resolve("junior_manager")
	require.NoError(t, err)
	second, err := r.Resolve("junior_manager")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveUnknownRole(t *testing.T) {
	r := NewResolver(testCatalog(t))
	_, err := r.Resolve("ghost")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestDiamondInheritanceDeduplicates(t *testing.T) {
	catalog, err := NewCatalog(
		map[string][]string{
			"base": {"shared:scope"},
		},
		map[string]Declaration{
			"left":  {InheritsFrom: []string{"base"}, AdditionalScopes: []string{"left:only"}},
			"right": {InheritsFrom: []string{"base"}, AdditionalScopes: []string{"right:only"}},
			"top":   {InheritsFrom: []string{"left", "right"}},
		},
	)
	require.NoError(t, err)

	scopes, err := NewResolver(catalog).Resolve("top")
	require.NoError(t, err)
	assert.Equal(t, []string{"left:only", "right:only", "shared:scope"}, scopes)
}

func TestExclusionBeatsDiamondGrants(t *testing.T) {
	// Both parents grant the scope; the child's exclusion still removes it.
	catalog, err := NewCatalog(
		map[string][]string{
			"base": {"equipment:delete", "users:me"},
		},
		map[string]Declaration{
			"left":  {InheritsFrom: []string{"base"}},
			"right": {InheritsFrom: []string{"base"}},
			"restricted": {
				InheritsFrom:   []string{"left", "right"},
				ExcludedScopes: []string{"equipment:delete"},
			},
		},
	)
	require.NoError(t, err)

	scopes, err := NewResolver(catalog).Resolve("restricted")
	require.NoError(t, err)
	assert.Equal(t, []string{"users:me"}, scopes)
}

func TestCatalogLoadRejectsCycle(t *testing.T) {
	_, err := NewCatalog(nil, map[string]Declaration{
		"a": {InheritsFrom: []string{"b"}},
		"b": {InheritsFrom: []string{"a"}},
	})
	assert.ErrorIs(t, err, ErrCyclicRoleGraph)
}

func TestResolverDetectsCycleInRawCatalog(t *testing.T) {
	// Bypass constructor validation to prove the walk itself cannot loop.
	catalog := &Catalog{
		base: map[string][]string{},
		derived: map[string]Declaration{
			"a": {InheritsFrom: []string{"b"}},
			"b": {InheritsFrom: []string{"a"}},
		},
	}
	_, err := NewResolver(catalog).Resolve("a")
	assert.ErrorIs(t, err, ErrCyclicRoleGraph)
}

func TestCatalogRejectsUnknownParent(t *testing.T) {
	_, err := NewCatalog(nil, map[string]Declaration{
		"orphan": {InheritsFrom: []string{"missing"}},
	})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestResolveAll(t *testing.T) {
	r := NewResolver(testCatalog(t))
	all, err := r.ResolveAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"equipment:read", "users:me"}, all["student"])
	assert.Equal(t, []string{"equipment:create", "equipment:read", "users:me"}, all["junior_manager"])
}

func TestBreakdown(t *testing.T) {
	r := NewResolver(testCatalog(t))

	base, err := r.Breakdown("student")
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment:read", "users:me"}, base.Direct)
	assert.Empty(t, base.Inherited)
	assert.Empty(t, base.Excluded)

	derived, err := r.Breakdown("junior_manager")
	require.NoError(t, err)
	assert.Empty(t, derived.Direct)
	assert.Equal(t, []string{"equipment:create", "equipment:delete", "equipment:read", "users:me"}, derived.Inherited)
	assert.Equal(t, []string{"equipment:delete"}, derived.Excluded)
}

func TestScopeSources(t *testing.T) {
	r := NewResolver(testCatalog(t))
	sources, err := r.ScopeSources("manager")
	require.NoError(t, err)
	assert.Equal(t, []string{"equipment:create", "equipment:delete"}, sources["manager"])
	assert.Equal(t, []string{"equipment:read", "users:me"}, sources["student"])
}

func TestInvalidExclusionsAudit(t *testing.T) {
	catalog, err := NewCatalog(
		map[string][]string{
			"student": {"users:me"},
		},
		map[string]Declaration{
			"odd": {
				InheritsFrom:   []string{"student"},
				ExcludedScopes: []string{"never:granted"},
			},
			"fine": {
				InheritsFrom:   []string{"student"},
				ExcludedScopes: []string{"users:me"},
			},
		},
	)
	require.NoError(t, err)

	issues, err := NewResolver(catalog).InvalidExclusions()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, InvalidExclusion{Role: "odd", Scope: "never:granted"}, issues[0])
}

func TestDefaultCatalogJuniorManagerScenario(t *testing.T) {
	r := NewResolver(DefaultCatalog())
	scopes, err := r.Resolve("junior_manager")
	require.NoError(t, err)
	assert.Contains(t, scopes, "equipment:create")
	assert.Contains(t, scopes, "equipment:read")
	assert.Contains(t, scopes, "users:me")
	assert.NotContains(t, scopes, "equipment:delete")
}

func TestDefaultCatalogReadonlyAdminHasNoWrites(t *testing.T) {
	r := NewResolver(DefaultCatalog())
	scopes, err := r.Resolve("readonly_admin")
	require.NoError(t, err)
	assert.Contains(t, scopes, "users:read")
	assert.NotContains(t, scopes, "users:create")
	assert.NotContains(t, scopes, "roles:manage")
}
