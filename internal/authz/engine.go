package authz

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/kaucher/gatehouse/internal/scopes"
)

// ErrNoRolesAssigned indicates a principal without any roles. A principal
// with no roles cannot be authorized for anything; login rejects this state
// instead of minting an empty-but-valid token.
var ErrNoRolesAssigned = errors.New("authz: no roles assigned")

// Engine aggregates effective scopes across a principal's roles.
type Engine struct {
	store *scopes.Store
	cache *Cache
}

// NewEngine constructs an Engine. The cache may be nil.
func NewEngine(store *scopes.Store, cache *Cache) *Engine {
	return &Engine{store: store, cache: cache}
}

// ScopesForRoles returns the union of every role's resolved scope set,
// sorted and deduplicated. The resolver and the cache key version come from
// the same snapshot, so a concurrent catalog mutation can never file a
// post-mutation entitlement under a pre-mutation key.
func (e *Engine) ScopesForRoles(ctx context.Context, roleNames []string) ([]string, error) {
	if len(roleNames) == 0 {
		return nil, ErrNoRolesAssigned
	}
	resolver, version := e.store.View()
	if e.cache == nil {
		return aggregate(resolver, roleNames)
	}
	key := entitlementKey(version, roleNames)
	return e.cache.GetOrFill(ctx, key, func() ([]string, error) {
		return aggregate(resolver, roleNames)
	})
}

func aggregate(resolver *scopes.Resolver, roleNames []string) ([]string, error) {
	union := make(map[string]struct{})
	for _, name := range roleNames {
		resolved, err := resolver.Resolve(name)
		if err != nil {
			return nil, err
		}
		for _, s := range resolved {
			union[s] = struct{}{}
		}
	}
	entitled := make([]string, 0, len(union))
	for s := range union {
		entitled = append(entitled, s)
	}
	sort.Strings(entitled)
	return entitled, nil
}

// HasScope reports whether the aggregated entitlement contains the scope.
func (e *Engine) HasScope(ctx context.Context, roleNames []string, scope string) (bool, error) {
	entitled, err := e.ScopesForRoles(ctx, roleNames)
	if err != nil {
		return false, err
	}
	for _, s := range entitled {
		if s == scope {
			return true, nil
		}
	}
	return false, nil
}

// FilterRequested narrows an explicit scope request down to what the caller
// is entitled to. Unrecognized or unentitled requested scopes are silently
// dropped, never escalated and never an error. An empty request grants the
// full entitlement.
func FilterRequested(entitled, requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(entitled))
		copy(out, entitled)
		return out
	}
	allowed := make(map[string]struct{}, len(entitled))
	for _, s := range entitled {
		allowed[s] = struct{}{}
	}
	granted := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		if _, ok := allowed[s]; !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		granted = append(granted, s)
	}
	sort.Strings(granted)
	return granted
}

func entitlementKey(version int64, roleNames []string) string {
	names := make([]string, len(roleNames))
	copy(names, roleNames)
	sort.Strings(names)
	var b strings.Builder
	b.WriteString("authz:entitlement:")
	b.WriteString(strings.Join(names, ","))
	b.WriteByte(':')
	b.WriteString(versionString(version))
	return b.String()
}
