package scopes

import (
	"fmt"
	"sort"
	"sync"
)

// Resolver computes effective scope sets over one catalog snapshot. Results
// are memoized per role; the resolver must be discarded together with its
// snapshot when the catalog is swapped.
type Resolver struct {
	catalog *Catalog

	mu   sync.RWMutex
	memo map[string][]string
}

// NewResolver constructs a resolver for the given snapshot.
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{
		catalog: catalog,
		memo:    make(map[string][]string),
	}
}

// Resolve returns the final effective scope set for a role: the union of all
// inherited scopes plus the role's own additions, minus its exclusions.
// Exclusions are applied after the full union, so a scope excluded by a role
// is gone even when several parent branches grant it. The result is sorted,
// deduplicated and safe for the caller to mutate.
func (r *Resolver) Resolve(role string) ([]string, error) {
	resolved, err := r.resolve(role, make(map[string]struct{}))
	if err != nil {
		return nil, err
	}
	out := make([]string, len(resolved))
	copy(out, resolved)
	return out, nil
}

func (r *Resolver) resolve(role string, visiting map[string]struct{}) ([]string, error) {
	r.mu.RLock()
	cached, ok := r.memo[role]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if r.catalog.IsBaseRole(role) {
		scopes, err := r.catalog.BaseScopes(role)
		if err != nil {
			return nil, err
		}
		r.store(role, scopes)
		return scopes, nil
	}

	decl, err := r.catalog.Declaration(role)
	if err != nil {
		return nil, err
	}

	// Catalog constructors reject cycles already; the visited set keeps a
	// hand-built catalog value from looping the walk.
	if _, ok := visiting[role]; ok {
		return nil, fmt.Errorf("%w: %s", ErrCyclicRoleGraph, role)
	}
	visiting[role] = struct{}{}
	defer delete(visiting, role)

	union := make(map[string]struct{})
	for _, parent := range decl.InheritsFrom {
		parentScopes, err := r.resolve(parent, visiting)
		if err != nil {
			return nil, err
		}
		for _, s := range parentScopes {
			union[s] = struct{}{}
		}
	}
	for _, s := range decl.AdditionalScopes {
		union[s] = struct{}{}
	}
	for _, s := range decl.ExcludedScopes {
		delete(union, s)
	}

	scopes := make([]string, 0, len(union))
	for s := range union {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	r.store(role, scopes)
	return scopes, nil
}

func (r *Resolver) store(role string, scopes []string) {
	r.mu.Lock()
	r.memo[role] = scopes
	r.mu.Unlock()
}

// ResolveAll resolves every declared role.
func (r *Resolver) ResolveAll() (map[string][]string, error) {
	out := make(map[string][]string)
	for _, name := range r.catalog.RoleNames() {
		scopes, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		out[name] = scopes
	}
	return out, nil
}

// Breakdown splits a role's effective scopes by provenance.
type Breakdown struct {
	Direct    []string `json:"direct"`
	Inherited []string `json:"inherited"`
	Excluded  []string `json:"excluded"`
}

// Breakdown reports where a role's scopes come from: its own additions,
// its inherited union, and its exclusion list. Diagnostics only.
func (r *Resolver) Breakdown(role string) (Breakdown, error) {
	if r.catalog.IsBaseRole(role) {
		direct, err := r.catalog.BaseScopes(role)
		if err != nil {
			return Breakdown{}, err
		}
		return Breakdown{Direct: direct, Inherited: []string{}, Excluded: []string{}}, nil
	}

	decl, err := r.catalog.Declaration(role)
	if err != nil {
		return Breakdown{}, err
	}

	inherited := make(map[string]struct{})
	for _, parent := range decl.InheritsFrom {
		parentScopes, err := r.Resolve(parent)
		if err != nil {
			return Breakdown{}, err
		}
		for _, s := range parentScopes {
			inherited[s] = struct{}{}
		}
	}
	direct := make(map[string]struct{}, len(decl.AdditionalScopes))
	for _, s := range decl.AdditionalScopes {
		direct[s] = struct{}{}
		delete(inherited, s)
	}

	out := Breakdown{
		Direct:    setToSorted(direct),
		Inherited: setToSorted(inherited),
		Excluded:  make([]string, len(decl.ExcludedScopes)),
	}
	copy(out.Excluded, decl.ExcludedScopes)
	return out, nil
}

// ScopeSources maps each contributing role (the role itself for direct
// additions, ancestors for inherited scopes) to the scopes it brings in.
// Informational only, never consulted for access decisions.
func (r *Resolver) ScopeSources(role string) (map[string][]string, error) {
	if r.catalog.IsBaseRole(role) {
		scopes, err := r.catalog.BaseScopes(role)
		if err != nil {
			return nil, err
		}
		return map[string][]string{role: scopes}, nil
	}

	decl, err := r.catalog.Declaration(role)
	if err != nil {
		return nil, err
	}

	sources := make(map[string][]string)
	if len(decl.AdditionalScopes) > 0 {
		direct := make([]string, len(decl.AdditionalScopes))
		copy(direct, decl.AdditionalScopes)
		sources[role] = direct
	}
	for _, parent := range decl.InheritsFrom {
		parentScopes, err := r.Resolve(parent)
		if err != nil {
			return nil, err
		}
		if len(parentScopes) > 0 {
			sources[parent] = parentScopes
		}
	}
	return sources, nil
}

// InvalidExclusion flags a role excluding a scope it never would have held.
type InvalidExclusion struct {
	Role  string `json:"role"`
	Scope string `json:"scope"`
}

// InvalidExclusions audits every derived role for exclusions of scopes that
// are neither inherited nor added by the role itself. A configuration smell
// surfaced for operators, not an error.
func (r *Resolver) InvalidExclusions() ([]InvalidExclusion, error) {
	var issues []InvalidExclusion
	for _, name := range r.catalog.RoleNames() {
		if r.catalog.IsBaseRole(name) {
			continue
		}
		decl, err := r.catalog.Declaration(name)
		if err != nil {
			return nil, err
		}
		if len(decl.ExcludedScopes) == 0 {
			continue
		}
		available := make(map[string]struct{})
		for _, parent := range decl.InheritsFrom {
			parentScopes, err := r.Resolve(parent)
			if err != nil {
				return nil, err
			}
			for _, s := range parentScopes {
				available[s] = struct{}{}
			}
		}
		for _, s := range decl.AdditionalScopes {
			available[s] = struct{}{}
		}
		for _, excluded := range decl.ExcludedScopes {
			if _, ok := available[excluded]; !ok {
				issues = append(issues, InvalidExclusion{Role: name, Scope: excluded})
			}
		}
	}
	return issues, nil
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
