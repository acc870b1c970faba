package scopes

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownRole indicates a role name absent from the catalog.
	ErrUnknownRole = errors.New("scopes: unknown role")
	// ErrCyclicRoleGraph indicates a cycle in the role inheritance graph.
	ErrCyclicRoleGraph = errors.New("scopes: cyclic role inheritance")
	// ErrRoleExists indicates an attempt to redeclare an existing role.
	ErrRoleExists = errors.New("scopes: role already exists")
)

// Declaration describes a derived role: the parents it inherits from,
// the scopes it adds on top, and the scopes it strips from the result.
type Declaration struct {
	InheritsFrom     []string `yaml:"inherits_from"`
	AdditionalScopes []string `yaml:"additional_scopes"`
	ExcludedScopes   []string `yaml:"excluded_scopes"`
}

// Catalog is an immutable snapshot of every declared role. Base roles carry a
// fixed scope set; derived roles are declarations over other roles. Mutation
// returns a new snapshot, the receiver is never modified.
type Catalog struct {
	base    map[string][]string
	derived map[string]Declaration
}

// NewCatalog builds and validates a catalog. Every parent referenced by a
// derived role must exist, and the inheritance graph must be acyclic.
func NewCatalog(base map[string][]string, derived map[string]Declaration) (*Catalog, error) {
	c := &Catalog{
		base:    make(map[string][]string, len(base)),
		derived: make(map[string]Declaration, len(derived)),
	}
	for name, scopes := range base {
		for _, s := range scopes {
			if err := CheckScope(s); err != nil {
				return nil, fmt.Errorf("role %s: %w", name, err)
			}
		}
		c.base[name] = dedupSorted(scopes)
	}
	for name, decl := range derived {
		if _, ok := c.base[name]; ok {
			return nil, fmt.Errorf("%w: %s declared as both base and derived", ErrRoleExists, name)
		}
		for _, s := range append(append([]string{}, decl.AdditionalScopes...), decl.ExcludedScopes...) {
			if err := CheckScope(s); err != nil {
				return nil, fmt.Errorf("role %s: %w", name, err)
			}
		}
		c.derived[name] = normalizeDeclaration(decl)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	for name, decl := range c.derived {
		for _, parent := range decl.InheritsFrom {
			if !c.Has(parent) {
				return fmt.Errorf("%w: %s (inherited by %s)", ErrUnknownRole, parent, name)
			}
		}
	}
	// Depth-first walk over every derived role; base roles are leaves.
	state := make(map[string]int, len(c.derived)) // 0 unseen, 1 on stack, 2 done
	var visit func(name string) error
	visit = func(name string) error {
		if _, ok := c.base[name]; ok {
			return nil
		}
		switch state[name] {
		case 1:
			return fmt.Errorf("%w: %s", ErrCyclicRoleGraph, name)
		case 2:
			return nil
		}
		state[name] = 1
		for _, parent := range c.derived[name].InheritsFrom {
			if err := visit(parent); err != nil {
				return err
			}
		}
		state[name] = 2
		return nil
	}
	for name := range c.derived {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether the role exists, base or derived.
func (c *Catalog) Has(name string) bool {
	if _, ok := c.base[name]; ok {
		return true
	}
	_, ok := c.derived[name]
	return ok
}

// IsBaseRole reports whether the role is a base role.
func (c *Catalog) IsBaseRole(name string) bool {
	_, ok := c.base[name]
	return ok
}

// BaseScopes returns a copy of a base role's declared scope set.
func (c *Catalog) BaseScopes(name string) ([]string, error) {
	scopes, ok := c.base[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, name)
	}
	out := make([]string, len(scopes))
	copy(out, scopes)
	return out, nil
}

// Declaration returns a derived role's declaration.
func (c *Catalog) Declaration(name string) (Declaration, error) {
	decl, ok := c.derived[name]
	if !ok {
		return Declaration{}, fmt.Errorf("%w: %s", ErrUnknownRole, name)
	}
	return copyDeclaration(decl), nil
}

// RoleNames returns every declared role name, sorted.
func (c *Catalog) RoleNames() []string {
	names := make([]string, 0, len(c.base)+len(c.derived))
	for name := range c.base {
		names = append(names, name)
	}
	for name := range c.derived {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithRole returns a new catalog extended with a derived role declaration.
func (c *Catalog) WithRole(name string, decl Declaration) (*Catalog, error) {
	if c.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrRoleExists, name)
	}
	derived := c.copyDerived()
	derived[name] = decl
	return NewCatalog(c.base, derived)
}

// WithExclusion returns a new catalog where the derived role additionally
// excludes the given scope. Adding an exclusion twice is a no-op.
func (c *Catalog) WithExclusion(role, scope string) (*Catalog, error) {
	decl, ok := c.derived[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	for _, existing := range decl.ExcludedScopes {
		if existing == scope {
			return c, nil
		}
	}
	derived := c.copyDerived()
	next := copyDeclaration(decl)
	next.ExcludedScopes = append(next.ExcludedScopes, scope)
	derived[role] = next
	return NewCatalog(c.base, derived)
}

// WithoutExclusion returns a new catalog where the derived role no longer
// excludes the given scope.
func (c *Catalog) WithoutExclusion(role, scope string) (*Catalog, error) {
	decl, ok := c.derived[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	derived := c.copyDerived()
	next := copyDeclaration(decl)
	kept := next.ExcludedScopes[:0]
	for _, existing := range next.ExcludedScopes {
		if existing != scope {
			kept = append(kept, existing)
		}
	}
	next.ExcludedScopes = kept
	derived[role] = next
	return NewCatalog(c.base, derived)
}

func (c *Catalog) copyDerived() map[string]Declaration {
	out := make(map[string]Declaration, len(c.derived)+1)
	for name, decl := range c.derived {
		out[name] = decl
	}
	return out
}

func normalizeDeclaration(decl Declaration) Declaration {
	out := copyDeclaration(decl)
	out.AdditionalScopes = dedupSorted(out.AdditionalScopes)
	out.ExcludedScopes = dedupSorted(out.ExcludedScopes)
	return out
}

func copyDeclaration(decl Declaration) Declaration {
	out := Declaration{
		InheritsFrom:     make([]string, len(decl.InheritsFrom)),
		AdditionalScopes: make([]string, len(decl.AdditionalScopes)),
		ExcludedScopes:   make([]string, len(decl.ExcludedScopes)),
	}
	copy(out.InheritsFrom, decl.InheritsFrom)
	copy(out.AdditionalScopes, decl.AdditionalScopes)
	copy(out.ExcludedScopes, decl.ExcludedScopes)
	return out
}

func dedupSorted(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
