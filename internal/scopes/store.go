package scopes

import (
	"sync"
	"sync/atomic"
)

type snapshot struct {
	catalog  *Catalog
	resolver *Resolver
	version  int64
}

// Store publishes the current catalog snapshot to concurrent readers and
// serializes writers. Readers always see a fully-built snapshot; mutation
// builds a new catalog and resolver, then swaps the pointer.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
}

// NewStore constructs a store around an initial catalog.
func NewStore(catalog *Catalog) *Store {
	s := &Store{}
	s.current.Store(&snapshot{
		catalog:  catalog,
		resolver: NewResolver(catalog),
		version:  1,
	})
	return s
}

// Catalog returns the currently published catalog snapshot.
func (s *Store) Catalog() *Catalog {
	return s.current.Load().catalog
}

// Resolver returns the resolver bound to the current snapshot.
func (s *Store) Resolver() *Resolver {
	return s.current.Load().resolver
}

// Version returns a counter bumped on every published mutation. Cache layers
// key entries by it so stale entitlements die with the old snapshot.
func (s *Store) Version() int64 {
	return s.current.Load().version
}

// View returns the resolver and version of one snapshot. Callers that need
// both must use View rather than separate Resolver/Version calls, which may
// observe different snapshots across a concurrent mutation.
func (s *Store) View() (*Resolver, int64) {
	snap := s.current.Load()
	return snap.resolver, snap.version
}

// AddRole publishes a snapshot extended with a new derived role.
func (s *Store) AddRole(name string, decl Declaration) error {
	return s.swap(func(c *Catalog) (*Catalog, error) {
		return c.WithRole(name, decl)
	})
}

// AddExclusion publishes a snapshot where the role excludes the scope.
func (s *Store) AddExclusion(role, scope string) error {
	return s.swap(func(c *Catalog) (*Catalog, error) {
		return c.WithExclusion(role, scope)
	})
}

// RemoveExclusion publishes a snapshot where the exclusion is lifted.
func (s *Store) RemoveExclusion(role, scope string) error {
	return s.swap(func(c *Catalog) (*Catalog, error) {
		return c.WithoutExclusion(role, scope)
	})
}

func (s *Store) swap(mutate func(*Catalog) (*Catalog, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current.Load()
	next, err := mutate(prev.catalog)
	if err != nil {
		return err
	}
	if next == prev.catalog {
		return nil
	}
	s.current.Store(&snapshot{
		catalog:  next,
		resolver: NewResolver(next),
		version:  prev.version + 1,
	})
	return nil
}
