package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaucher/gatehouse/internal/scopes"
	"github.com/kaucher/gatehouse/internal/shared"
)

// CreateRoleInput declares a new derived role.
type CreateRoleInput struct {
	Name             string
	Description      string
	InheritsFrom     []string
	AdditionalScopes []string
	ExcludedScopes   []string
}

// Service handles role business logic: the persisted role records and the
// in-memory catalog move together, catalog first.
type Service struct {
	repo  RepositoryPort
	store *scopes.Store
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, store *scopes.Store) *Service {
	return &Service{repo: repo, store: store}
}

// ListRoles returns all persisted roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns the persisted record for a role. An unknown name surfaces
// as scopes.ErrUnknownRole so it maps to 404 like the resolver endpoints.
func (s *Service) GetRole(ctx context.Context, name string) (*Role, error) {
	role, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, scopes.ErrUnknownRole
		}
		return nil, err
	}
	return role, nil
}

// CreateRole publishes a new derived role to the catalog and persists its
// record with the freshly resolved scope set.
func (s *Service) CreateRole(ctx context.Context, input CreateRoleInput) (*Role, error) {
	decl := scopes.Declaration{
		InheritsFrom:     input.InheritsFrom,
		AdditionalScopes: input.AdditionalScopes,
		ExcludedScopes:   input.ExcludedScopes,
	}
	if err := s.store.AddRole(input.Name, decl); err != nil {
		return nil, err
	}
	resolved, err := s.store.Resolver().Resolve(input.Name)
	if err != nil {
		return nil, err
	}
	return s.repo.UpsertRole(ctx, input.Name, input.Description, resolved)
}

// ResolveScopes returns the effective scope set for a role.
func (s *Service) ResolveScopes(role string) ([]string, error) {
	return s.store.Resolver().Resolve(role)
}

// Analyze assembles the full diagnostic view of a role.
func (s *Service) Analyze(role string) (*Analysis, error) {
	resolver := s.store.Resolver()
	final, err := resolver.Resolve(role)
	if err != nil {
		return nil, err
	}
	breakdown, err := resolver.Breakdown(role)
	if err != nil {
		return nil, err
	}
	sources, err := resolver.ScopeSources(role)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		Role:         role,
		TotalScopes:  len(final),
		FinalScopes:  final,
		Direct:       breakdown.Direct,
		Inherited:    breakdown.Inherited,
		Excluded:     breakdown.Excluded,
		ScopeSources: sources,
	}, nil
}

// AuditExclusions reports every exclusion of a scope the role never held.
func (s *Service) AuditExclusions() ([]scopes.InvalidExclusion, error) {
	return s.store.Resolver().InvalidExclusions()
}

// AddExclusion publishes a catalog snapshot with the exclusion added and
// refreshes the persisted record.
func (s *Service) AddExclusion(ctx context.Context, role, scope string) (*Role, error) {
	if err := scopes.CheckScope(scope); err != nil {
		return nil, err
	}
	if err := s.store.AddExclusion(role, scope); err != nil {
		return nil, err
	}
	return s.refreshRecord(ctx, role)
}

// RemoveExclusion publishes a catalog snapshot with the exclusion lifted and
// refreshes the persisted record.
func (s *Service) RemoveExclusion(ctx context.Context, role, scope string) (*Role, error) {
	if err := s.store.RemoveExclusion(role, scope); err != nil {
		return nil, err
	}
	return s.refreshRecord(ctx, role)
}

func (s *Service) refreshRecord(ctx context.Context, role string) (*Role, error) {
	resolved, err := s.store.Resolver().Resolve(role)
	if err != nil {
		return nil, fmt.Errorf("roles: re-resolve %s: %w", role, err)
	}
	return s.repo.UpsertRole(ctx, role, "", resolved)
}

// SyncAll upserts one record per catalog role with its resolved scopes.
// Used at startup and by the periodic sync job.
func (s *Service) SyncAll(ctx context.Context) (int, error) {
	all, err := s.store.Resolver().ResolveAll()
	if err != nil {
		return 0, err
	}
	records := make([]RoleRecord, 0, len(all))
	for name, resolved := range all {
		records = append(records, RoleRecord{Name: name, ResolvedScopes: resolved})
	}
	return s.repo.SyncRoles(ctx, records)
}
