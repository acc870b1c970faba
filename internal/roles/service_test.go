package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaucher/gatehouse/internal/scopes"
	"github.com/kaucher/gatehouse/internal/shared"
)

type mockRepository struct {
	byName map[string]*Role
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{byName: make(map[string]*Role), nextID: 1}
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.byName))
	for _, role := range m.byName {
		out = append(out, *role)
	}
	return out, nil
}

func (m *mockRepository) FindByName(ctx context.Context, name string) (*Role, error) {
	role, ok := m.byName[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockRepository) UpsertRole(ctx context.Context, name, description string, resolvedScopes []string) (*Role, error) {
	role, ok := m.byName[name]
	if !ok {
		role = &Role{ID: m.nextID, Name: name}
		m.nextID++
		m.byName[name] = role
	}
	if description != "" {
		role.Description = description
	}
	role.ResolvedScopes = resolvedScopes
	return role, nil
}

func (m *mockRepository) SyncRoles(ctx context.Context, records []RoleRecord) (int, error) {
	for _, rec := range records {
		if _, err := m.UpsertRole(ctx, rec.Name, "", rec.ResolvedScopes); err != nil {
			return 0, err
		}
	}
	return len(records), nil
}

func newService(t *testing.T) (*Service, *mockRepository, *scopes.Store) {
	t.Helper()
	store := scopes.NewStore(scopes.DefaultCatalog())
	repo := newMockRepository()
	return NewService(repo, store), repo, store
}

func TestCreateRolePublishesAndPersists(t *testing.T) {
	service, repo, store := newService(t)

	role, err := service.CreateRole(context.Background(), CreateRoleInput{
		Name:           "night_manager",
		Description:    "manager without destructive rights",
		InheritsFrom:   []string{"manager"},
		ExcludedScopes: []string{"equipment:delete", "requests:approve"},
	})
	require.NoError(t, err)
	assert.NotContains(t, role.ResolvedScopes, "equipment:delete")
	assert.Contains(t, role.ResolvedScopes, "equipment:create")

	assert.True(t, store.Catalog().Has("night_manager"))
	persisted, err := repo.FindByName(context.Background(), "night_manager")
	require.NoError(t, err)
	assert.Equal(t, role.ResolvedScopes, persisted.ResolvedScopes)
}

func TestCreateRoleDuplicate(t *testing.T) {
	service, _, _ := newService(t)
	_, err := service.CreateRole(context.Background(), CreateRoleInput{
		Name:         "manager",
		InheritsFrom: []string{"student"},
	})
	assert.ErrorIs(t, err, scopes.ErrRoleExists)
}

func TestCreateRoleUnknownParent(t *testing.T) {
	service, _, _ := newService(t)
	_, err := service.CreateRole(context.Background(), CreateRoleInput{
		Name:         "orphan",
		InheritsFrom: []string{"missing"},
	})
	assert.ErrorIs(t, err, scopes.ErrUnknownRole)
}

func TestExclusionLifecycle(t *testing.T) {
	service, _, _ := newService(t)
	ctx := context.Background()

	role, err := service.AddExclusion(ctx, "manager", "equipment:delete")
	require.NoError(t, err)
	assert.NotContains(t, role.ResolvedScopes, "equipment:delete")

	role, err = service.RemoveExclusion(ctx, "manager", "equipment:delete")
	require.NoError(t, err)
	assert.Contains(t, role.ResolvedScopes, "equipment:delete")
}

func TestAddExclusionMalformedScope(t *testing.T) {
	service, _, _ := newService(t)
	_, err := service.AddExclusion(context.Background(), "manager", "no-colon")
	assert.ErrorIs(t, err, scopes.ErrMalformedScope)
}

func TestSyncAllSeedsEveryRole(t *testing.T) {
	service, repo, store := newService(t)

	count, err := service.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(store.Catalog().RoleNames()), count)

	junior, err := repo.FindByName(context.Background(), "junior_manager")
	require.NoError(t, err)
	assert.NotContains(t, junior.ResolvedScopes, "equipment:delete")
}

func TestAnalyze(t *testing.T) {
	service, _, _ := newService(t)

	analysis, err := service.Analyze("junior_manager")
	require.NoError(t, err)
	assert.Equal(t, "junior_manager", analysis.Role)
	assert.Equal(t, len(analysis.FinalScopes), analysis.TotalScopes)
	assert.Equal(t, []string{"equipment:delete"}, analysis.Excluded)
	assert.Contains(t, analysis.ScopeSources, "manager")
}

func TestAuditExclusionsOnDefaultCatalog(t *testing.T) {
	service, _, store := newService(t)

	issues, err := service.AuditExclusions()
	require.NoError(t, err)
	assert.Empty(t, issues, "shipped catalog should have no dangling exclusions")

	require.NoError(t, store.AddExclusion("junior_manager", "never:granted"))
	issues, err = service.AuditExclusions()
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "never:granted", issues[0].Scope)
}

func TestGetRole(t *testing.T) {
	service, _, _ := newService(t)
	ctx := context.Background()

	_, err := service.GetRole(ctx, "manager")
	assert.ErrorIs(t, err, scopes.ErrUnknownRole, "nothing persisted yet")

	_, err = service.SyncAll(ctx)
	require.NoError(t, err)

	role, err := service.GetRole(ctx, "manager")
	require.NoError(t, err)
	assert.Equal(t, "manager", role.Name)
	assert.Contains(t, role.ResolvedScopes, "equipment:create")
}
