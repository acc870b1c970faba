package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kaucher/gatehouse/internal/platform/db"
	"github.com/kaucher/gatehouse/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	UpsertRole(ctx context.Context, name, description string, resolvedScopes []string) (*Role, error)
	SyncRoles(ctx context.Context, records []RoleRecord) (int, error)
}

// RoleRecord is the minimal shape persisted during a bulk sync.
type RoleRecord struct {
	Name           string
	ResolvedScopes []string
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRoles returns all roles.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description, resolved_scopes, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.ResolvedScopes, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// FindByName fetches a role by its unique name.
func (r *Repository) FindByName(ctx context.Context, name string) (*Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, resolved_scopes, created_at, updated_at FROM roles WHERE name = $1`, name)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.ResolvedScopes, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// UpsertRole inserts or refreshes a role record keyed by name.
func (r *Repository) UpsertRole(ctx context.Context, name, description string, resolvedScopes []string) (*Role, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, description, resolved_scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, NOW(), NOW())
		 ON CONFLICT (name) DO UPDATE
		 SET description = COALESCE(NULLIF(EXCLUDED.description, ''), roles.description),
		     resolved_scopes = EXCLUDED.resolved_scopes,
		     updated_at = NOW()
		 RETURNING id, name, description, resolved_scopes, created_at, updated_at`,
		name, description, resolvedScopes)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.ResolvedScopes, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return &role, nil
}

// SyncRoles upserts all records in a single transaction so a partially
// applied sync never becomes visible.
func (r *Repository) SyncRoles(ctx context.Context, records []RoleRecord) (int, error) {
	count := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, rec := range records {
			_, err := tx.Exec(ctx,
				`INSERT INTO roles (name, description, resolved_scopes, created_at, updated_at)
				 VALUES ($1, '', $2, NOW(), NOW())
				 ON CONFLICT (name) DO UPDATE
				 SET resolved_scopes = EXCLUDED.resolved_scopes, updated_at = NOW()`,
				rec.Name, rec.ResolvedScopes)
			if err != nil {
				return fmt.Errorf("roles: sync %s: %w", rec.Name, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ RepositoryPort = (*Repository)(nil)
