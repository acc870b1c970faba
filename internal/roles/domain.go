package roles

import "time"

// Role represents a persisted role record. ResolvedScopes is derived from
// the catalog and seeded by the sync job, never edited directly.
type Role struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ResolvedScopes []string  `json:"resolved_scopes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Analysis is the diagnostic view of one role's scope provenance.
type Analysis struct {
	Role         string              `json:"role"`
	TotalScopes  int                 `json:"total_scopes"`
	FinalScopes  []string            `json:"final_scopes"`
	Direct       []string            `json:"direct_scopes"`
	Inherited    []string            `json:"inherited_scopes"`
	Excluded     []string            `json:"excluded_scopes"`
	ScopeSources map[string][]string `json:"scope_sources"`
}
