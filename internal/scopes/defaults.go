package scopes

// DefaultCatalog returns the roles shipped with the service. Used when no
// catalog file is configured and as the seed for the roles table.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		map[string][]string{
			"student": {
				"users:me",
				"equipment:read",
				"requests:create",
				"requests:read",
			},
		},
		map[string]Declaration{
			"teacher": {
				InheritsFrom: []string{"student"},
			},
			"manager": {
				InheritsFrom: []string{"student"},
				AdditionalScopes: []string{
					"equipment:create",
					"equipment:update",
					"equipment:delete",
					"requests:approve",
					"reports:read",
				},
			},
			"admin": {
				InheritsFrom: []string{"student"},
				AdditionalScopes: []string{
					"users:read",
					"users:create",
					"requests:update",
					"requests:approve",
					"reports:read",
					"reports:export",
					"roles:manage",
				},
			},
			"superadmin": {
				InheritsFrom:     []string{"admin", "manager"},
				AdditionalScopes: []string{"admin:full"},
			},
			"readonly_admin": {
				InheritsFrom: []string{"admin"},
				ExcludedScopes: []string{
					"users:create",
					"requests:update",
					"requests:approve",
					"roles:manage",
				},
			},
			"junior_manager": {
				InheritsFrom:   []string{"manager"},
				ExcludedScopes: []string{"equipment:delete"},
			},
		},
	)
	if err != nil {
		// The shipped declarations are static; a failure here is a
		// programming error.
		panic(err)
	}
	return catalog
}
