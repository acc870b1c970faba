package scopes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	BaseRoles map[string][]string    `yaml:"base_roles"`
	Roles     map[string]Declaration `yaml:"roles"`
}

// LoadCatalog reads a role catalog from a YAML file and validates it.
//
// Expected shape:
//
//	base_roles:
//	  student: ["users:me", "equipment:read"]
//	roles:
//	  manager:
//	    inherits_from: [student]
//	    additional_scopes: ["equipment:create"]
//	    excluded_scopes: []
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scopes: read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("scopes: parse catalog: %w", err)
	}
	catalog, err := NewCatalog(file.BaseRoles, file.Roles)
	if err != nil {
		return nil, fmt.Errorf("scopes: invalid catalog %s: %w", path, err)
	}
	return catalog, nil
}
