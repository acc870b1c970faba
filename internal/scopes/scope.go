package scopes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedScope indicates a scope string that is not "<resource>:<action>".
var ErrMalformedScope = errors.New("scopes: malformed scope")

// CheckScope validates the "<resource>:<action>" shape. The engine treats
// scopes as opaque afterwards; the shape is only enforced once, at the
// boundary where scope strings enter the catalog.
func CheckScope(scope string) error {
	resource, action, ok := strings.Cut(scope, ":")
	if !ok || resource == "" || action == "" {
		return fmt.Errorf("%w: %q", ErrMalformedScope, scope)
	}
	return nil
}
