package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure. Unknown email, wrong
	// password and inactive account all collapse into this one error so the
	// response cannot be used as an account oracle.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPrincipalNotFound indicates a token subject that no longer resolves
	// to a live user.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDuplicateUser indicates registration with an email already taken.
	ErrDuplicateUser = errors.New("user already exists")
)
