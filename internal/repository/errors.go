package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates the unique email constraint was violated.
	ErrDuplicateEmail = errors.New("repository: duplicate email")
)
