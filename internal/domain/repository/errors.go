package repository

import "errors"

var (
	// ErrNotFound is returned by read paths when an entity has no rows.
	ErrNotFound = errors.New("entity not found")

	// ErrStorageUnavailable marks a store that cannot be opened or written.
	// A load invocation that hits it must leave prior data untouched.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
