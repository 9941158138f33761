package repository

import "errors"

var (
	// ErrNotFound means the storage file has no revision row; migrations
	// have not run on it.
	ErrNotFound = errors.New("storage not initialized")

	// ErrInvalidInput rejects blank storage keys.
	ErrInvalidInput = errors.New("invalid storage key")
)
