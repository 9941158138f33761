package project

import "errors"

var (
	// ErrInvalidInput indicates a form failed client-side validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidStatus indicates a status outside the allowed set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidID indicates a malformed numeric identifier.
	ErrInvalidID = errors.New("invalid id")
)
