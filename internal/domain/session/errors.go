package session

import "errors"

var (
	// ErrUnknownRole indicates a role string outside the platform roles.
	ErrUnknownRole = errors.New("unknown role")
	// ErrInvalidSession indicates a session missing tokens or role.
	ErrInvalidSession = errors.New("invalid session")
	// ErrNoToken indicates there is no access token to decode.
	ErrNoToken = errors.New("no access token")
)
