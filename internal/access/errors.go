package access

import "errors"

var (
	// ErrNotFound covers unknown users, directories and links as well as
	// expired links. Callers cannot tell an expired link from a missing one.
	ErrNotFound = errors.New("not found")

	// ErrPermission is returned when a path resolves but the access level is
	// too low for the requested operation.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidLevel is returned by Grant for levels outside 0..2.
	ErrInvalidLevel = errors.New("invalid access level")

	// ErrRootLink is returned when a link is requested for the virtual root.
	ErrRootLink = errors.New("cannot share the root directory")

	// ErrTokenSpace is returned when no free link token could be drawn.
	ErrTokenSpace = errors.New("could not allocate a unique link token")
)
