package repositories

import "errors"

var (
	// ErrNotFound is returned when a record does not exist or is not owned
	// by the requesting user.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the users email index rejects a write.
	ErrDuplicateEmail = errors.New("email already registered")
)
