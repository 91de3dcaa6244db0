package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Session errors. Either one sends the user back to login.
	ErrNoSession      = errors.New("not signed in")
	ErrSessionExpired = errors.New("session expired")
)
