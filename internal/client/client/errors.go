package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedResponse = errors.New("malformed server response")
	ErrRejected          = errors.New("request rejected")
)

// APIError is a request the server understood and refused, either with a
// 4xx status or with success=false in the response envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request rejected: status %d", e.Status)
	}
	return fmt.Sprintf("request rejected: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrRejected
}
