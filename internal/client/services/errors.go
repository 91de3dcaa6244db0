package services

import (
	"errors"
	"strings"
)

var (
	ErrNotArchive     = errors.New("not a zip archive")
	ErrInvalidPhotos  = errors.New("photos per listing must be at least 1")
	ErrInvalidAspects = errors.New("inventory data does not match category aspects")
)

// ValidationError lists every aspect problem found in inventory data.
type ValidationError struct {
	Category string
	Problems []string
}

func (e *ValidationError) Error() string {
	return "category " + e.Category + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidAspects
}
