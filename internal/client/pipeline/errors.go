package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGrouping = errors.New("invalid grouping")

	// Group-level failures. None of them aborts other groups.
	ErrMissingRecord       = errors.New("group missing from batch response")
	ErrMissingUploadTarget = errors.New("no upload url for file")
	ErrUploadFailed        = errors.New("upload failed")
	ErrProcessingTimeout   = errors.New("images not processed in time")
	ErrOrderingFailed      = errors.New("could not order images")
	ErrCommitFailed        = errors.New("commit failed")
	ErrVerifyMismatch      = errors.New("verification failed")
)

// InvalidGroupingError reports a file count that does not split into
// groups of the requested size.
type InvalidGroupingError struct {
	Count     int
	GroupSize int
}

func (e *InvalidGroupingError) Error() string {
	if e.Count == 0 {
		return "invalid grouping: no files selected"
	}
	return fmt.Sprintf("invalid grouping: %d files cannot be split into groups of %d", e.Count, e.GroupSize)
}

func (e *InvalidGroupingError) Is(target error) bool {
	return target == ErrInvalidGrouping
}

// PreflightError aborts a whole submission before any group is processed.
// Nothing the client knows of needs rolling back.
type PreflightError struct {
	Stage string
	Err   error
}

func (e *PreflightError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}
