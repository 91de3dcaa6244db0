package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid config")

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.APIBaseURL == "" {
		errs = append(errs, errors.New("api base url is empty"))
	}
	if c.PhotosPerListing < 1 {
		errs = append(errs, fmt.Errorf("photos per listing must be >= 1, got %d", c.PhotosPerListing))
	}
	if c.MaxParallelUploads < 1 {
		errs = append(errs, fmt.Errorf("max parallel uploads must be >= 1, got %d", c.MaxParallelUploads))
	}
	if c.PollInterval <= 0 || c.AppendPollInterval <= 0 {
		errs = append(errs, errors.New("poll intervals must be positive"))
	}
	if c.PollTimeout < c.PollInterval {
		errs = append(errs, fmt.Errorf("poll timeout %s is shorter than poll interval %s", c.PollTimeout, c.PollInterval))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
