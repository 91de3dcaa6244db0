package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cardkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   inventory API base URL
//	-p int      photos per listing
//	-l string   log level (debug, info, warn, error)
//	-u int      maximum parallel uploads
//
// args are filtered with flagx.FilterArgs first so that flags owned by
// other components do not cause parse errors here.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-p", "-l", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "inventory API base URL")
	fs.IntVar(&cfg.PhotosPerListing, "p", cfg.PhotosPerListing, "photos per listing")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.IntVar(&cfg.MaxParallelUploads, "u", cfg.MaxParallelUploads, "maximum parallel uploads")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
