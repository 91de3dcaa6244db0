package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the cardkeeper CLI.
//
// Durations are time.Duration; JSON files may spell them as "1.5s" or as
// integer nanoseconds.
type Config struct {
	APIBaseURL     string
	ImageBaseURL   string
	AspectsBaseURL string
	DataDir        string

	PhotosPerListing   int
	MaxParallelUploads int

	PollInterval       time.Duration
	PollTimeout        time.Duration
	AppendPollInterval time.Duration
	AppendPollTimeout  time.Duration
	UploadTimeout      time.Duration
	RequestTimeout     time.Duration
	NoticeDelay        time.Duration
	AspectsTTL         time.Duration

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://tcgid.io"
	c.ImageBaseURL = "https://tcgid.io/images"
	c.AspectsBaseURL = "https://cdn.tcgid.io/aspects"
	c.DataDir = ".cardkeeper"

	c.PhotosPerListing = 1
	c.MaxParallelUploads = 8

	c.PollInterval = 1500 * time.Millisecond
	c.PollTimeout = 30 * time.Second
	c.AppendPollInterval = 2 * time.Second
	c.AppendPollTimeout = 60 * time.Second
	c.UploadTimeout = 5 * time.Minute
	c.RequestTimeout = 30 * time.Second
	c.NoticeDelay = 3 * time.Second
	c.AspectsTTL = 24 * time.Hour

	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
