package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/cardkeeper/internal/flagx"
	"github.com/dmitrijs2005/cardkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. Fields left out of the file
// keep their current values.
type JsonConfig struct {
	APIBaseURL     string `json:"api_base_url"`
	ImageBaseURL   string `json:"image_base_url"`
	AspectsBaseURL string `json:"aspects_base_url"`
	DataDir        string `json:"data_dir"`

	PhotosPerListing   int `json:"photos_per_listing"`
	MaxParallelUploads int `json:"max_parallel_uploads"`

	PollInterval       timex.Duration `json:"poll_interval"`
	PollTimeout        timex.Duration `json:"poll_timeout"`
	AppendPollInterval timex.Duration `json:"append_poll_interval"`
	AppendPollTimeout  timex.Duration `json:"append_poll_timeout"`
	UploadTimeout      timex.Duration `json:"upload_timeout"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	NoticeDelay        timex.Duration `json:"notice_delay"`
	AspectsTTL         timex.Duration `json:"aspects_ttl"`

	LogLevel string `json:"log_level"`
}

// parseJson overlays cfg with values from the JSON file named by -c or
// -config in args. Without either flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.ImageBaseURL, jc.ImageBaseURL)
	setString(&cfg.AspectsBaseURL, jc.AspectsBaseURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.PhotosPerListing != 0 {
		cfg.PhotosPerListing = jc.PhotosPerListing
	}
	if jc.MaxParallelUploads != 0 {
		cfg.MaxParallelUploads = jc.MaxParallelUploads
	}

	setDuration(&cfg.PollInterval, jc.PollInterval)
	setDuration(&cfg.PollTimeout, jc.PollTimeout)
	setDuration(&cfg.AppendPollInterval, jc.AppendPollInterval)
	setDuration(&cfg.AppendPollTimeout, jc.AppendPollTimeout)
	setDuration(&cfg.UploadTimeout, jc.UploadTimeout)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.NoticeDelay, jc.NoticeDelay)
	setDuration(&cfg.AspectsTTL, jc.AspectsTTL)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
