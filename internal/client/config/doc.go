// Package config loads runtime configuration for the cardkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   inventory API base URL
//	-p int      photos per listing
//	-l string   log level
//	-u int      maximum parallel uploads
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "1.5s" or integer nanoseconds. Omitted keys keep defaults:
//
//	{
//	  "api_base_url": "https://tcgid.io",
//	  "image_base_url": "https://tcgid.io/images",
//	  "aspects_base_url": "https://cdn.tcgid.io/aspects",
//	  "data_dir": ".cardkeeper",
//	  "photos_per_listing": 2,
//	  "max_parallel_uploads": 8,
//	  "poll_interval": "1.5s",
//	  "poll_timeout": "30s",
//	  "append_poll_interval": "2s",
//	  "append_poll_timeout": "60s",
//	  "upload_timeout": "5m",
//	  "request_timeout": "30s",
//	  "notice_delay": "3s",
//	  "aspects_ttl": "24h",
//	  "log_level": "info"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
