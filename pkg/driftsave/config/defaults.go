// Package config provides configuration management for driftsave.
package config

// Default configuration values.
const (
	// DefaultGzipLevel matches the compression the game writes.
	DefaultGzipLevel = 9

	// DefaultChecksum is the fingerprint algorithm for new extractions.
	DefaultChecksum = "sha1"

	// DefaultMaxWarnings is how many warnings text reports list.
	DefaultMaxWarnings = 12

	// DefaultRetentionDays is how long history entries are kept.
	DefaultRetentionDays = 30

	// DefaultFormat is the CLI result format.
	DefaultFormat = "pretty"

	// DefaultWatchDebounce is how long watch waits for edits to settle.
	DefaultWatchDebounce = "500ms"
)
