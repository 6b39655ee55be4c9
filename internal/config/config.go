// Package config validates and carries h2kv's startup configuration.
package config

import (
	"fmt"
	"os"
)

// Config is h2kv's resolved startup configuration, assembled from CLI
// flags by cmd/h2kvd before any subsystem starts.
type Config struct {
	StorageDir string
	Port       int
	SyncDir    string
	SyncWrite  bool
	Daemon     bool
	PidFile    string
	LogFile    string
}

// DefaultPort is used when --port is not given.
const DefaultPort = 5928

// Validate checks the flag combination, returning a human-readable
// error naming the offending flag. It never touches the filesystem
// beyond stat-ing StorageDir and SyncDir, so it is safe to call before
// any subsystem is opened.
//
// --pidfile or --log-filename given without --daemon is not checked
// here: it's a no-op, not a misconfiguration, and callers should warn
// about it rather than abort startup. See Warnings.
func (c *Config) Validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("config: --storage-dir is required")
	}
	info, err := os.Stat(c.StorageDir)
	if err != nil {
		return fmt.Errorf("config: --storage-dir %q: %w", c.StorageDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("config: --storage-dir %q is not a directory", c.StorageDir)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: --port %d out of range", c.Port)
	}

	if c.SyncWrite && c.SyncDir == "" {
		return fmt.Errorf("config: --sync-write requires --sync-dir")
	}

	if c.SyncDir != "" {
		info, err := os.Stat(c.SyncDir)
		if err != nil {
			return fmt.Errorf("config: --sync-dir %q: %w", c.SyncDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("config: --sync-dir %q is not a directory", c.SyncDir)
		}
	}

	return nil
}

// Warnings returns human-readable warnings for flag combinations that
// are accepted but almost certainly not what the caller meant — unlike
// Validate's errors, these never abort startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.PidFile != "" && !c.Daemon {
		warnings = append(warnings, "--pidfile has no effect without --daemon")
	}
	if c.LogFile != "" && !c.Daemon {
		warnings = append(warnings, "--log-filename has no effect without --daemon")
	}
	return warnings
}
