// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
)

// Version is the server version advertised over discovery and /info.
const Version = "1.0.0"

// Config holds the server settings. All fields have working defaults so the
// binary runs with no environment at all.
type Config struct {
	Port          int    // HTTP listen port
	DiscoveryPort int    // UDP presence port
	DataDir       string // SQLite database directory
	LogDir        string // rotated log files, empty disables file logging
	LogLevel      string
	ServerName    string // advertised over discovery
}

// FromEnv builds a Config from SYNC_* environment variables, falling back
// to defaults for anything unset or unparsable.
func FromEnv() Config {
	return Config{
		Port:          envInt("SYNC_PORT", 5000),
		DiscoveryPort: envInt("SYNC_DISCOVERY_PORT", 9999),
		DataDir:       envStr("SYNC_DATA_DIR", "./data"),
		LogDir:        envStr("SYNC_LOG_DIR", "./logs"),
		LogLevel:      envStr("SYNC_LOG_LEVEL", "info"),
		ServerName:    envStr("SYNC_SERVER_NAME", "Inventory Master Server"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
