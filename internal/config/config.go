// Package config reads server settings from the environment. Command-line
// flags in cmd/server override these values.
package config

import (
	"os"
	"strconv"
)

// Defaults used when the environment leaves a setting unset.
const (
	DefaultPort        = 8080
	DefaultDatabaseURL = "sqlite:file:fieldops.db"
	DefaultLogLevel    = "info"
)

// Config holds server settings.
type Config struct {
	Port        int
	DatabaseURL string
	// RulesPath is the business rule document applied to API writes. Empty
	// disables rule validation.
	RulesPath string
	LogLevel  string
	Dev       bool
	// AtlasDir is an Atlas migration directory applied by "server migrate".
	AtlasDir string
}

// FromEnv reads the process environment.
func FromEnv() Config {
	return Load(os.Getenv)
}

// Load reads settings through getenv. Unparseable numbers and booleans keep
// their defaults.
func Load(getenv func(string) string) Config {
	cfg := Config{
		Port:        DefaultPort,
		DatabaseURL: DefaultDatabaseURL,
		LogLevel:    DefaultLogLevel,
	}
	if p := getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			cfg.Port = v
		}
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("FIELDOPS_RULES"); v != "" {
		cfg.RulesPath = v
	}
	if v := getenv("FIELDOPS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("FIELDOPS_DEV"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Dev = b
		}
	}
	if v := getenv("FIELDOPS_ATLAS_DIR"); v != "" {
		cfg.AtlasDir = v
	}
	return cfg
}
