/*
Package config loads server configuration from the environment.

A local .env file is read first when present, then STOCKROOM_* variables
override it. Every field has a default so the server runs with no
configuration at all, storing data under ./data as JSON files.
*/
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Port the HTTP API listens on.
	Port int `envconfig:"PORT" default:"8080"`

	// Backend selects the persistence layer: "json", "sqlite" or
	// "memory".
	Backend string `envconfig:"BACKEND" default:"json"`

	// DataDir is where the json backend keeps inventory.json,
	// activityLog.json and users.json.
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `envconfig:"SQLITE_PATH" default:"data/stockroom.db"`

	// ExportDir is where activity-log exports are written.
	ExportDir string `envconfig:"EXPORT_DIR" default:"exports"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Pretty switches zerolog to human-readable console output.
	Pretty bool `envconfig:"PRETTY" default:"false"`
}

// Load reads .env if present and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("STOCKROOM", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment: %w", err)
	}

	switch cfg.Backend {
	case "json", "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}
