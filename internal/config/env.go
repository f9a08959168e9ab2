// Package config resolves both servers' configuration: environment
// variables via envconfig (optionally preloaded from a .env file with
// godotenv, following 23skdu-longbow's pattern) and command-line flags
// via the standard flag package — CLI parsing stays on the flag package
// rather than a third-party one.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env holds the environment-derived configuration common to both servers.
type Env struct {
	// DBRoot overrides the database root directory. Empty means
	// storage.DefaultRoot.
	DBRoot string `envconfig:"VICTOR_DB_ROOT" default:""`

	// ExportThreshold is the mutation count at which a checkpoint is
	// attempted (§4.3). Default 10.
	ExportThreshold int `envconfig:"VICTOR_EXPORT_THRESHOLD" default:"10"`

	// MetricsAddr, if non-empty, serves Prometheus metrics on this
	// address.
	MetricsAddr string `envconfig:"VICTOR_METRICS_ADDR" default:""`
}

// LoadEnv loads an optional .env file (missing is not an error, matching
// godotenv's own convention when used this way) then parses environment
// variables into an Env.
func LoadEnv() (Env, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Env{}, fmt.Errorf("config: loading .env: %w", err)
	}

	var e Env
	if err := envconfig.Process("victor", &e); err != nil {
		return Env{}, fmt.Errorf("config: parsing environment: %w", err)
	}
	return e, nil
}
