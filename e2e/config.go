// Package e2e holds configuration and helpers for scenario tests that
// exercise the full engine against a real on-disk store.
package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_DEBUG dumps full snapshots as they are delivered.
	Debug bool `envconfig:"E2E_DEBUG" default:"false"`
	// E2E_SNAPSHOT_TIMEOUT bounds how long a scenario waits for a
	// snapshot to propagate.
	SnapshotTimeout string `envconfig:"E2E_SNAPSHOT_TIMEOUT" default:"5s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
