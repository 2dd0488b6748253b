// Package config loads the process configuration of the wasmkernels CLI from
// the environment. Flags override these values.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env holds the environment variables read by the CLI.
type Env struct {
	// Wasm is the path to a kernels guest. Empty means the reference guest.
	Wasm string `env:"WASMKERNELS_WASM"`
	// Interpreter forces the wazero interpreter.
	Interpreter bool `env:"WASMKERNELS_INTERPRETER" envDefault:"false"`
	// CacheDir is the compilation cache directory. Empty disables the cache.
	CacheDir string `env:"WASMKERNELS_CACHE_DIR"`

	// OTelEndpoint is the OTLP/HTTP URL spans are exported to. Empty disables
	// export.
	OTelEndpoint string `env:"WASMKERNELS_OTEL_ENDPOINT"`
	// OTelEnabled set to false disables export even with an endpoint.
	OTelEnabled bool `env:"WASMKERNELS_OTEL_ENABLED" envDefault:"true"`
}

// Load parses Env from the environment.
func Load() (Env, error) {
	var cfg Env
	if err := ParseEnv(&cfg); err != nil {
		return Env{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
