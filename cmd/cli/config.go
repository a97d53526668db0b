package main

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// config holds the CLI configuration. Flags override these values.
type config struct {
	Engine     string        `env:"FLEM_ENGINE" envDefault:"docker"`
	Port       int           `env:"FLEM_PORT" envDefault:"8080"`
	ImageTag   string        `env:"FLEM_IMAGE_TAG"`
	Debounce   time.Duration `env:"FLEM_DEBOUNCE" envDefault:"300ms"`
	HealthAddr string        `env:"FLEM_HEALTH_ADDR"`
	Verbose    bool          `env:"FLEM_VERBOSE"`
}

// parseConfig parses the CLI configuration from the environment variables.
func parseConfig(environ []string) (*config, error) {
	var cfg config

	err := env.ParseWithOptions(&cfg, env.Options{
		Environment: env.ToMap(environ),
	})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
