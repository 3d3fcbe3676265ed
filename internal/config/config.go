// internal/config/config.go
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration, populated from the environment.
type Config struct {
	Port           string        `env:"PORT" envDefault:"8080"`
	PacksDir       string        `env:"PACKS_DIR" envDefault:"./packs"`
	ReconnectGrace time.Duration `env:"RECONNECT_GRACE" envDefault:"30s"`
	PublicURL      string        `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
