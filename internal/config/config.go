package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int           `env:"PORT" envDefault:"8080"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"./prescript.db"`
	JWTSecret    string        `env:"JWT_SECRET,required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CORSOrigin   string        `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
