package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string        `env:"LOG_FORMAT" envDefault:"console"`
	HammerAutoApprove bool          `env:"HAMMER_AUTO_APPROVE" envDefault:"true"`
	PersistTimeout    time.Duration `env:"PERSIST_TIMEOUT" envDefault:"5s"`
	ClientBuffer      int           `env:"CLIENT_BUFFER" envDefault:"8"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file, then the environment. Variables already
// set in the environment win over the file.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ClientBuffer < 1 {
		return Config{}, fmt.Errorf("CLIENT_BUFFER must be positive, got %d", cfg.ClientBuffer)
	}
	return cfg, nil
}
