package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr          string        `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath            string        `env:"DB_PATH" envDefault:"data/kiosk.db"`
	LogLevel          slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir            string        `env:"SPA_DIR" envDefault:"../web/dist"`
	GameConfig        string        `env:"GAME_CONFIG"`
	RedisURL          string        `env:"REDIS_URL"`
	ResultStream      string        `env:"RESULT_STREAM" envDefault:"mayor:results"`
	AdminPasswordHash string        `env:"ADMIN_PASSWORD_HASH"`
	TickInterval      time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
}

// Load reads the environment, after filling it from any of files that exist.
// Variables already set in the environment win over file values.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TickInterval <= 0 {
		return nil, &FieldError{Field: "TICK_INTERVAL", Msg: "must be positive"}
	}
	return &cfg, nil
}
