package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/reflexduel.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR"`

	// RedisURL enables the cross-process event bridge. Empty means the
	// in-process bridge, which is fine for a single node.
	RedisURL string `env:"REDIS_URL"`

	// RewardAmount is credited to the winner of a finished duel.
	RewardAmount int64 `env:"REWARD_AMOUNT" envDefault:"100"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
