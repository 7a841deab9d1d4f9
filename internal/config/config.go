// Package config loads navhub settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/poku-e/navhub/internal/kv"
)

type Config struct {
	Addr         string        `env:"NAVHUB_ADDR" envDefault:":8080"`
	Directory    string        `env:"NAVHUB_DIRECTORY" envDefault:"directory.yaml"`
	Store        string        `env:"NAVHUB_STORE" envDefault:"file"`
	StorePath    string        `env:"NAVHUB_STORE_PATH" envDefault:"navhub.json"`
	LogLevel     string        `env:"NAVHUB_LOG_LEVEL" envDefault:"info"`
	FetchTimeout time.Duration `env:"NAVHUB_FETCH_TIMEOUT" envDefault:"25s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case kv.KindMemory, kv.KindFile, kv.KindSQLite:
	default:
		return fmt.Errorf("config: NAVHUB_STORE must be memory, file or sqlite, got %q", c.Store)
	}
	if c.Store != kv.KindMemory && c.StorePath == "" {
		return fmt.Errorf("config: NAVHUB_STORE_PATH required for %s store", c.Store)
	}
	if c.Directory == "" {
		return fmt.Errorf("config: NAVHUB_DIRECTORY required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: NAVHUB_LOG_LEVEL: %w", err)
	}
	return nil
}

// Logger builds a production zap logger at the configured level; debug
// switches to the development encoder.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
