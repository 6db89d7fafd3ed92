// Package config loads the process configuration from the environment, with
// a .env file honored in dev.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DBConfig struct {
	// memory | sqlite | postgres
	Provider    string `env:"DB_PROVIDER" envDefault:"memory"`
	SQLitePath  string `env:"DB_SQLITE_PATH" envDefault:"anticoag.db"`
	PostgresDSN string `env:"DB_DSN"`
}

type AuthConfig struct {
	Issuer          string        `env:"AUTH_ISSUER" envDefault:"anticoag-tracker"`
	JWTSecret       string        `env:"AUTH_JWT_SECRET"`
	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"720h"`
}

type CacheConfig struct {
	Dir string `env:"STATE_CACHE_DIR" envDefault:".statecache"`
	// 32-byte key, hex or raw; empty disables the cache.
	Key           string        `env:"STATE_CACHE_KEY"`
	SweepInterval time.Duration `env:"STATE_CACHE_SWEEP" envDefault:"10m"`
}

type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

type Config struct {
	App    AppConfig
	DB     DBConfig
	Auth   AuthConfig
	Cache  CacheConfig
	Logger LoggerConfig
}

// Load reads the environment (and .env when present) into a Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.DB.Provider = strings.ToLower(strings.TrimSpace(cfg.DB.Provider))
	switch cfg.DB.Provider {
	case "memory", "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DB_PROVIDER %q", cfg.DB.Provider)
	}
	if cfg.DB.Provider == "postgres" && strings.TrimSpace(cfg.DB.PostgresDSN) == "" {
		return Config{}, fmt.Errorf("DB_DSN is required with DB_PROVIDER=postgres")
	}

	return cfg, nil
}
