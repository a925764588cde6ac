package config

import (
	"fmt"
	"time"

	"arcade_webapp/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const insecureJWTSecret = "dev-only-change-me"

type Config struct {
	AppPort    string `env:"APP_PORT" envDefault:"8080"`
	AppVersion string `env:"APP_VERSION" envDefault:"dev"`

	// Optional: without it accounts and settings run degraded
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"false"`

	// Optional: rate limiting and the shared level scratchpad
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret         string        `env:"JWT_SECRET" envDefault:"dev-only-change-me"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	RequireAdminToken bool          `env:"REQUIRE_ADMIN_TOKEN" envDefault:"false"`

	APIRateLimit      int `env:"API_RATE_LIMIT" envDefault:"120"`
	APIRateWindowSec  int `env:"API_RATE_WINDOW_SECONDS" envDefault:"60"`
	AuthRateLimit     int `env:"AUTH_RATE_LIMIT" envDefault:"10"`
	AuthRateWindowSec int `env:"AUTH_RATE_WINDOW_SECONDS" envDefault:"60"`

	AllowedOrigin string `env:"ALLOWED_ORIGIN"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// Загрузка конфига из .env и окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.JWTSecret == insecureJWTSecret {
		logger.Warn("JWT_SECRET is not set, using the insecure development default")
	}
	return cfg, nil
}

func (c *Config) APIRateWindow() time.Duration {
	return time.Duration(c.APIRateWindowSec) * time.Second
}

func (c *Config) AuthRateWindow() time.Duration {
	return time.Duration(c.AuthRateWindowSec) * time.Second
}
