// Package config loads the process configuration once at startup.
//
// Values come from the environment (optionally seeded from a .env file) with
// defaults for everything except JWT_SECRET. Load returns a plain value that
// is passed down to the components that need it; nothing reads the
// environment after startup.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration values.
type Config struct {
	Env          string        `mapstructure:"APP_ENV"`
	Port         int           `mapstructure:"PORT"`
	DBPath       string        `mapstructure:"DB_PATH"`
	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	TokenTTL     time.Duration `mapstructure:"TOKEN_TTL"`
	TokenVerify  bool          `mapstructure:"TOKEN_VERIFY"`
	BcryptCost   int           `mapstructure:"BCRYPT_COST"`
	RedisURL     string        `mapstructure:"REDIS_URL"`
	RateLimit    int           `mapstructure:"RATE_LIMIT"`
	RateWindow   time.Duration `mapstructure:"RATE_WINDOW"`
	GitHubToken  string        `mapstructure:"GITHUB_TOKEN"`
	GitHubAPIURL string        `mapstructure:"GITHUB_API_URL"`
	LogLevel     string        `mapstructure:"LOG_LEVEL"`
}

var keys = []string{
	"APP_ENV", "PORT", "DB_PATH", "JWT_SECRET", "TOKEN_TTL", "TOKEN_VERIFY",
	"BCRYPT_COST", "REDIS_URL", "RATE_LIMIT", "RATE_WINDOW", "GITHUB_TOKEN",
	"GITHUB_API_URL", "LOG_LEVEL",
}

// Load reads .env files (if any) and the environment into a Config.
// envFiles defaults to ".env"; a missing file is not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv.Load never overrides variables already set in the environment.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()
	for _, k := range keys {
		// AutomaticEnv only answers Get; Unmarshal needs every key bound.
		_ = v.BindEnv(k)
	}

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", 5000)
	v.SetDefault("DB_PATH", "data/devconnect.db")
	v.SetDefault("TOKEN_TTL", "360000s")
	v.SetDefault("TOKEN_VERIFY", true)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_LIMIT", 20)
	v.SetDefault("RATE_WINDOW", "1m")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_API_URL", "https://api.github.com")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks required values.
//
// VALIDATION CHECKS
//
//   - PORT in 1..65535
//   - DB_PATH and a JWT_SECRET of at least 16 characters are set
//   - decode-only tokens (TOKEN_VERIFY=false) never run in production
//   - RATE_LIMIT is at least 1: zero would reject every limited request
//   - RATE_WINDOW is at least one second: Redis expiry has second
//     granularity and a zero TTL deletes the counter, so nothing is limited
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.IsProduction() && !c.TokenVerify {
		return errors.New("TOKEN_VERIFY=false is not allowed in production")
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("RATE_LIMIT must be at least 1, got %d", c.RateLimit)
	}
	if c.RateWindow < time.Second {
		return fmt.Errorf("RATE_WINDOW must be at least 1s, got %s", c.RateWindow)
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// SlogLevel maps LOG_LEVEL onto a slog.Level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
