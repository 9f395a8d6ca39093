package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// Remote platform GraphQL endpoint. The portal never works without it.
	APIBaseURL string `env:"API_BASE_URL,required"`

	// Session snapshot persistence.
	SnapshotBackend   string `env:"SNAPSHOT_BACKEND" envDefault:"file"`
	SnapshotKeyPrefix string `env:"SNAPSHOT_KEY_PREFIX" envDefault:"rentfolio:session"`
	SnapshotDir       string `env:"SNAPSHOT_DIR" envDefault:"./data/sessions"`
	RedisURL          string `env:"REDIS_URL"`
	DatabaseURL       string `env:"DATABASE_URL"`

	SessionTTLMinutes int    `env:"SESSION_TTL_MINUTES" envDefault:"60"`
	CookieSecret      string `env:"COOKIE_SECRET"`
	EncryptionKey     string `env:"ENCRYPTION_KEY"`

	// Google sign-in (optional; the password flow works without it).
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	OpsPasswordHash string `env:"OPS_PASSWORD_HASH"`
	LogLevel        string `env:"LOG_LEVEL" envDefault:"info"`
	PortalBaseURL   string `env:"PORTAL_BASE_URL" envDefault:""`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) GoogleLoginEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func (c *Config) Validate(isProduction bool) error {
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL")
	}

	switch c.SnapshotBackend {
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("SNAPSHOT_BACKEND=redis requires REDIS_URL")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("SNAPSHOT_BACKEND=postgres requires DATABASE_URL")
		}
	case "file":
	default:
		return fmt.Errorf("SNAPSHOT_BACKEND must be one of redis, postgres, file (got %q)", c.SnapshotBackend)
	}

	if c.SessionTTLMinutes <= 0 {
		return fmt.Errorf("SESSION_TTL_MINUTES must be positive")
	}

	if c.OpsPasswordHash != "" {
		if !strings.HasPrefix(c.OpsPasswordHash, "$2a$") &&
			!strings.HasPrefix(c.OpsPasswordHash, "$2b$") &&
			!strings.HasPrefix(c.OpsPasswordHash, "$2y$") {
			return fmt.Errorf("OPS_PASSWORD_HASH must be a bcrypt hash (generate with: go run scripts/hash-password.go <password>)")
		}
	}

	if isProduction {
		if err := validateSecret("COOKIE_SECRET", c.CookieSecret); err != nil {
			return err
		}
		if c.RedisURL != "" && strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.EncryptionKey == "" {
			log.Warn().Msg("ENCRYPTION_KEY is empty in production: session snapshots will not be encrypted at rest")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
