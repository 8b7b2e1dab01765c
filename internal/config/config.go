package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config holds all service configuration, read from the environment.
// A .env file in the working directory is loaded first if present.
type Config struct {
	Port   string
	DBPath string

	// IdentitySecret verifies tokens minted by the external identity
	// provider. The service never issues identity tokens itself.
	IdentitySecret string

	SessionTTL time.Duration

	// Locale drives collation of product and category names.
	Locale language.Tag

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("DESPENSA_PORT", "8080"),
		DBPath:         getEnv("DESPENSA_DB_PATH", "despensa.db"),
		IdentitySecret: os.Getenv("DESPENSA_IDENTITY_SECRET"),
		SessionTTL:     30 * 24 * time.Hour,
		LogLevel:       getEnv("DESPENSA_LOG_LEVEL", "info"),
		LogFormat:      getEnv("DESPENSA_LOG_FORMAT", "text"),
	}

	if cfg.IdentitySecret == "" {
		return nil, fmt.Errorf("DESPENSA_IDENTITY_SECRET is required")
	}

	if ttl := os.Getenv("DESPENSA_SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("parse DESPENSA_SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}

	locale := getEnv("DESPENSA_LOCALE", "es")
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse DESPENSA_LOCALE %q: %w", locale, err)
	}
	cfg.Locale = tag

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
