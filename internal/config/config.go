// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is loaded from the environment at startup. godotenv autoload in the
// binaries lets a local .env feed it during development.
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL"`

	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`
	NotifyQueue string `env:"NOTIFY_QUEUE" envDefault:"skate_notifications"`

	// TurnTimeoutSec seeds each new session's per-turn deadline. Video
	// attempts are asynchronous, so the default is a day, not seconds.
	TurnTimeoutSec int `env:"TURN_TIMEOUT_SEC" envDefault:"86400"`

	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"60s"`
	WarningWindow  time.Duration `env:"WARNING_WINDOW" envDefault:"1h"`
	WarnCooldown   time.Duration `env:"WARN_COOLDOWN" envDefault:"30m"`
	HardAgeCap     time.Duration `env:"HARD_AGE_CAP" envDefault:"168h"`

	// ResolverKeyHash is the argon2id hash of the shared key the external
	// dispute resolver presents on /games/dispute/resolve.
	ResolverKeyHash string `env:"RESOLVER_KEY_HASH"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
