// Package config handles configuration for the server,
// including defaults, an optional .env file, environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/iudanet/nautilus/internal/crypto"
)

// Storage drivers
const (
	StorageBolt   = "bolt"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

// ErrMissingSecret is returned by Validate when no JWT secret is configured
var ErrMissingSecret = errors.New("jwt secret is required (NAUTILUS_JWT_SECRET or -s)")

// Config holds runtime settings for the Nautilus server.
//
// Fields:
//   - Addr: HTTP listen address.
//   - Storage: one of bolt, sqlite, redis, memory.
//   - BoltPath / SQLitePath: database files for the file backends.
//   - RedisAddr / RedisPassword / RedisDB / RedisNamespace: redis backend settings.
//   - JWTSecret: HMAC secret for HS256 tokens. No default.
//   - TokenTTL: fixed token lifetime.
//   - AdminDefaultPin: PIN used when the admin record is first seeded.
//   - LoginRate / LoginWindow: per-IP limit on the two login routes.
//   - PurgeInterval: how often expired denylist entries are removed.
//   - TrustProxy: key the login limit by X-Forwarded-For / X-Real-IP.
//     Off by default; only safe behind a proxy that overwrites those headers.
type Config struct {
	Addr            string
	Storage         string
	BoltPath        string
	SQLitePath      string
	RedisAddr       string
	RedisPassword   string
	RedisNamespace  string
	JWTSecret       string
	AdminDefaultPin string
	LogLevel        string
	LogFormat       string
	TokenTTL        time.Duration
	LoginWindow     time.Duration
	PurgeInterval   time.Duration
	ShutdownTimeout time.Duration
	RedisDB         int
	LoginRate       int
	ShowVersion     bool
	Repair          bool
	TrustProxy      bool
}

// LoadDefaults populates Config with development defaults.
// JWTSecret is intentionally left empty.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.Storage = StorageBolt
	c.BoltPath = "nautilus.db"
	c.SQLitePath = "nautilus.sqlite"
	c.RedisAddr = "localhost:6379"
	c.RedisNamespace = "nautilus:"
	c.TokenTTL = 7 * 24 * time.Hour
	c.AdminDefaultPin = "0327"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.LoginRate = 10
	c.LoginWindow = time.Minute
	c.PurgeInterval = time.Hour
	c.ShutdownTimeout = 5 * time.Second
}

// Load builds a Config from defaults, the environment (as seen through
// lookupEnv) and args, then validates it
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := applyEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	// -version не требует остальной конфигурации
	if cfg.ShowVersion {
		return cfg, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables are not overridden.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Validate checks settings that must be fixed before the server starts
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingSecret
	}

	switch c.Storage {
	case StorageBolt, StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage)
	}

	if !crypto.IsValidPin(c.AdminDefaultPin) {
		return errors.New("admin default PIN must be exactly 4 digits")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.LoginRate <= 0 || c.LoginWindow <= 0 {
		return errors.New("login rate and window must be positive")
	}
	if c.PurgeInterval <= 0 {
		return errors.New("purge interval must be positive")
	}

	return nil
}
