package config

import (
	"flag"
	"io"
)

// parseFlags overlays command-line flags onto cfg.
//
// Supported flags:
//
//	-a string          HTTP listen address (e.g. ":8080")
//	-storage string    storage driver: bolt, sqlite, redis, memory
//	-bolt string       bbolt database file
//	-sqlite string     sqlite database file
//	-redis string      redis address
//	-s string          JWT HMAC secret
//	-ttl duration      token lifetime (e.g. "168h")
//	-log-level string  debug, info, warn, error
//	-log-format string json or text
//	-trust-proxy       take client IPs from X-Forwarded-For / X-Real-IP
//	-repair            run directory repair and exit
//	-version           print version and exit
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("nautilus", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage driver")
	fs.StringVar(&cfg.BoltPath, "bolt", cfg.BoltPath, "bbolt database file")
	fs.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "sqlite database file")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.JWTSecret, "s", cfg.JWTSecret, "jwt secret key")
	fs.DurationVar(&cfg.TokenTTL, "ttl", cfg.TokenTTL, "token lifetime")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "trust proxy forwarding headers")
	fs.BoolVar(&cfg.Repair, "repair", false, "repair the user directory and exit")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "show version information")

	return fs.Parse(args)
}
