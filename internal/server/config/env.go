package config

import (
	"fmt"
	"strconv"
	"time"
)

// applyEnv overlays NAUTILUS_* variables onto cfg
func applyEnv(cfg *Config, lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		return nil
	}

	strs := map[string]*string{
		"NAUTILUS_ADDR":              &cfg.Addr,
		"NAUTILUS_STORAGE":           &cfg.Storage,
		"NAUTILUS_BOLT_PATH":         &cfg.BoltPath,
		"NAUTILUS_SQLITE_PATH":       &cfg.SQLitePath,
		"NAUTILUS_REDIS_ADDR":        &cfg.RedisAddr,
		"NAUTILUS_REDIS_PASSWORD":    &cfg.RedisPassword,
		"NAUTILUS_REDIS_NAMESPACE":   &cfg.RedisNamespace,
		"NAUTILUS_JWT_SECRET":        &cfg.JWTSecret,
		"NAUTILUS_ADMIN_DEFAULT_PIN": &cfg.AdminDefaultPin,
		"NAUTILUS_LOG_LEVEL":         &cfg.LogLevel,
		"NAUTILUS_LOG_FORMAT":        &cfg.LogFormat,
	}
	for name, dst := range strs {
		if v, ok := lookupEnv(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"NAUTILUS_TOKEN_TTL":      &cfg.TokenTTL,
		"NAUTILUS_LOGIN_WINDOW":   &cfg.LoginWindow,
		"NAUTILUS_PURGE_INTERVAL": &cfg.PurgeInterval,
	}
	for name, dst := range durations {
		v, ok := lookupEnv(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"NAUTILUS_REDIS_DB":   &cfg.RedisDB,
		"NAUTILUS_LOGIN_RATE": &cfg.LoginRate,
	}
	for name, dst := range ints {
		v, ok := lookupEnv(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"NAUTILUS_TRUST_PROXY": &cfg.TrustProxy,
	}
	for name, dst := range bools {
		v, ok := lookupEnv(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = b
	}

	return nil
}
