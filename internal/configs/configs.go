package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppURL                 string
	DatabaseDSN            string
	AllowedOrigins         []string
	RateLimit              int
	TrustedProxies         []*net.IPNet
	RedisAddr              string
	CacheKeyPrefix         string
	CacheTTL               time.Duration
	LogLevel               string
	ShutdownTimeoutSeconds int
}

// CacheEnabled reports whether a redis address was configured.
func (c Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func Load() (Config, error) {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")

	var errs []error
	intVar := func(key string, defaultVal int) int {
		v, err := getEnvAsInt(key, defaultVal)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	trustedProxies, err := getEnvAsCIDRs("TRUSTED_PROXIES")
	if err != nil {
		errs = append(errs, err)
	}

	cfg := Config{
		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		DatabaseDSN:            getEnv("DATABASE_DSN", "tasks.db"),
		AllowedOrigins:         getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimit:              intVar("RATE_LIMIT_PER_MINUTE", 600),
		TrustedProxies:         trustedProxies,
		RedisAddr:              getEnv("REDIS_ADDR", ""),
		CacheKeyPrefix:         getEnv("CACHE_KEY_PREFIX", "task:"),
		CacheTTL:               time.Duration(intVar("CACHE_TTL_SECONDS", 300)) * time.Second,
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		ShutdownTimeoutSeconds: intVar("SHUTDOWN_TIMEOUT_SECONDS", 20),
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	var errs []error

	if cfg.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must not be empty"))
	}
	if len(cfg.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin"))
	}
	if cfg.RateLimit < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative (0 disables it)"))
	}
	if cfg.CacheEnabled() && cfg.CacheTTL < time.Second {
		errs = append(errs, errors.New("CACHE_TTL_SECONDS must be greater than 0"))
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) (int, error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value for %s: %q", key, v)
		}
		return i, nil
	}
	return defaultVal, nil
}

func getEnvAsList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsCIDRs(key string) ([]*net.IPNet, error) {
	var ranges []*net.IPNet
	for _, item := range getEnvAsList(key, nil) {
		_, ipRange, err := net.ParseCIDR(item)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR in %s: %q", key, item)
		}
		ranges = append(ranges, ipRange)
	}
	return ranges, nil
}
