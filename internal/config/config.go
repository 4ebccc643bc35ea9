package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultMetricsAddr         = ":9090"
	defaultAutoRefreshInterval = 30 * time.Second
	defaultCacheTTL            = 15 * time.Second
	defaultSessionLifetime     = 12 * time.Hour

	defaultPageRows = 10
	maxPageRows     = 500
)

type Config struct {
	DatabaseURL         string
	HTTPAddr            string
	MetricsAddr         string
	AutoRefreshInterval time.Duration
	CacheTTL            time.Duration
	PageRows            int
	SessionCookieSecure bool
	SessionLifetime     time.Duration
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadOptionalDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HTTPAddr:            getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:         getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		AutoRefreshInterval: defaultAutoRefreshInterval,
		CacheTTL:            defaultCacheTTL,
		PageRows:            getenvIntDefault("PAGE_ROWS", defaultPageRows),
		SessionCookieSecure: getenvBoolDefault("SESSION_COOKIE_SECURE", false),
		SessionLifetime:     defaultSessionLifetime,
	}
	if cfg.PageRows > maxPageRows {
		cfg.PageRows = maxPageRows
	}

	// Zero or negative disables auto-refresh, so unlike the other durations
	// it is accepted as-is.
	if v := strings.TrimSpace(os.Getenv("AUTO_REFRESH_INTERVAL")); v != "" {
		d, err := parseDurationOrSeconds(v)
		if err != nil {
			return cfg, errors.New("AUTO_REFRESH_INTERVAL must be a duration (e.g. 30s) or whole seconds")
		}
		cfg.AutoRefreshInterval = d
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("SESSION_LIFETIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionLifetime = d
		}
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func parseDurationOrSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
