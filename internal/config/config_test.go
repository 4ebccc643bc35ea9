package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL",
		"HTTP_ADDR",
		"METRICS_ADDR",
		"AUTO_REFRESH_INTERVAL",
		"CACHE_TTL",
		"PAGE_ROWS",
		"SESSION_COOKIE_SECURE",
		"SESSION_LIFETIME",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadWithOptions_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadWithOptions(LoadOptions{RequireDatabaseURL: false})
	if err != nil {
		t.Fatalf("LoadWithOptions() error = %v", err)
	}
	if cfg.HTTPAddr != defaultHTTPAddr {
		t.Fatalf("HTTPAddr = %q, want %q", cfg.HTTPAddr, defaultHTTPAddr)
	}
	if cfg.AutoRefreshInterval != defaultAutoRefreshInterval {
		t.Fatalf("AutoRefreshInterval = %s, want %s", cfg.AutoRefreshInterval, defaultAutoRefreshInterval)
	}
	if cfg.CacheTTL != defaultCacheTTL {
		t.Fatalf("CacheTTL = %s, want %s", cfg.CacheTTL, defaultCacheTTL)
	}
	if cfg.PageRows != defaultPageRows {
		t.Fatalf("PageRows = %d, want %d", cfg.PageRows, defaultPageRows)
	}
}

func TestLoadWithOptions_RequiresDatabaseURL(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected DATABASE_URL error")
	}
}

func TestLoadWithOptions_AutoRefreshInterval(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{raw: "45s", want: 45 * time.Second},
		{raw: "10", want: 10 * time.Second},
		{raw: "0", want: 0},
		{raw: "-5s", want: -5 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("AUTO_REFRESH_INTERVAL", tc.raw)

			cfg, err := LoadOptionalDB()
			if err != nil {
				t.Fatalf("LoadOptionalDB() error = %v", err)
			}
			if cfg.AutoRefreshInterval != tc.want {
				t.Fatalf("AutoRefreshInterval = %s, want %s", cfg.AutoRefreshInterval, tc.want)
			}
		})
	}
}

func TestLoadWithOptions_InvalidAutoRefreshInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUTO_REFRESH_INTERVAL", "soon")

	if _, err := LoadOptionalDB(); err == nil {
		t.Fatal("expected AUTO_REFRESH_INTERVAL error")
	}
}

func TestLoadWithOptions_PageRowsBounds(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGE_ROWS", "100000")

	cfg, err := LoadOptionalDB()
	if err != nil {
		t.Fatalf("LoadOptionalDB() error = %v", err)
	}
	if cfg.PageRows != maxPageRows {
		t.Fatalf("PageRows = %d, want %d", cfg.PageRows, maxPageRows)
	}

	t.Setenv("PAGE_ROWS", "nope")
	cfg, err = LoadOptionalDB()
	if err != nil {
		t.Fatalf("LoadOptionalDB() error = %v", err)
	}
	if cfg.PageRows != defaultPageRows {
		t.Fatalf("PageRows = %d, want %d", cfg.PageRows, defaultPageRows)
	}
}
