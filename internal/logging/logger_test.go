package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv(EnvFormat, "")
	t.Setenv(EnvLevel, "")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.Format != "json" {
		t.Fatalf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.Level != slog.LevelInfo {
		t.Fatalf("Level = %v, want %v", cfg.Level, slog.LevelInfo)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		format string
		level  string
	}{
		{name: "format", format: "yaml"},
		{name: "level", level: "trace"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvFormat, tc.format)
			t.Setenv(EnvLevel, tc.level)
			if _, err := LoadConfigFromEnv(); err == nil {
				t.Fatalf("expected error for %s", tc.name)
			}
		})
	}
}

func decodeLine(t *testing.T, out *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected JSON log line")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return payload
}

func TestNewLogger_JSONIncludesStaticAttrs(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(DefaultConfig(), &out, "gsa serve")
	logger.Info("hello")

	payload := decodeLine(t, &out)
	if got := payload["app"]; got != "gsa" {
		t.Fatalf("app = %v, want %q", got, "gsa")
	}
	if got := payload["command"]; got != "gsa serve" {
		t.Fatalf("command = %v, want %q", got, "gsa serve")
	}
}

func TestComponentAddsAttr(t *testing.T) {
	var out bytes.Buffer
	logger := Component(NewLogger(DefaultConfig(), &out, ""), "refresh")
	logger.Info("tick")

	payload := decodeLine(t, &out)
	if got := payload["component"]; got != "refresh" {
		t.Fatalf("component = %v, want %q", got, "refresh")
	}
	if got := payload["command"]; got != "gsa" {
		t.Fatalf("command = %v, want %q", got, "gsa")
	}
}

func TestLoadConfigFromEnv_NormalizesCase(t *testing.T) {
	t.Setenv(EnvFormat, " TEXT ")
	t.Setenv(EnvLevel, "Debug")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if cfg.Format != "text" || cfg.Level != slog.LevelDebug {
		t.Fatalf("cfg = %+v, want text/debug", cfg)
	}
}

func TestTerminalKeepsInfoOffTheTerminal(t *testing.T) {
	t.Setenv(EnvFormat, "json")
	t.Setenv(EnvLevel, "debug")

	var out bytes.Buffer
	logger := Terminal(&out, "gsa watch")
	logger.Info("cycle ready")
	if out.Len() != 0 {
		t.Fatalf("expected info to be dropped, got %q", out.String())
	}

	logger.Warn("loader failed", "loader", "permissions")
	got := out.String()
	if !strings.Contains(got, "level=WARN") || !strings.Contains(got, "loader=permissions") {
		t.Fatalf("expected a text warning, got %q", got)
	}
}

func TestTerminalHonorsHigherLevel(t *testing.T) {
	t.Setenv(EnvLevel, "error")

	var out bytes.Buffer
	Terminal(&out, "gsa watch").Warn("loader failed")
	if out.Len() != 0 {
		t.Fatalf("expected warn to be dropped at LOG_LEVEL=error, got %q", out.String())
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected Discard to be disabled for every level")
	}
}
