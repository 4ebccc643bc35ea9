// Package logging builds the structured loggers shared by every gsa command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

const (
	// EnvFormat selects the handler: json (default) or text.
	EnvFormat = "LOG_FORMAT"
	// EnvLevel is the minimum level: debug, info (default), warn or error.
	EnvLevel = "LOG_LEVEL"

	appName = "gsa"
)

var (
	formatNames = []string{"json", "text"}
	levelNames  = []string{"debug", "info", "warn", "error"}
	levels      = map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
)

type Config struct {
	Format string
	Level  slog.Level
}

// BootstrapOptions controls logger initialization behavior.
type BootstrapOptions struct {
	Command string
	Writer  io.Writer
}

func DefaultConfig() Config {
	return Config{Format: "json", Level: slog.LevelInfo}
}

// LoadConfigFromEnv reads LOG_FORMAT and LOG_LEVEL. Unset variables keep
// their defaults; unknown values are errors.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if v := envValue(EnvFormat); v != "" {
		if !slices.Contains(formatNames, v) {
			return Config{}, fmt.Errorf("%s must be one of: %s", EnvFormat, strings.Join(formatNames, ", "))
		}
		cfg.Format = v
	}
	if v := envValue(EnvLevel); v != "" {
		level, ok := levels[v]
		if !ok {
			return Config{}, fmt.Errorf("%s must be one of: %s", EnvLevel, strings.Join(levelNames, ", "))
		}
		cfg.Level = level
	}
	return cfg, nil
}

func envValue(key string) string {
	return strings.ToLower(strings.TrimSpace(os.Getenv(key)))
}

// NewLogger creates a structured logger tagged with the app and command names.
func NewLogger(cfg Config, writer io.Writer, command string) *slog.Logger {
	if writer == nil {
		writer = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler = slog.NewJSONHandler(writer, opts)
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		handler = slog.NewTextHandler(writer, opts)
	}

	if command = strings.TrimSpace(command); command == "" {
		command = appName
	}
	return slog.New(handler).With("app", appName, "command", command)
}

// BootstrapFromEnv loads logging config from env, installs the default logger, and returns it.
func BootstrapFromEnv(opts BootstrapOptions) (*slog.Logger, error) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg, opts.Writer, opts.Command)
	slog.SetDefault(logger)
	return logger, nil
}

// Terminal is the logger of interactive commands that own stdout: text
// records on writer, warnings and up only. LOG_LEVEL can raise the
// threshold but not lower it; a broken logging env falls back to defaults.
func Terminal(writer io.Writer, command string) *slog.Logger {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Format = "text"
	cfg.Level = max(cfg.Level, slog.LevelWarn)
	return NewLogger(cfg, writer, command)
}

// Component returns logger scoped to one subsystem, falling back to the
// process default when logger is nil.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if name = strings.TrimSpace(name); name == "" {
		return logger
	}
	return logger.With("component", name)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
