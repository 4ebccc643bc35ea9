package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReport_StructuredForServiceCommands(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "gsa serve",
		UsesStructuredLog: true,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	failure{code: exitCodeFailure, err: errors.New("boom")}.report(&out, currentCommandExecutionContext())

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected structured log output")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got := payload["app"]; got != "gsa" {
		t.Fatalf("app = %v, want %q", got, "gsa")
	}
	if got := payload["command"]; got != "gsa serve" {
		t.Fatalf("command = %v, want %q", got, "gsa serve")
	}
	if got := payload["exit_code"]; got != float64(exitCodeFailure) {
		t.Fatalf("exit_code = %v, want %v", got, exitCodeFailure)
	}
	if got := payload["error"]; got != "boom" {
		t.Fatalf("error = %v, want %q", got, "boom")
	}
}

func TestReport_FallsBackToJSONWhenLoggingEnvInvalid(t *testing.T) {
	t.Setenv("LOG_FORMAT", "invalid")
	t.Setenv("LOG_LEVEL", "info")
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "gsa migrate",
		UsesStructuredLog: true,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	failure{code: exitCodeFailure, err: errors.New("boom")}.report(&out, currentCommandExecutionContext())

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &payload); err != nil {
		t.Fatalf("expected JSON fallback log, got parse error: %v", err)
	}
}

func TestReport_PlainOutputForInteractiveCommands(t *testing.T) {
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       "gsa watch",
		UsesStructuredLog: false,
	})
	t.Cleanup(resetCommandExecutionContext)

	var out bytes.Buffer
	failure{code: exitCodeFailure, err: errors.New("plain boom")}.report(&out, currentCommandExecutionContext())
	if got := out.String(); got != "plain boom\n" {
		t.Fatalf("output = %q, want %q", got, "plain boom\n")
	}

	out.Reset()
	failure{code: exitCodeCanceled, err: context.Canceled}.report(&out, currentCommandExecutionContext())
	if got := out.String(); got != "canceled\n" {
		t.Fatalf("output = %q, want %q", got, "canceled\n")
	}
}

func TestReport_CanceledServiceCommand(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "info")
	cmd := commandExecutionContext{CommandPath: "gsa serve", UsesStructuredLog: true}

	var out bytes.Buffer
	failure{code: exitCodeCanceled, err: context.Canceled}.report(&out, cmd)

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &payload); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got := payload["msg"]; got != "command canceled" {
		t.Fatalf("msg = %v, want %q", got, "command canceled")
	}
}

func TestClassify(t *testing.T) {
	usage := errors.New("bad type")
	tests := []struct {
		name   string
		err    error
		failed bool
		code   int
		cause  error
	}{
		{name: "nil", err: nil},
		{name: "plain", err: usage, failed: true, code: exitCodeFailure, cause: usage},
		{name: "wrapped exit code", err: fmt.Errorf("watch: %w", withExitCode(exitCodeUsage, usage)), failed: true, code: exitCodeUsage, cause: usage},
		{name: "canceled", err: fmt.Errorf("serve: %w", context.Canceled), failed: true, code: exitCodeCanceled, cause: context.Canceled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, failed := classify(tc.err)
			if failed != tc.failed || f.code != tc.code {
				t.Fatalf("classify() = %+v, %v; want code %d, %v", f, failed, tc.code, tc.failed)
			}
			if tc.cause != nil && !errors.Is(f.err, tc.cause) {
				t.Fatalf("cause = %v, want %v", f.err, tc.cause)
			}
		})
	}
}

func TestRunExitCodes(t *testing.T) {
	setCommandExecutionContext(commandExecutionContext{CommandPath: "gsa watch"})
	t.Cleanup(resetCommandExecutionContext)

	tests := []struct {
		name string
		err  error
		want int
		out  string
	}{
		{name: "success", err: nil, want: 0, out: ""},
		{name: "plain failure", err: errors.New("boom"), want: exitCodeFailure, out: "boom\n"},
		{name: "usage", err: withExitCode(exitCodeUsage, errors.New("bad flag")), want: exitCodeUsage, out: "bad flag\n"},
		{name: "wrapped usage", err: fmt.Errorf("watch: %w", withExitCode(exitCodeUsage, errors.New("bad type"))), want: exitCodeUsage, out: "bad type\n"},
		{name: "canceled", err: fmt.Errorf("serve: %w", context.Canceled), want: exitCodeCanceled, out: "canceled\n"},
		{name: "silent", err: &exitError{code: 3, err: errors.New("already reported"), silent: true}, want: 3, out: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			got := run(func() error { return tc.err }, &out)
			if got != tc.want {
				t.Fatalf("run() = %d, want %d", got, tc.want)
			}
			if out.String() != tc.out {
				t.Fatalf("stderr = %q, want %q", out.String(), tc.out)
			}
		})
	}
}

func TestWithExitCodeNilError(t *testing.T) {
	if err := withExitCode(exitCodeUsage, nil); err != nil {
		t.Fatalf("withExitCode(nil) = %v, want nil", err)
	}
}
