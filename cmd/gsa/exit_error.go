package main

import "fmt"

const (
	exitCodeFailure  = 1
	exitCodeUsage    = 2
	exitCodeCanceled = 130
)

// exitError carries a specific process exit code through cobra.
type exitError struct {
	code int
	err  error
	// silent suppresses the error message, for commands that already
	// reported the problem themselves.
	silent bool
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func (e *exitError) Error() string {
	if e == nil {
		return ""
	}
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit %d", e.code)
}

func (e *exitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *exitError) cause(fallback error) error {
	if e != nil && e.err != nil {
		return e.err
	}
	return fallback
}
