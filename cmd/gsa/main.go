package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/open-gsa/gsa/internal/logging"
)

func main() {
	os.Exit(run(Execute, os.Stderr))
}

// run executes the command tree and turns its error into the process exit
// code, reporting the error on stderr unless the command already did.
func run(execute func() error, stderr io.Writer) int {
	f, failed := classify(execute())
	if !failed {
		return 0
	}
	if !f.silent {
		f.report(stderr, currentCommandExecutionContext())
	}
	return f.code
}

// failure is a command error resolved to what the process reports.
type failure struct {
	code   int
	err    error
	silent bool
}

func classify(err error) (failure, bool) {
	if err == nil {
		return failure{}, false
	}
	if ee, ok := errors.AsType[*exitError](err); ok {
		return failure{code: ee.code, err: ee.cause(err), silent: ee.silent}, true
	}
	if errors.Is(err, context.Canceled) {
		return failure{code: exitCodeCanceled, err: err}, true
	}
	return failure{code: exitCodeFailure, err: err}, true
}

// report prints f as plain text for interactive commands and as one log
// record for service commands. An invalid logging environment falls back to
// the default logger config so the error is never lost.
func (f failure) report(w io.Writer, cmd commandExecutionContext) {
	canceled := f.code == exitCodeCanceled
	if !cmd.UsesStructuredLog {
		if canceled {
			fmt.Fprintln(w, "canceled")
		} else {
			fmt.Fprintln(w, f.err)
		}
		return
	}

	cfg, err := logging.LoadConfigFromEnv()
	if err != nil {
		cfg = logging.DefaultConfig()
	}
	msg := "command failed"
	if canceled {
		msg = "command canceled"
	}
	logging.NewLogger(cfg, w, cmd.CommandPath).Error(msg, "exit_code", f.code, "error", f.err)
}
