package main

import (
	"sync"

	"github.com/open-gsa/gsa/internal/logging"
	"github.com/spf13/cobra"
)

// annotationStructuredLog marks commands that run as services: their
// logs and fatal errors are structured. Interactive commands print plain
// text.
const annotationStructuredLog = "gsa/structured-log"

type commandExecutionContext struct {
	CommandPath       string
	UsesStructuredLog bool
}

var (
	commandContextMu sync.RWMutex
	commandContext   = defaultCommandExecutionContext()
)

func defaultCommandExecutionContext() commandExecutionContext {
	return commandExecutionContext{CommandPath: "gsa"}
}

func setCommandExecutionContext(ctx commandExecutionContext) {
	commandContextMu.Lock()
	defer commandContextMu.Unlock()
	commandContext = ctx
}

func resetCommandExecutionContext() {
	setCommandExecutionContext(defaultCommandExecutionContext())
}

func currentCommandExecutionContext() commandExecutionContext {
	commandContextMu.RLock()
	defer commandContextMu.RUnlock()
	return commandContext
}

func structuredLog() map[string]string {
	return map[string]string{annotationStructuredLog: "true"}
}

func commandUsesStructuredLogging(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if v, ok := c.Annotations[annotationStructuredLog]; ok {
			return v == "true"
		}
	}
	return false
}

// bootstrapCommand records which command runs and installs the process
// logger for structured commands.
func bootstrapCommand(cmd *cobra.Command, _ []string) error {
	structured := commandUsesStructuredLogging(cmd)
	setCommandExecutionContext(commandExecutionContext{
		CommandPath:       cmd.CommandPath(),
		UsesStructuredLog: structured,
	})
	if !structured {
		return nil
	}
	if _, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
		Command: cmd.CommandPath(),
		Writer:  cmd.ErrOrStderr(),
	}); err != nil {
		return withExitCode(exitCodeUsage, err)
	}
	return nil
}
