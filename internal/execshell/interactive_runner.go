package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// InteractiveCommandRunner executes commands attached to the parent process standard streams.
//
// Editors and other terminal programs need the controlling terminal, so output
// is not captured; the returned result carries the exit code only.
type InteractiveCommandRunner struct{}

// NewInteractiveCommandRunner constructs a runner for terminal-attached programs.
func NewInteractiveCommandRunner() *InteractiveCommandRunner {
	return &InteractiveCommandRunner{}
}

// Run executes the supplied command with inherited standard input and output streams.
func (runner *InteractiveCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandArguments := append([]string{}, command.Details.Arguments...)
	executable := exec.CommandContext(executionContext, string(command.Name), commandArguments...)

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	if len(command.Details.EnvironmentVariables) > 0 {
		mergedEnvironment := append([]string{}, os.Environ()...)
		for environmentKey, environmentValue := range command.Details.EnvironmentVariables {
			mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, environmentValue))
		}
		executable.Env = mergedEnvironment
	}

	executable.Stdin = os.Stdin
	executable.Stdout = os.Stdout
	executable.Stderr = os.Stderr
	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	runError := executable.Run()
	if runError != nil {
		exitError := &exec.ExitError{}
		if errors.As(runError, &exitError) {
			return ExecutionResult{ExitCode: exitError.ExitCode()}, nil
		}
		return ExecutionResult{}, runError
	}

	return ExecutionResult{ExitCode: 0}, nil
}
