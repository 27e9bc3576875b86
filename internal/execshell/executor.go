package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CommandName identifies an executable invoked through the shell executor.
type CommandName string

// Supported executables.
const (
	// CommandGit identifies the git executable.
	CommandGit CommandName = "git"
)

const (
	commandStartedLogMessageConstant          = "external command started"
	commandCompletedLogMessageConstant        = "external command completed"
	commandFailedLogMessageConstant           = "external command exited with failure"
	commandExecutionFailedLogMessageConstant  = "external command could not be executed"
	logFieldCommandConstant                   = "command"
	logFieldArgumentsConstant                 = "arguments"
	logFieldWorkingDirectoryConstant          = "working_directory"
	logFieldExitCodeConstant                  = "exit_code"
	commandFailedErrorTemplateConstant        = "%s %s failed with exit code %d%s"
	commandExecutionErrorTemplateConstant     = "%s %s failed: %v"
	commandFailedStandardErrorSuffixConstant  = ": %s"
	loggerNotConfiguredMessageConstant        = "shell executor requires a logger"
	commandRunnerNotConfiguredMessageConstant = "shell executor requires a command runner"
	commandNameMissingMessageConstant         = "shell command requires an executable name"
	commandArgumentsSeparatorConstant         = " "
)

// Sentinel errors surfaced by the shell executor constructors and entry points.
var (
	// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrCommandNameMissing indicates an execution request without an executable name.
	ErrCommandNameMissing = errors.New(commandNameMissingMessageConstant)
)

// CommandDetails carries the invocation parameters for a shell command.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand pairs an executable name with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outcome of a completed command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands and reports their results.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that ran to completion with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error renders the failed command with its exit code and trimmed standard error.
func (failure CommandFailedError) Error() string {
	standardErrorSuffix := ""
	trimmedStandardError := strings.TrimSpace(failure.Result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorSuffix = fmt.Sprintf(commandFailedStandardErrorSuffixConstant, trimmedStandardError)
	}
	return fmt.Sprintf(
		commandFailedErrorTemplateConstant,
		failure.Command.Name,
		strings.Join(failure.Command.Details.Arguments, commandArgumentsSeparatorConstant),
		failure.Result.ExitCode,
		standardErrorSuffix,
	)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error renders the command that failed to launch together with the underlying cause.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(
		commandExecutionErrorTemplateConstant,
		failure.Command.Name,
		strings.Join(failure.Command.Details.Arguments, commandArgumentsSeparatorConstant),
		failure.Cause,
	)
}

// Unwrap exposes the underlying execution failure.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor runs external commands with structured logging and lifecycle notifications.
type ShellExecutor struct {
	logger               *zap.Logger
	commandRunner        CommandRunner
	interactiveRunner    CommandRunner
	eventObserver        CommandEventObserver
	messageFormatter     CommandMessageFormatter
	humanReadableLogging bool
}

// NewShellExecutor constructs a shell executor backed by the provided logger and runner.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, humanReadableLogging bool) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}

	return &ShellExecutor{
		logger:               logger,
		commandRunner:        commandRunner,
		interactiveRunner:    NewInteractiveCommandRunner(),
		eventObserver:        noopCommandEventObserver{},
		messageFormatter:     CommandMessageFormatter{},
		humanReadableLogging: humanReadableLogging,
	}, nil
}

// RegisterCommandEventObserver replaces the lifecycle observer; nil restores the no-op observer.
func (executor *ShellExecutor) RegisterCommandEventObserver(observer CommandEventObserver) {
	if observer == nil {
		executor.eventObserver = noopCommandEventObserver{}
		return
	}
	executor.eventObserver = observer
}

// RegisterInteractiveCommandRunner replaces the terminal-attached runner; nil restores the default.
func (executor *ShellExecutor) RegisterInteractiveCommandRunner(runner CommandRunner) {
	if runner == nil {
		executor.interactiveRunner = NewInteractiveCommandRunner()
		return
	}
	executor.interactiveRunner = runner
}

// ExecuteGit runs the git executable with the supplied details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteEditor runs a terminal editor attached to the caller's standard streams.
func (executor *ShellExecutor) ExecuteEditor(executionContext context.Context, editorBinary string, details CommandDetails) (ExecutionResult, error) {
	return executor.executeWithRunner(executor.interactiveRunner, executionContext, ShellCommand{Name: CommandName(editorBinary), Details: details})
}

// Execute runs the supplied command, logging its lifecycle and notifying the observer.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	return executor.executeWithRunner(executor.commandRunner, executionContext, command)
}

func (executor *ShellExecutor) executeWithRunner(commandRunner CommandRunner, executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(strings.TrimSpace(string(command.Name))) == 0 {
		return ExecutionResult{}, ErrCommandNameMissing
	}

	executor.logCommandStarted(command)
	executor.eventObserver.CommandStarted(command)

	executionResult, runError := commandRunner.Run(executionContext, command)
	if runError != nil {
		executionFailure := CommandExecutionError{Command: command, Cause: runError}
		executor.logExecutionFailure(command, executionFailure)
		executor.eventObserver.CommandExecutionFailed(command, executionFailure)
		return ExecutionResult{}, executionFailure
	}

	if executionResult.ExitCode != 0 {
		commandFailure := CommandFailedError{Command: command, Result: executionResult}
		executor.logCommandFailed(command, executionResult)
		executor.eventObserver.CommandCompleted(command, executionResult)
		return executionResult, commandFailure
	}

	executor.logCommandCompleted(command, executionResult)
	executor.eventObserver.CommandCompleted(command, executionResult)
	return executionResult, nil
}

func (executor *ShellExecutor) logCommandStarted(command ShellCommand) {
	if executor.humanReadableLogging {
		executor.logger.Debug(executor.messageFormatter.BuildStartedMessage(command))
		return
	}
	executor.logger.Debug(
		commandStartedLogMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
}

func (executor *ShellExecutor) logCommandCompleted(command ShellCommand, result ExecutionResult) {
	if executor.humanReadableLogging {
		executor.logger.Debug(executor.messageFormatter.BuildSuccessMessage(command))
		return
	}
	executor.logger.Debug(
		commandCompletedLogMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
	)
}

func (executor *ShellExecutor) logCommandFailed(command ShellCommand, result ExecutionResult) {
	if executor.humanReadableLogging {
		executor.logger.Debug(executor.messageFormatter.BuildFailureMessage(command, result))
		return
	}
	executor.logger.Debug(
		commandFailedLogMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
	)
}

func (executor *ShellExecutor) logExecutionFailure(command ShellCommand, failure error) {
	if executor.humanReadableLogging {
		executor.logger.Error(executor.messageFormatter.BuildExecutionFailureMessage(command, failure))
		return
	}
	executor.logger.Error(
		commandExecutionFailedLogMessageConstant,
		zap.String(logFieldCommandConstant, string(command.Name)),
		zap.Strings(logFieldArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
		zap.Error(failure),
	)
}
