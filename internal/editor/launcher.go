package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/temirov/sitrep/internal/execshell"
)

const (
	visualEnvironmentVariableConstant    = "VISUAL"
	editorEnvironmentVariableConstant    = "EDITOR"
	fallbackEditorBinaryConstant         = "vi"
	editorLaunchErrorTemplateConstant    = "launching editor %s: %w"
	filePathRequiredMessageConstant      = "editor launch requires a file path"
	executorNotConfiguredMessageConstant = "editor launcher requires a command executor"
)

// Sentinel errors surfaced by launcher construction and launch requests.
var (
	// ErrExecutorNotConfigured indicates a launcher constructed without an executor.
	ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrFilePathRequired indicates a launch request without a target file.
	ErrFilePathRequired = errors.New(filePathRequiredMessageConstant)
)

// CommandExecutor runs interactive editor commands.
type CommandExecutor interface {
	ExecuteEditor(executionContext context.Context, editorBinary string, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// EnvironmentLookup reads an environment variable, reporting whether it is set.
type EnvironmentLookup func(variableName string) (string, bool)

// Launcher opens files in the user's preferred terminal editor.
//
// The editor resolves from $VISUAL, then $EDITOR, then vi; values may carry
// leading arguments ("code --wait") which are preserved.
type Launcher struct {
	executor          CommandExecutor
	environmentLookup EnvironmentLookup
}

// NewLauncher constructs a Launcher backed by the provided executor; a nil lookup uses the process environment.
func NewLauncher(executor CommandExecutor, environmentLookup EnvironmentLookup) (*Launcher, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}

	resolvedLookup := environmentLookup
	if resolvedLookup == nil {
		resolvedLookup = os.LookupEnv
	}

	return &Launcher{executor: executor, environmentLookup: resolvedLookup}, nil
}

// ResolveEditorCommand selects the editor binary and its leading arguments.
func (launcher *Launcher) ResolveEditorCommand() (string, []string) {
	editorVariableNames := []string{visualEnvironmentVariableConstant, editorEnvironmentVariableConstant}
	for _, variableName := range editorVariableNames {
		variableValue, variableSet := launcher.environmentLookup(variableName)
		if !variableSet {
			continue
		}
		editorFields := strings.Fields(variableValue)
		if len(editorFields) == 0 {
			continue
		}
		return editorFields[0], editorFields[1:]
	}
	return fallbackEditorBinaryConstant, nil
}

// Launch opens the file in the resolved editor and waits for it to exit.
func (launcher *Launcher) Launch(executionContext context.Context, filePath string) error {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return ErrFilePathRequired
	}

	editorBinary, editorArguments := launcher.ResolveEditorCommand()
	commandDetails := execshell.CommandDetails{Arguments: append(editorArguments, trimmedPath)}
	if _, executionError := launcher.executor.ExecuteEditor(executionContext, editorBinary, commandDetails); executionError != nil {
		return fmt.Errorf(editorLaunchErrorTemplateConstant, editorBinary, executionError)
	}
	return nil
}
