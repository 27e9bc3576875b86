package rootsconfig

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/sitrep/internal/editor"
	"github.com/temirov/sitrep/internal/execshell"
)

const (
	groupUseConstant                      = "roots"
	groupShortDescriptionConstant         = "Manage the registry of monitored repository roots"
	groupLongDescriptionConstant          = "roots maintains the JSON registry of repository roots scanned by the report command."
	listUseConstant                       = "list"
	listShortDescriptionConstant          = "Print registered roots in persisted order"
	addUseConstant                        = "add PATH [PATH...]"
	addShortDescriptionConstant           = "Register repository roots"
	removeUseConstant                     = "remove PATH [PATH...]"
	removeShortDescriptionConstant        = "Unregister repository roots"
	editUseConstant                       = "edit"
	editShortDescriptionConstant          = "Open the registry in the configured editor"
	listEntryTemplateConstant             = "%d. %s\n"
	addErrorTemplateConstant              = "registering roots failed: %w"
	removeErrorTemplateConstant           = "unregistering roots failed: %w"
	editErrorTemplateConstant             = "editing roots registry failed: %w"
	editValidationWarningTemplateConstant = "warning: roots registry %s is not valid after editing: %v\n"
	unexpectedArgumentsMessageConstant    = "command does not accept positional arguments"
)

var errUnexpectedArguments = errors.New(unexpectedArgumentsMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// RegistryProvider supplies the roots registry backing the command family.
type RegistryProvider func() (*Registry, error)

// CommandGroupBuilder assembles the roots command hierarchy.
type CommandGroupBuilder struct {
	LoggerProvider   LoggerProvider
	RegistryProvider RegistryProvider
	EditorLauncher   EditorLauncher
}

// Build constructs the roots command with its list, add, remove, and edit subcommands.
func (builder *CommandGroupBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   groupUseConstant,
		Short: groupShortDescriptionConstant,
		Long:  groupLongDescriptionConstant,
	}

	command.AddCommand(builder.buildListCommand())
	command.AddCommand(builder.buildAddCommand())
	command.AddCommand(builder.buildRemoveCommand())
	command.AddCommand(builder.buildEditCommand())

	return command, nil
}

func (builder *CommandGroupBuilder) buildListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   listUseConstant,
		Short: listShortDescriptionConstant,
		RunE:  builder.runList,
	}
}

func (builder *CommandGroupBuilder) buildAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   addUseConstant,
		Short: addShortDescriptionConstant,
		RunE:  builder.runAdd,
	}
}

func (builder *CommandGroupBuilder) buildRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   removeUseConstant,
		Short: removeShortDescriptionConstant,
		RunE:  builder.runRemove,
	}
}

func (builder *CommandGroupBuilder) buildEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   editUseConstant,
		Short: editShortDescriptionConstant,
		RunE:  builder.runEdit,
	}
}

func (builder *CommandGroupBuilder) runList(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	registry, registryError := builder.resolveRegistry()
	if registryError != nil {
		return registryError
	}

	monitoredRoots, listError := registry.List()
	if listError != nil {
		return listError
	}

	outputWriter := command.OutOrStdout()
	for rootIndex, monitoredRoot := range monitoredRoots {
		fmt.Fprintf(outputWriter, listEntryTemplateConstant, rootIndex+1, monitoredRoot)
	}
	return nil
}

func (builder *CommandGroupBuilder) runAdd(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		return ErrNoRootsProvided
	}

	registry, registryError := builder.resolveRegistry()
	if registryError != nil {
		return registryError
	}

	if _, addError := registry.Add(arguments); addError != nil {
		return fmt.Errorf(addErrorTemplateConstant, addError)
	}
	return nil
}

func (builder *CommandGroupBuilder) runRemove(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		return ErrNoRootsProvided
	}

	registry, registryError := builder.resolveRegistry()
	if registryError != nil {
		return registryError
	}

	if _, removeError := registry.Remove(arguments); removeError != nil {
		return fmt.Errorf(removeErrorTemplateConstant, removeError)
	}
	return nil
}

func (builder *CommandGroupBuilder) runEdit(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errUnexpectedArguments
	}

	registry, registryError := builder.resolveRegistry()
	if registryError != nil {
		return registryError
	}
	if ensureError := registry.EnsureFileExists(); ensureError != nil {
		return ensureError
	}

	launcher, launcherError := builder.resolveEditorLauncher(builder.resolveLogger())
	if launcherError != nil {
		return launcherError
	}

	if launchError := launcher.Launch(command.Context(), registry.FilePath()); launchError != nil {
		return fmt.Errorf(editErrorTemplateConstant, launchError)
	}

	if _, validationError := registry.Load(); validationError != nil {
		fmt.Fprintf(command.ErrOrStderr(), editValidationWarningTemplateConstant, registry.FilePath(), validationError)
	}
	return nil
}

func (builder *CommandGroupBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}

	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}

	return logger
}

func (builder *CommandGroupBuilder) resolveRegistry() (*Registry, error) {
	if builder.RegistryProvider != nil {
		return builder.RegistryProvider()
	}

	defaultPath, pathError := DefaultRegistryPath()
	if pathError != nil {
		return nil, pathError
	}
	return NewRegistry(defaultPath)
}

func (builder *CommandGroupBuilder) resolveEditorLauncher(logger *zap.Logger) (EditorLauncher, error) {
	if builder.EditorLauncher != nil {
		return builder.EditorLauncher, nil
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), false)
	if executorError != nil {
		return nil, executorError
	}
	return editor.NewLauncher(shellExecutor, nil)
}
