package scan

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/sitrep/internal/execshell"
	"github.com/temirov/sitrep/internal/probe"
	"github.com/temirov/sitrep/internal/repos/dependencies"
	"github.com/temirov/sitrep/internal/ui"
	"github.com/temirov/sitrep/internal/utils"
	"github.com/temirov/sitrep/internal/utils/flags"
)

const (
	commandUseConstant                    = "report [root ...]"
	commandShortDescriptionConstant       = "Summarize the synchronization status of local Git repositories"
	commandLongDescriptionConstant        = "report discovers Git repositories beneath the monitored roots, probes each one with read-only git queries, and prints a grouped situation report."
	commandExecutionErrorTemplateConstant = "status report failed: %w"
	flagVerboseNameConstant               = "verbose"
	flagVerboseDescriptionConstant        = "Include per-repository detail lines"
	flagEmojiNameConstant                 = "emoji"
	flagEmojiDescriptionConstant          = "Render states with emoji icons"
	flagOfflineNameConstant               = "offline"
	flagOfflineDescriptionConstant        = "Skip remote reachability checks"
	flagTimeoutNameConstant               = "timeout"
	flagTimeoutDescriptionConstant        = "Per-repository probe timeout in seconds"
	flagConcurrencyNameConstant           = "concurrency"
	flagConcurrencyDescriptionConstant    = "Number of repositories probed concurrently (0 selects the logical CPU count)"
	flagIgnoreNameConstant                = "ignore"
	flagIgnoreDescriptionConstant         = "Additional directory name to prune during discovery (repeatable)"
	missingRootsMessageConstant           = "no repository roots registered; pass roots as arguments or run \"sitrep roots add PATH\""
	rendererMissingMessageConstant        = "report renderer not configured"
)

var (
	errNoRootsConfigured     = errors.New(missingRootsMessageConstant)
	errRendererNotConfigured = errors.New(rendererMissingMessageConstant)
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// RootsProvider supplies the registered repository roots consulted when the
// command receives no positional arguments.
type RootsProvider func() ([]string, error)

// RendererProvider constructs the report renderer writing to the provided writer.
type RendererProvider func(outputWriter io.Writer, emojiEnabled bool, verboseEnabled bool) ReportRenderer

// CommandBuilder assembles the report cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() CommandConfiguration
	RootsProvider                RootsProvider
	RendererProvider             RendererProvider
	Discoverer                   RepositoryDiscoverer
	Prober                       RepositoryProber
	GitExecutor                  GitExecutor
	GitManager                   probe.RepositoryManager
	CommandEventsObserver        execshell.CommandEventObserver

	verboseToggleValue bool
	emojiToggleValue   bool
	offlineToggleValue bool
}

// Build constructs the cobra command for the situation report.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		RunE:  builder.run,
	}

	flags.AddToggleFlag(command.Flags(), &builder.verboseToggleValue, flagVerboseNameConstant, "", false, flagVerboseDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), &builder.emojiToggleValue, flagEmojiNameConstant, "", true, flagEmojiDescriptionConstant)
	flags.AddToggleFlag(command.Flags(), &builder.offlineToggleValue, flagOfflineNameConstant, "", false, flagOfflineDescriptionConstant)
	command.Flags().Int(flagTimeoutNameConstant, defaultTimeoutSecondsConstant, flagTimeoutDescriptionConstant)
	command.Flags().Int(flagConcurrencyNameConstant, 0, flagConcurrencyDescriptionConstant)
	command.Flags().StringArray(flagIgnoreNameConstant, nil, flagIgnoreDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()

	options, optionsError := builder.parseOptions(command, arguments, configuration)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	gitExecutor, executorError := builder.resolveGitExecutor(logger)
	if executorError != nil {
		return executorError
	}

	gitManager, managerError := builder.resolveGitManager(gitExecutor)
	if managerError != nil {
		return managerError
	}

	repositoryProber, proberError := builder.resolveProber(gitManager, logger, options)
	if proberError != nil {
		return proberError
	}

	repositoryDiscoverer := builder.resolveDiscoverer(logger, options.IgnoreNames)

	reportRenderer, rendererError := builder.resolveRenderer(utils.NewFlushingWriter(command.OutOrStdout()), builder.effectiveEmojiSetting(command, configuration), options.Verbose)
	if rendererError != nil {
		return rendererError
	}

	service, serviceError := NewService(repositoryDiscoverer, repositoryProber, logger, utils.NewFlushingWriter(command.ErrOrStderr()))
	if serviceError != nil {
		return serviceError
	}

	rootReports, runSummary, runError := service.Run(command.Context(), options)
	if runError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, runError)
	}

	renderError := reportRenderer.Render(rootReports, runSummary)
	if renderError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, renderError)
	}

	return nil
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, configuration CommandConfiguration) (ScanOptions, error) {
	requestedRoots := append([]string{}, arguments...)
	if len(requestedRoots) == 0 {
		registeredRoots, rootsError := builder.resolveRegisteredRoots()
		if rootsError != nil {
			return ScanOptions{}, rootsError
		}
		requestedRoots = registeredRoots
	}
	if len(requestedRoots) == 0 {
		return ScanOptions{}, errNoRootsConfigured
	}

	timeoutSeconds := configuration.TimeoutSeconds
	if command.Flags().Changed(flagTimeoutNameConstant) {
		flagTimeoutValue, timeoutFlagError := command.Flags().GetInt(flagTimeoutNameConstant)
		if timeoutFlagError != nil {
			return ScanOptions{}, timeoutFlagError
		}
		timeoutSeconds = flagTimeoutValue
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSecondsConstant
	}

	concurrencyValue := configuration.Concurrency
	if command.Flags().Changed(flagConcurrencyNameConstant) {
		flagConcurrencyValue, concurrencyFlagError := command.Flags().GetInt(flagConcurrencyNameConstant)
		if concurrencyFlagError != nil {
			return ScanOptions{}, concurrencyFlagError
		}
		concurrencyValue = flagConcurrencyValue
	}

	offlineEnabled := configuration.Offline
	if command.Flags().Changed(flagOfflineNameConstant) {
		offlineEnabled = builder.offlineToggleValue
	}

	verboseEnabled := builder.verboseToggleValue

	ignoreFlagValues, ignoreFlagError := command.Flags().GetStringArray(flagIgnoreNameConstant)
	if ignoreFlagError != nil {
		return ScanOptions{}, ignoreFlagError
	}
	mergedIgnoreNames := append(append([]string{}, configuration.IgnoreDirectories...), ignoreFlagValues...)

	scanOptions := ScanOptions{
		Roots:         requestedRoots,
		IgnoreNames:   sanitizeDirectoryNames(mergedIgnoreNames),
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		Concurrency:   concurrencyValue,
		Offline:       offlineEnabled,
		Verbose:       verboseEnabled,
		CommitDetails: verboseEnabled,
	}

	return scanOptions, nil
}

func (builder *CommandBuilder) resolveRegisteredRoots() ([]string, error) {
	if builder.RootsProvider == nil {
		return nil, nil
	}
	return builder.RootsProvider()
}

func (builder *CommandBuilder) effectiveEmojiSetting(command *cobra.Command, configuration CommandConfiguration) bool {
	if command.Flags().Changed(flagEmojiNameConstant) {
		return builder.emojiToggleValue
	}
	return configuration.Emoji
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	configuration := DefaultCommandConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	return configuration.sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) humanReadableLoggingEnabled() bool {
	if builder.HumanReadableLoggingProvider == nil {
		return false
	}
	return builder.HumanReadableLoggingProvider()
}

func (builder *CommandBuilder) resolveGitExecutor(logger *zap.Logger) (GitExecutor, error) {
	humanReadableLogging := builder.humanReadableLoggingEnabled()
	commandEventsObserver := builder.CommandEventsObserver
	if commandEventsObserver == nil && humanReadableLogging {
		commandEventsObserver = ui.NewConsoleCommandEventLogger(logger)
	}
	return dependencies.ResolveGitExecutor(builder.GitExecutor, logger, humanReadableLogging, commandEventsObserver)
}

func (builder *CommandBuilder) resolveGitManager(executor GitExecutor) (probe.RepositoryManager, error) {
	return dependencies.ResolveGitRepositoryManager(builder.GitManager, executor)
}

func (builder *CommandBuilder) resolveProber(manager probe.RepositoryManager, logger *zap.Logger, options ScanOptions) (RepositoryProber, error) {
	if builder.Prober != nil {
		return builder.Prober, nil
	}
	probeOptions := probe.ProbeOptions{Offline: options.Offline, CollectCommitDetails: options.CommitDetails}
	return probe.NewGitProbe(manager, logger, probeOptions)
}

func (builder *CommandBuilder) resolveDiscoverer(logger *zap.Logger, ignoreNames []string) RepositoryDiscoverer {
	if builder.Discoverer != nil {
		return builder.Discoverer
	}
	return dependencies.ResolveRepositoryDiscoverer(nil, logger, ignoreNames)
}

func (builder *CommandBuilder) resolveRenderer(outputWriter io.Writer, emojiEnabled bool, verboseEnabled bool) (ReportRenderer, error) {
	if builder.RendererProvider == nil {
		return nil, errRendererNotConfigured
	}
	renderer := builder.RendererProvider(outputWriter, emojiEnabled, verboseEnabled)
	if renderer == nil {
		return nil, errRendererNotConfigured
	}
	return renderer, nil
}
