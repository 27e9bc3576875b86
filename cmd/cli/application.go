package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/sitrep/internal/report"
	"github.com/temirov/sitrep/internal/rootsconfig"
	"github.com/temirov/sitrep/internal/scan"
	"github.com/temirov/sitrep/internal/utils"
	"github.com/temirov/sitrep/internal/utils/flags"
)

const (
	applicationNameConstant                 = "sitrep"
	applicationShortDescriptionConstant     = "Summarize the synchronization status of local Git repositories"
	applicationLongDescriptionConstant      = "sitrep discovers Git repositories beneath registered roots, probes each one with read-only git queries, and prints a grouped situation report."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagDescriptionConstant         = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagDescriptionConstant        = "Override the configured log format."
	rootsFileFlagNameConstant               = "roots-file"
	rootsFileFlagUsageConstant              = "Override the path to the monitored roots registry."
	versionFlagNameConstant                 = "version"
	versionFlagUsageConstant                = "Print the sitrep version and exit."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	environmentPrefixConstant               = "SITREP"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	rootCommandInfoMessageConstant          = "sitrep CLI executed"
	rootCommandDebugMessageConstant         = "sitrep CLI diagnostics"
	logFieldCommandNameConstant             = "command_name"
	logFieldArgumentCountConstant           = "argument_count"
	logFieldArgumentsConstant               = "arguments"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	reportConfigurationKeyConstant          = "report"
	rootsFileConfigKeyConstant              = "roots_file"
	versionOutputTemplateConstant           = "sitrep version: %s\n"
	developmentVersionConstant              = "development"
	develBuildVersionConstant               = "(devel)"
	argumentTerminatorConstant              = "--"
	versionFlagArgumentConstant             = "--version"
	commandBuildErrorTemplateConstant       = "unable to build %s command: %w"
	reportCommandLabelConstant              = "report"
	rootsCommandLabelConstant               = "roots"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common    ApplicationCommonConfiguration `mapstructure:"common"`
	Report    scan.CommandConfiguration      `mapstructure:"report"`
	RootsFile string                         `mapstructure:"roots_file"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	rootsFileFlagValue     string
	versionFlagValue       bool
	commandBuildError      error
	versionResolver        func(executionContext context.Context) string
	exitFunction           func(exitCode int)
	commandContextAccessor utils.CommandContextAccessor
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant},
	)
	embeddedConfiguration, embeddedConfigurationType := EmbeddedDefaultConfiguration()
	configurationLoader.SetEmbeddedConfiguration(embeddedConfiguration, embeddedConfigurationType)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		versionResolver:        resolveApplicationVersion,
		exitFunction:           os.Exit,
		commandContextAccessor: utils.NewCommandContextAccessor(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command, arguments)
		},
	}

	logLevelFlagUsage := flags.FormatChoiceUsage(
		string(utils.LogLevelInfo),
		[]string{string(utils.LogLevelDebug), string(utils.LogLevelInfo), string(utils.LogLevelWarn), string(utils.LogLevelError)},
		logLevelFlagDescriptionConstant,
	)
	logFormatFlagUsage := flags.FormatChoiceUsage(
		string(utils.LogFormatStructured),
		[]string{string(utils.LogFormatStructured), string(utils.LogFormatConsole)},
		logFormatFlagDescriptionConstant,
	)

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsage)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsage)
	cobraCommand.PersistentFlags().StringVar(&application.rootsFileFlagValue, rootsFileFlagNameConstant, "", rootsFileFlagUsageConstant)
	cobraCommand.PersistentFlags().BoolVar(&application.versionFlagValue, versionFlagNameConstant, false, versionFlagUsageConstant)

	reportBuilder := scan.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider: func() scan.CommandConfiguration {
			return application.configuration.Report
		},
		RootsProvider: application.registeredRootPaths,
		RendererProvider: func(outputWriter io.Writer, emojiEnabled bool, verboseEnabled bool) scan.ReportRenderer {
			return report.NewRenderer(outputWriter, report.Options{EmojiEnabled: emojiEnabled, VerboseEnabled: verboseEnabled}, nil)
		},
	}
	reportCommand, reportBuildError := reportBuilder.Build()
	if reportBuildError != nil {
		application.recordCommandBuildError(reportCommandLabelConstant, reportBuildError)
	} else {
		cobraCommand.AddCommand(reportCommand)
	}

	rootsBuilder := rootsconfig.CommandGroupBuilder{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		RegistryProvider: application.resolveRootsRegistry,
	}
	rootsCommand, rootsBuildError := rootsBuilder.Build()
	if rootsBuildError != nil {
		application.recordCommandBuildError(rootsCommandLabelConstant, rootsBuildError)
	} else {
		cobraCommand.AddCommand(rootsCommand)
	}

	application.rootCommand = cobraCommand

	return application
}

func (application *Application) recordCommandBuildError(commandLabel string, buildError error) {
	if application.commandBuildError != nil {
		return
	}
	application.commandBuildError = fmt.Errorf(commandBuildErrorTemplateConstant, commandLabel, buildError)
}

// Execute runs the configured Cobra command hierarchy and ensures logger flushing.
func (application *Application) Execute() error {
	if application.commandBuildError != nil {
		return application.commandBuildError
	}

	commandArguments := os.Args[1:]
	if application.versionRequested(commandArguments) {
		application.printVersion()
		application.exitFunction(0)
		return nil
	}

	application.rootCommand.SetArgs(flags.NormalizeToggleArguments(commandArguments))

	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
		rootsFileConfigKeyConstant:       "",
	}
	for configurationKey, configurationValue := range scan.DefaultConfigurationValues(reportConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	if application.persistentFlagChanged(command, rootsFileFlagNameConstant) {
		application.configuration.RootsFile = application.rootsFileFlagValue
	}

	loggerOutputs, loggerCreationError := application.loggerFactory.CreateLoggerOutputs(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = loggerOutputs.DiagnosticLogger

	application.logger.Info(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		command.SetContext(updatedContext)
		if rootCommand := command.Root(); rootCommand != nil {
			rootCommand.SetContext(updatedContext)
		}
	}

	return nil
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) resolveRootsRegistry() (*rootsconfig.Registry, error) {
	registryPath, registryPathError := rootsconfig.ResolveRegistryPath(application.configuration.RootsFile)
	if registryPathError != nil {
		return nil, registryPathError
	}
	return rootsconfig.NewRegistry(registryPath)
}

func (application *Application) registeredRootPaths() ([]string, error) {
	registry, registryError := application.resolveRootsRegistry()
	if registryError != nil {
		return nil, registryError
	}
	return registry.Load()
}

func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	application.logger.Info(
		rootCommandInfoMessageConstant,
		zap.String(logFieldCommandNameConstant, command.Name()),
		zap.Int(logFieldArgumentCountConstant, len(arguments)),
	)

	application.logger.Debug(
		rootCommandDebugMessageConstant,
		zap.Strings(logFieldArgumentsConstant, arguments),
	)

	if len(arguments) == 0 {
		return command.Help()
	}

	return nil
}

func (application *Application) versionRequested(arguments []string) bool {
	for _, argumentValue := range arguments {
		if argumentValue == argumentTerminatorConstant {
			return false
		}
		if argumentValue == versionFlagArgumentConstant {
			return true
		}
	}
	return false
}

func (application *Application) printVersion() {
	versionValue := developmentVersionConstant
	if application.versionResolver != nil {
		versionValue = application.versionResolver(application.rootCommand.Context())
	}
	fmt.Fprintf(os.Stdout, versionOutputTemplateConstant, versionValue)
}

func resolveApplicationVersion(context.Context) string {
	buildInformation, buildInformationAvailable := debug.ReadBuildInfo()
	if !buildInformationAvailable {
		return developmentVersionConstant
	}

	moduleVersion := strings.TrimSpace(buildInformation.Main.Version)
	if len(moduleVersion) == 0 || moduleVersion == develBuildVersionConstant {
		return developmentVersionConstant
	}
	return moduleVersion
}

func (application *Application) flushLogger() error {
	if syncError := application.syncLoggerInstance(application.logger); syncError != nil {
		return syncError
	}
	return nil
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
