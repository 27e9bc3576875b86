package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sitrep/internal/utils"
)

func TestInitializeConfigurationAppliesEmbeddedDefaults(t *testing.T) {
	application := NewApplication()
	rootCommand := application.rootCommand
	rootCommand.SetContext(context.Background())

	initializationError := application.initializeConfiguration(rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, string(utils.LogLevelInfo), application.configuration.Common.LogLevel)
	require.Equal(t, string(utils.LogFormatStructured), application.configuration.Common.LogFormat)
	require.Equal(t, 10, application.configuration.Report.TimeoutSeconds)
	require.Equal(t, 0, application.configuration.Report.Concurrency)
	require.True(t, application.configuration.Report.Emoji)
	require.False(t, application.configuration.Report.Offline)
	require.Contains(t, application.configuration.Report.IgnoreDirectories, "node_modules")
	require.Contains(t, application.configuration.Report.IgnoreDirectories, "vendor")
	require.Empty(t, application.configuration.RootsFile)
	require.False(t, application.humanReadableLoggingEnabled())
}

func TestInitializeConfigurationHonorsFlagOverrides(t *testing.T) {
	customRootsPath := filepath.Join(t.TempDir(), "team-roots.json")

	application := NewApplication()
	rootCommand := application.rootCommand

	require.NoError(t, rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, string(utils.LogLevelDebug)))
	require.NoError(t, rootCommand.PersistentFlags().Set(logFormatFlagNameConstant, string(utils.LogFormatConsole)))
	require.NoError(t, rootCommand.PersistentFlags().Set(rootsFileFlagNameConstant, customRootsPath))

	initializationError := application.initializeConfiguration(rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, string(utils.LogLevelDebug), application.configuration.Common.LogLevel)
	require.Equal(t, string(utils.LogFormatConsole), application.configuration.Common.LogFormat)
	require.Equal(t, customRootsPath, application.configuration.RootsFile)
	require.True(t, application.humanReadableLoggingEnabled())

	registry, registryError := application.resolveRootsRegistry()
	require.NoError(t, registryError)
	require.Equal(t, customRootsPath, registry.FilePath())
}

func TestInitializeConfigurationAttachesConfigurationFilePath(t *testing.T) {
	temporaryDirectory := t.TempDir()
	configurationPath := filepath.Join(temporaryDirectory, "config.yaml")
	configurationContent := "common:\n  log_level: warn\n  log_format: structured\n"
	require.NoError(t, os.WriteFile(configurationPath, []byte(configurationContent), 0o644))

	application := NewApplication()
	rootCommand := application.rootCommand

	require.NoError(t, rootCommand.PersistentFlags().Set(configFileFlagNameConstant, configurationPath))

	initializationError := application.initializeConfiguration(rootCommand)
	require.NoError(t, initializationError)

	require.Equal(t, string(utils.LogLevelWarn), application.configuration.Common.LogLevel)

	attachedPath, pathAvailable := application.commandContextAccessor.ConfigurationFilePath(rootCommand.Context())
	require.True(t, pathAvailable)
	require.Equal(t, configurationPath, attachedPath)
}

func TestRegisteredRootPathsReturnEmptyForMissingRegistry(t *testing.T) {
	application := NewApplication()
	rootCommand := application.rootCommand

	require.NoError(t, rootCommand.PersistentFlags().Set(rootsFileFlagNameConstant, filepath.Join(t.TempDir(), "roots.json")))
	require.NoError(t, application.initializeConfiguration(rootCommand))

	rootPaths, rootPathsError := application.registeredRootPaths()
	require.NoError(t, rootPathsError)
	require.Empty(t, rootPaths)
}

func TestExecuteSurfacesCommandBuildFailures(t *testing.T) {
	application := NewApplication()
	require.NoError(t, application.commandBuildError)

	buildFailure := errors.New("subcommand wiring failed")
	application.recordCommandBuildError(reportCommandLabelConstant, buildFailure)

	executionError := application.Execute()
	require.Error(t, executionError)
	require.ErrorIs(t, executionError, buildFailure)
	require.Contains(t, executionError.Error(), reportCommandLabelConstant)
}

func TestRecordCommandBuildErrorKeepsFirstFailure(t *testing.T) {
	application := NewApplication()

	firstFailure := errors.New("first wiring failure")
	secondFailure := errors.New("second wiring failure")
	application.recordCommandBuildError(reportCommandLabelConstant, firstFailure)
	application.recordCommandBuildError(rootsCommandLabelConstant, secondFailure)

	require.ErrorIs(t, application.commandBuildError, firstFailure)
	require.NotErrorIs(t, application.commandBuildError, secondFailure)
}

func TestResolveApplicationVersionNeverReturnsBlank(t *testing.T) {
	versionValue := resolveApplicationVersion(context.Background())
	require.NotEmpty(t, versionValue)
}
