package rootsconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/sitrep/internal/repos/dependencies"
	"github.com/temirov/sitrep/internal/repos/shared"
	pathutils "github.com/temirov/sitrep/internal/utils/path"
)

const (
	rootsConfigurationKeyConstant          = "roots"
	registryConfigurationTypeConstant      = "json"
	defaultRegistryDirectoryNameConstant   = ".config"
	defaultRegistryApplicationNameConstant = "sitrep"
	defaultRegistryFileNameConstant        = "roots.json"
	registryDirectoryPermissionsConstant   = 0o755
	registryPathMissingMessageConstant     = "registry file path is required"
	noRootsProvidedMessageConstant         = "at least one root path is required"
	homeResolutionErrorTemplateConstant    = "resolving home directory: %w"
	registryReadErrorTemplateConstant      = "reading roots registry %s: %w"
	registryParseErrorTemplateConstant     = "parsing roots registry %s: %w"
	registryWriteErrorTemplateConstant     = "writing roots registry %s: %w"
	rootPathResolutionTemplateConstant     = "resolving root path %s: %w"
	unregisteredRootsTemplateConstant      = "not registered: %s"
	unregisteredRootsSeparatorConstant     = ", "
)

// Sentinel errors surfaced by registry construction and mutation.
var (
	// ErrRegistryPathMissing indicates a registry constructed without a file path.
	ErrRegistryPathMissing = errors.New(registryPathMissingMessageConstant)
	// ErrNoRootsProvided indicates an add or remove request without any usable paths.
	ErrNoRootsProvided = errors.New(noRootsProvidedMessageConstant)
)

// UnregisteredRootsError reports removal requests naming roots absent from the registry.
type UnregisteredRootsError struct {
	RootPaths []string
}

// Error lists the paths that were not registered.
func (unregisteredError UnregisteredRootsError) Error() string {
	return fmt.Sprintf(unregisteredRootsTemplateConstant, strings.Join(unregisteredError.RootPaths, unregisteredRootsSeparatorConstant))
}

// MonitoredRoot is an absolute repository root registered for status scans.
type MonitoredRoot string

// String returns the monitored root's filesystem path.
func (monitoredRoot MonitoredRoot) String() string {
	return string(monitoredRoot)
}

// Registry persists the monitored repository roots as a JSON document.
//
// The persisted list is the external numbering contract: unique absolute
// paths sorted lexicographically, one entry per monitored root. Roots nested
// under an already registered root are redundant and pruned on add.
type Registry struct {
	filePath          string
	fileSystem        shared.FileSystem
	additionSanitizer *pathutils.RepositoryPathSanitizer
	removalSanitizer  *pathutils.RepositoryPathSanitizer
}

// NewRegistry constructs a registry persisted at the provided file path.
func NewRegistry(filePath string) (*Registry, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return nil, ErrRegistryPathMissing
	}

	return &Registry{
		filePath:          pathutils.NewHomeExpander().Expand(trimmedPath),
		fileSystem:        dependencies.ResolveFileSystem(nil),
		additionSanitizer: pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{PruneNestedPaths: true}),
		removalSanitizer:  pathutils.NewRepositoryPathSanitizer(),
	}, nil
}

// DefaultRegistryPath resolves the registry document location under the user's home directory.
func DefaultRegistryPath() (string, error) {
	homeDirectory, homeError := os.UserHomeDir()
	if homeError != nil {
		return "", fmt.Errorf(homeResolutionErrorTemplateConstant, homeError)
	}

	return filepath.Join(homeDirectory, defaultRegistryDirectoryNameConstant, defaultRegistryApplicationNameConstant, defaultRegistryFileNameConstant), nil
}

// ResolveRegistryPath selects the override location when provided and the default otherwise.
func ResolveRegistryPath(overridePath string) (string, error) {
	trimmedOverride := strings.TrimSpace(overridePath)
	if len(trimmedOverride) > 0 {
		return pathutils.NewHomeExpander().Expand(trimmedOverride), nil
	}

	return DefaultRegistryPath()
}

// FilePath returns the registry document location.
func (registry *Registry) FilePath() string {
	return registry.filePath
}

// Load reads the registered roots; a missing file yields an empty registry.
func (registry *Registry) Load() ([]string, error) {
	if _, statError := registry.fileSystem.Stat(registry.filePath); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(registryReadErrorTemplateConstant, registry.filePath, statError)
	}

	viperInstance := viper.New()
	viperInstance.SetConfigFile(registry.filePath)
	viperInstance.SetConfigType(registryConfigurationTypeConstant)
	if readError := viperInstance.ReadInConfig(); readError != nil {
		return nil, fmt.Errorf(registryParseErrorTemplateConstant, registry.filePath, readError)
	}

	registeredRoots := append([]string{}, viperInstance.GetStringSlice(rootsConfigurationKeyConstant)...)
	sort.Strings(registeredRoots)
	return registeredRoots, nil
}

// Save persists the provided roots, creating parent directories when necessary.
func (registry *Registry) Save(rootPaths []string) error {
	registryDirectory := filepath.Dir(registry.filePath)
	if directoryError := registry.fileSystem.MkdirAll(registryDirectory, registryDirectoryPermissionsConstant); directoryError != nil {
		return fmt.Errorf(registryWriteErrorTemplateConstant, registry.filePath, directoryError)
	}

	persistedRoots := append([]string{}, rootPaths...)
	sort.Strings(persistedRoots)

	viperInstance := viper.New()
	viperInstance.SetConfigType(registryConfigurationTypeConstant)
	viperInstance.Set(rootsConfigurationKeyConstant, persistedRoots)
	if writeError := viperInstance.WriteConfigAs(registry.filePath); writeError != nil {
		return fmt.Errorf(registryWriteErrorTemplateConstant, registry.filePath, writeError)
	}

	return nil
}

// EnsureFileExists writes an empty registry document when none is present.
func (registry *Registry) EnsureFileExists() error {
	if _, statError := registry.fileSystem.Stat(registry.filePath); statError == nil {
		return nil
	} else if !errors.Is(statError, fs.ErrNotExist) {
		return fmt.Errorf(registryReadErrorTemplateConstant, registry.filePath, statError)
	}

	return registry.Save(nil)
}

// Add registers the provided roots and returns the persisted list.
func (registry *Registry) Add(candidatePaths []string) ([]string, error) {
	normalizedCandidates, normalizationError := registry.normalizeForAddition(candidatePaths)
	if normalizationError != nil {
		return nil, normalizationError
	}
	if len(normalizedCandidates) == 0 {
		return nil, ErrNoRootsProvided
	}

	existingRoots, loadError := registry.Load()
	if loadError != nil {
		return nil, loadError
	}

	mergedRoots := registry.additionSanitizer.Sanitize(append(existingRoots, normalizedCandidates...))
	sort.Strings(mergedRoots)

	if saveError := registry.Save(mergedRoots); saveError != nil {
		return nil, saveError
	}
	return mergedRoots, nil
}

// Remove unregisters the provided roots and returns the remaining list.
//
// When any requested path is not registered the registry file is left
// untouched and an UnregisteredRootsError names every missing path.
func (registry *Registry) Remove(candidatePaths []string) ([]string, error) {
	normalizedCandidates, normalizationError := registry.normalizeForRemoval(candidatePaths)
	if normalizationError != nil {
		return nil, normalizationError
	}
	if len(normalizedCandidates) == 0 {
		return nil, ErrNoRootsProvided
	}

	existingRoots, loadError := registry.Load()
	if loadError != nil {
		return nil, loadError
	}

	registeredRoots := make(map[string]struct{}, len(existingRoots))
	for _, existingRoot := range existingRoots {
		registeredRoots[existingRoot] = struct{}{}
	}

	missingRoots := make([]string, 0, len(normalizedCandidates))
	removalRequests := make(map[string]struct{}, len(normalizedCandidates))
	for _, normalizedCandidate := range normalizedCandidates {
		removalRequests[normalizedCandidate] = struct{}{}
		if _, registered := registeredRoots[normalizedCandidate]; !registered {
			missingRoots = append(missingRoots, normalizedCandidate)
		}
	}
	if len(missingRoots) > 0 {
		return nil, UnregisteredRootsError{RootPaths: missingRoots}
	}

	remainingRoots := make([]string, 0, len(existingRoots))
	for _, existingRoot := range existingRoots {
		if _, removed := removalRequests[existingRoot]; removed {
			continue
		}
		remainingRoots = append(remainingRoots, existingRoot)
	}

	if saveError := registry.Save(remainingRoots); saveError != nil {
		return nil, saveError
	}
	return remainingRoots, nil
}

// List returns the registered roots in persisted order.
func (registry *Registry) List() ([]MonitoredRoot, error) {
	registeredRoots, loadError := registry.Load()
	if loadError != nil {
		return nil, loadError
	}

	monitoredRoots := make([]MonitoredRoot, 0, len(registeredRoots))
	for _, registeredRoot := range registeredRoots {
		monitoredRoots = append(monitoredRoots, MonitoredRoot(registeredRoot))
	}
	return monitoredRoots, nil
}

func (registry *Registry) normalizeForAddition(candidatePaths []string) ([]string, error) {
	return registry.absoluteRootPaths(registry.additionSanitizer.Sanitize(candidatePaths))
}

func (registry *Registry) normalizeForRemoval(candidatePaths []string) ([]string, error) {
	absolutePaths, resolutionError := registry.absoluteRootPaths(registry.removalSanitizer.Sanitize(candidatePaths))
	if resolutionError != nil {
		return nil, resolutionError
	}

	uniquePaths := make([]string, 0, len(absolutePaths))
	seenPaths := make(map[string]struct{}, len(absolutePaths))
	for _, absolutePath := range absolutePaths {
		if _, seen := seenPaths[absolutePath]; seen {
			continue
		}
		seenPaths[absolutePath] = struct{}{}
		uniquePaths = append(uniquePaths, absolutePath)
	}
	return uniquePaths, nil
}

func (registry *Registry) absoluteRootPaths(sanitizedPaths []string) ([]string, error) {
	absolutePaths := make([]string, 0, len(sanitizedPaths))
	for _, sanitizedPath := range sanitizedPaths {
		absolutePath, absoluteError := registry.fileSystem.Abs(sanitizedPath)
		if absoluteError != nil {
			return nil, fmt.Errorf(rootPathResolutionTemplateConstant, sanitizedPath, absoluteError)
		}
		absolutePaths = append(absolutePaths, filepath.Clean(absolutePath))
	}
	return absolutePaths, nil
}
