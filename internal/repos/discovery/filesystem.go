package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

const (
	gitMetadataNameConstant            = ".git"
	directoryFieldNameConstant         = "directory"
	unreadableDirectoryMessageConstant = "skipping unreadable directory"
	rootUnavailableTemplateConstant    = "repository root %s unavailable: %w"
)

// FilesystemRepositoryDiscoverer locates git repositories beneath monitored roots.
type FilesystemRepositoryDiscoverer struct {
	logger      *zap.Logger
	ignoreNames map[string]struct{}
}

// NewFilesystemRepositoryDiscoverer constructs a repository discoverer backed by
// filepath.WalkDir. Directories whose exact name appears in ignoreNames are
// pruned before descent.
func NewFilesystemRepositoryDiscoverer(logger *zap.Logger, ignoreNames []string) *FilesystemRepositoryDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ignoreSet := make(map[string]struct{}, len(ignoreNames))
	for _, ignoreName := range ignoreNames {
		ignoreSet[ignoreName] = struct{}{}
	}
	return &FilesystemRepositoryDiscoverer{logger: logger, ignoreNames: ignoreSet}
}

// DiscoverRepositories walks every root and returns the union of discovered
// repositories, deduplicated across overlapping roots and sorted
// lexicographically.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(repositoryRoots []string) ([]string, error) {
	seenRepositories := make(map[string]struct{})
	var repositories []string
	for _, repositoryRoot := range repositoryRoots {
		discovered, discoveryError := discoverer.DiscoverRepositoriesWithin(repositoryRoot)
		if discoveryError != nil {
			return nil, discoveryError
		}
		for _, repositoryPath := range discovered {
			if _, alreadySeen := seenRepositories[repositoryPath]; alreadySeen {
				continue
			}
			seenRepositories[repositoryPath] = struct{}{}
			repositories = append(repositories, repositoryPath)
		}
	}
	sort.Strings(repositories)
	return repositories, nil
}

// DiscoverRepositoriesWithin walks a single root and returns the repositories it
// contains sorted lexicographically. A repository is a directory directly
// holding a .git entry in directory or file form. Discovery does not descend
// into discovered repositories and never follows symbolic links. Unreadable
// subdirectories are logged and skipped; an unavailable root is an error.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositoriesWithin(repositoryRoot string) ([]string, error) {
	if _, statError := os.Stat(repositoryRoot); statError != nil {
		return nil, fmt.Errorf(rootUnavailableTemplateConstant, repositoryRoot, statError)
	}

	var repositories []string
	walkError := filepath.WalkDir(repositoryRoot, func(currentPath string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			if directoryEntry == nil {
				return entryError
			}
			discoverer.logger.Debug(unreadableDirectoryMessageConstant, zap.String(directoryFieldNameConstant, currentPath), zap.Error(entryError))
			if directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if _, ignored := discoverer.ignoreNames[directoryEntry.Name()]; ignored && currentPath != repositoryRoot {
			return fs.SkipDir
		}
		if containsGitMetadata(currentPath) {
			repositories = append(repositories, currentPath)
			return fs.SkipDir
		}
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(rootUnavailableTemplateConstant, repositoryRoot, walkError)
	}

	sort.Strings(repositories)
	return repositories, nil
}

// containsGitMetadata reports whether the directory directly holds a .git
// entry. Symbolic links named .git are not treated as repository metadata.
func containsGitMetadata(directoryPath string) bool {
	metadataInfo, statError := os.Lstat(filepath.Join(directoryPath, gitMetadataNameConstant))
	if statError != nil {
		return false
	}
	return metadataInfo.Mode()&os.ModeSymlink == 0
}
