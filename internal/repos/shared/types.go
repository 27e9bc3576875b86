package shared

import (
	"context"
	"io/fs"
	"time"

	"github.com/temirov/sitrep/internal/execshell"
	"github.com/temirov/sitrep/internal/gitrepo"
)

const (
	// OriginRemoteNameConstant identifies the remote assumed when a tracking reference names no other.
	OriginRemoteNameConstant = "origin"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes the filesystem operations the roots registry performs.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Abs(path string) (string, error)
	MkdirAll(path string, permissions fs.FileMode) error
}

// GitExecutor exposes the subset of shell execution used by repository services.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// GitRepositoryManager exposes the read-only repository queries used by status probing.
type GitRepositoryManager interface {
	CheckIsRepository(executionContext context.Context, repositoryPath string) (bool, error)
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	GetUpstreamBranch(executionContext context.Context, repositoryPath string) (string, error)
	CountWorkingTreeChanges(executionContext context.Context, repositoryPath string) (gitrepo.WorkingTreeStatus, error)
	CheckRemoteReachability(executionContext context.Context, repositoryPath string, remoteName string) error
	CountAheadBehind(executionContext context.Context, repositoryPath string) (gitrepo.AheadBehind, error)
	GetLastCommit(executionContext context.Context, repositoryPath string) (gitrepo.CommitDetails, error)
	GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
}

// RepositoryDiscoverer locates Git repositories beneath monitored roots.
type RepositoryDiscoverer interface {
	DiscoverRepositories(repositoryRoots []string) ([]string, error)
	DiscoverRepositoriesWithin(repositoryRoot string) ([]string, error)
}
