package probe

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/sitrep/internal/gitrepo"
	"github.com/temirov/sitrep/internal/repos/shared"
)

const (
	gitHeadReferenceConstant         = "HEAD"
	remoteNameSeparatorConstant      = "/"
	repositoryLogFieldNameConstant   = "repository"
	lastCommitUnavailableLogConstant = "last commit unavailable"
	remoteURLUnavailableLogConstant  = "remote url unavailable"
	workingTreeMismatchLogConstant   = "path is not inside a git working tree"
)

// ErrRepositoryManagerNotConfigured indicates the probe was constructed without a repository manager.
var ErrRepositoryManagerNotConfigured = errors.New("repository manager not configured")

// RepositoryManager describes the read-only git query surface the probe requires.
type RepositoryManager interface {
	CheckIsRepository(executionContext context.Context, repositoryPath string) (bool, error)
	GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error)
	GetUpstreamBranch(executionContext context.Context, repositoryPath string) (string, error)
	CountWorkingTreeChanges(executionContext context.Context, repositoryPath string) (gitrepo.WorkingTreeStatus, error)
	CheckRemoteReachability(executionContext context.Context, repositoryPath string, remoteName string) error
	CountAheadBehind(executionContext context.Context, repositoryPath string) (gitrepo.AheadBehind, error)
	GetLastCommit(executionContext context.Context, repositoryPath string) (gitrepo.CommitDetails, error)
	GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error)
}

// ProbeOptions tune what a probe collects beyond the classification facts.
type ProbeOptions struct {
	Offline              bool
	CollectCommitDetails bool
}

// GitProbe gathers RepositoryFacts for single repositories through read-only git queries.
type GitProbe struct {
	repositoryManager RepositoryManager
	logger            *zap.Logger
	options           ProbeOptions
}

// NewGitProbe constructs a GitProbe over the provided repository manager.
func NewGitProbe(repositoryManager RepositoryManager, logger *zap.Logger, options ProbeOptions) (*GitProbe, error) {
	if repositoryManager == nil {
		return nil, ErrRepositoryManagerNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitProbe{repositoryManager: repositoryManager, logger: logger, options: options}, nil
}

// Probe assembles RepositoryFacts for one repository. Every git query shares the
// deadline carried by the execution context; a deadline hit during the remote
// reachability check records a network outcome, while one during local queries
// fails the probe.
func (gitProbe *GitProbe) Probe(executionContext context.Context, repositoryPath string) (RepositoryFacts, error) {
	repositoryFacts := RepositoryFacts{}

	isRepository, repositoryError := gitProbe.repositoryManager.CheckIsRepository(executionContext, repositoryPath)
	if repositoryError != nil {
		return RepositoryFacts{}, gitProbe.localProbeFailure(executionContext, repositoryPath, repositoryError, ProbeErrorNotARepository)
	}
	if !isRepository {
		return RepositoryFacts{}, newProbeError(repositoryPath, ProbeErrorNotARepository, errors.New(workingTreeMismatchLogConstant))
	}

	branchName, branchError := gitProbe.repositoryManager.GetCurrentBranch(executionContext, repositoryPath)
	if branchError != nil {
		return RepositoryFacts{}, gitProbe.localProbeFailure(executionContext, repositoryPath, branchError, ProbeErrorCorruptRepository)
	}
	repositoryFacts.BranchName = sanitizeBranchName(branchName)

	workingTreeStatus, statusError := gitProbe.repositoryManager.CountWorkingTreeChanges(executionContext, repositoryPath)
	if statusError != nil {
		return RepositoryFacts{}, gitProbe.localProbeFailure(executionContext, repositoryPath, statusError, ProbeErrorCorruptRepository)
	}
	repositoryFacts.StagedCount = workingTreeStatus.StagedCount
	repositoryFacts.UncommittedCount = workingTreeStatus.UncommittedCount

	upstreamBranch, upstreamError := gitProbe.repositoryManager.GetUpstreamBranch(executionContext, repositoryPath)
	switch {
	case upstreamError == nil:
		repositoryFacts.HasUpstream = true
		repositoryFacts.RemoteName = remoteNameFromUpstream(upstreamBranch)
	case errors.Is(upstreamError, gitrepo.ErrNoUpstreamConfigured):
		repositoryFacts.HasUpstream = false
	default:
		return RepositoryFacts{}, gitProbe.localProbeFailure(executionContext, repositoryPath, upstreamError, ProbeErrorCorruptRepository)
	}

	if repositoryFacts.HasUpstream && !gitProbe.options.Offline {
		reachabilityError := gitProbe.repositoryManager.CheckRemoteReachability(executionContext, repositoryPath, repositoryFacts.RemoteName)
		switch {
		case reachabilityError == nil:
			repositoryFacts.RemoteOutcome = RemoteOutcomeReachable
		case executionContext.Err() != nil:
			// The remote check consumed the probe budget; remaining queries
			// cannot run, and the facts collected so far already decide the
			// classification.
			repositoryFacts.RemoteOutcome = RemoteOutcomeNetworkIssue
			return repositoryFacts, nil
		default:
			repositoryFacts.RemoteOutcome = ClassifyRemoteFailure(diagnosticTextFromError(reachabilityError))
		}
	}

	if repositoryFacts.HasUpstream {
		aheadBehind, countError := gitProbe.repositoryManager.CountAheadBehind(executionContext, repositoryPath)
		if countError != nil {
			return RepositoryFacts{}, gitProbe.localProbeFailure(executionContext, repositoryPath, countError, ProbeErrorCorruptRepository)
		}
		repositoryFacts.AheadCount = aheadBehind.AheadCount
		repositoryFacts.BehindCount = aheadBehind.BehindCount
	}

	if gitProbe.options.CollectCommitDetails {
		gitProbe.collectCommitDetails(executionContext, repositoryPath, &repositoryFacts)
	}

	return repositoryFacts, nil
}

func (gitProbe *GitProbe) collectCommitDetails(executionContext context.Context, repositoryPath string, repositoryFacts *RepositoryFacts) {
	lastCommit, commitError := gitProbe.repositoryManager.GetLastCommit(executionContext, repositoryPath)
	if commitError != nil {
		gitProbe.logger.Debug(lastCommitUnavailableLogConstant, zap.String(repositoryLogFieldNameConstant, repositoryPath), zap.Error(commitError))
	} else {
		repositoryFacts.LastCommit = lastCommit
	}

	if !repositoryFacts.HasUpstream {
		return
	}

	remoteURL, remoteURLError := gitProbe.repositoryManager.GetRemoteURL(executionContext, repositoryPath, repositoryFacts.RemoteName)
	if remoteURLError != nil {
		gitProbe.logger.Debug(remoteURLUnavailableLogConstant, zap.String(repositoryLogFieldNameConstant, repositoryPath), zap.Error(remoteURLError))
		return
	}
	repositoryFacts.RemoteURL = remoteURL
}

func (gitProbe *GitProbe) localProbeFailure(executionContext context.Context, repositoryPath string, queryError error, fallbackKind ProbeErrorKind) error {
	if executionContext.Err() != nil {
		return newProbeError(repositoryPath, ProbeErrorTimeout, executionContext.Err())
	}
	return newProbeError(repositoryPath, classifyLocalFailureKind(queryError, fallbackKind), queryError)
}

func sanitizeBranchName(branchName string) string {
	trimmedName := strings.TrimSpace(branchName)
	if trimmedName == gitHeadReferenceConstant {
		return DetachedBranchNameConstant
	}
	return trimmedName
}

func remoteNameFromUpstream(upstreamBranch string) string {
	trimmedUpstream := strings.TrimSpace(upstreamBranch)
	separatorIndex := strings.Index(trimmedUpstream, remoteNameSeparatorConstant)
	if separatorIndex <= 0 {
		return shared.OriginRemoteNameConstant
	}
	return trimmedUpstream[:separatorIndex]
}
