package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/temirov/sitrep/internal/execshell"
)

const (
	gitRevParseSubcommandConstant       = "rev-parse"
	gitIsInsideWorkTreeFlagConstant     = "--is-inside-work-tree"
	gitAbbrevRefFlagConstant            = "--abbrev-ref"
	gitSymbolicFullNameFlagConstant     = "--symbolic-full-name"
	gitHeadReferenceConstant            = "HEAD"
	gitUpstreamReferenceConstant        = "@{u}"
	gitStatusSubcommandConstant         = "status"
	gitPorcelainFlagConstant            = "--porcelain"
	gitRemoteSubcommandConstant         = "remote"
	gitGetURLSubcommandConstant         = "get-url"
	gitLSRemoteSubcommandConstant       = "ls-remote"
	gitHeadsFlagConstant                = "--heads"
	gitRevListSubcommandConstant        = "rev-list"
	gitLeftRightFlagConstant            = "--left-right"
	gitCountFlagConstant                = "--count"
	gitAheadBehindRangeConstant         = "@{u}...HEAD"
	gitLogSubcommandConstant            = "log"
	gitSingleCommitFlagConstant         = "-1"
	gitCommitFormatFlagConstant         = "--format=%H%x09%ct%x09%s"
	gitTerminalPromptVariableConstant   = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant   = "0"
	gitTrueOutputConstant               = "true"
	statusEntrySeparatorConstant        = "\n"
	commitFieldSeparatorConstant        = "\t"
	aheadBehindFieldCountConstant       = 2
	commitFieldCountConstant            = 3
	requiredValueMessageConstant        = "value required"
	unparsableCountsTemplateConstant    = "unparsable ahead/behind counts %q"
	unparsableCommitTemplateConstant    = "unparsable commit description %q"
	noUpstreamDiagnosticConstant        = "no upstream"
	detachedUpstreamDiagnosticConstant  = "does not point to a branch"
	unknownRevisionDiagnosticConstant   = "unknown revision"
	statusIgnoredMarkerConstant         = '!'
	statusUntrackedMarkerConstant       = '?'
	statusUnmodifiedMarkerConstant      = ' '
	minimumStatusEntryLengthConstant    = 2
)

// ErrExecutorNotConfigured indicates the repository manager was constructed without a git executor.
var ErrExecutorNotConfigured = errors.New("git executor not configured")

// ErrNoUpstreamConfigured indicates the current branch has no upstream tracking relationship.
var ErrNoUpstreamConfigured = errors.New("no upstream configured")

// GitExecutor describes the git execution surface required by the repository manager.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// WorkingTreeStatus captures staged and unstaged change counts for a working tree.
type WorkingTreeStatus struct {
	StagedCount      int
	UncommittedCount int
}

// AheadBehind captures the commit counts between a branch and its upstream.
type AheadBehind struct {
	AheadCount  int
	BehindCount int
}

// CommitDetails describes the most recent commit of a repository.
type CommitDetails struct {
	Hash        string
	Subject     string
	CommittedAt time.Time
}

// RepositoryManager performs read-only git queries against local repositories.
type RepositoryManager struct {
	gitExecutor GitExecutor
}

// NewRepositoryManager constructs a RepositoryManager backed by the provided executor.
func NewRepositoryManager(gitExecutor GitExecutor) (*RepositoryManager, error) {
	if gitExecutor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &RepositoryManager{gitExecutor: gitExecutor}, nil
}

// CheckIsRepository reports whether the path lies inside a git working tree.
func (manager *RepositoryManager) CheckIsRepository(executionContext context.Context, repositoryPath string) (bool, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitIsInsideWorkTreeFlagConstant},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return false, executionError
	}

	return strings.TrimSpace(executionResult.StandardOutput) == gitTrueOutputConstant, nil
}

// GetCurrentBranch returns the current branch name; a detached HEAD yields the literal HEAD.
// Repositories without any commits echo the abbreviated name before git reports the
// unresolvable revision, so that output is accepted in place of a failure.
func (manager *RepositoryManager) GetCurrentBranch(executionContext context.Context, repositoryPath string) (string, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitHeadReferenceConstant},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			echoedName := strings.TrimSpace(commandFailure.Result.StandardOutput)
			diagnosticText := strings.ToLower(commandFailure.Result.StandardError)
			if len(echoedName) > 0 && strings.Contains(diagnosticText, unknownRevisionDiagnosticConstant) {
				return echoedName, nil
			}
		}
		return "", executionError
	}

	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// GetUpstreamBranch resolves the upstream tracking branch for the current branch.
// ErrNoUpstreamConfigured is returned when no tracking relationship exists.
func (manager *RepositoryManager) GetUpstreamBranch(executionContext context.Context, repositoryPath string) (string, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitRevParseSubcommandConstant, gitAbbrevRefFlagConstant, gitSymbolicFullNameFlagConstant, gitUpstreamReferenceConstant},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		if indicatesMissingUpstream(executionError) {
			return "", ErrNoUpstreamConfigured
		}
		return "", executionError
	}

	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// CountWorkingTreeChanges parses porcelain status output into staged and uncommitted counters.
func (manager *RepositoryManager) CountWorkingTreeChanges(executionContext context.Context, repositoryPath string) (WorkingTreeStatus, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitStatusSubcommandConstant, gitPorcelainFlagConstant},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return WorkingTreeStatus{}, executionError
	}

	return parsePorcelainStatus(executionResult.StandardOutput), nil
}

// CheckRemoteReachability contacts the named remote without fetching; a nil error means reachable.
// Credential prompts are disabled so authentication failures surface immediately.
func (manager *RepositoryManager) CheckRemoteReachability(executionContext context.Context, repositoryPath string, remoteName string) error {
	commandDetails := execshell.CommandDetails{
		Arguments:            []string{gitLSRemoteSubcommandConstant, gitHeadsFlagConstant, remoteName},
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: map[string]string{gitTerminalPromptVariableConstant: gitTerminalPromptDisabledConstant},
	}

	_, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	return executionError
}

// CountAheadBehind counts commits between the current branch and its local tracking ref.
func (manager *RepositoryManager) CountAheadBehind(executionContext context.Context, repositoryPath string) (AheadBehind, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitRevListSubcommandConstant, gitLeftRightFlagConstant, gitCountFlagConstant, gitAheadBehindRangeConstant},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return AheadBehind{}, executionError
	}

	return parseAheadBehind(executionResult.StandardOutput)
}

// GetLastCommit reads the most recent commit hash, timestamp, and subject.
func (manager *RepositoryManager) GetLastCommit(executionContext context.Context, repositoryPath string) (CommitDetails, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitLogSubcommandConstant, gitSingleCommitFlagConstant, gitCommitFormatFlagConstant},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return CommitDetails{}, executionError
	}

	return parseCommitDetails(executionResult.StandardOutput)
}

// GetRemoteURL reads the configured URL of the named remote.
func (manager *RepositoryManager) GetRemoteURL(executionContext context.Context, repositoryPath string, remoteName string) (string, error) {
	commandDetails := execshell.CommandDetails{
		Arguments:        []string{gitRemoteSubcommandConstant, gitGetURLSubcommandConstant, remoteName},
		WorkingDirectory: repositoryPath,
	}

	executionResult, executionError := manager.gitExecutor.ExecuteGit(executionContext, commandDetails)
	if executionError != nil {
		return "", executionError
	}

	return strings.TrimSpace(executionResult.StandardOutput), nil
}

func indicatesMissingUpstream(executionError error) bool {
	var commandFailure execshell.CommandFailedError
	if !errors.As(executionError, &commandFailure) {
		return false
	}
	diagnosticText := strings.ToLower(commandFailure.Result.StandardError)
	return strings.Contains(diagnosticText, noUpstreamDiagnosticConstant) || strings.Contains(diagnosticText, detachedUpstreamDiagnosticConstant)
}

func parsePorcelainStatus(statusOutput string) WorkingTreeStatus {
	workingTreeStatus := WorkingTreeStatus{}
	for _, statusEntry := range strings.Split(statusOutput, statusEntrySeparatorConstant) {
		if len(statusEntry) < minimumStatusEntryLengthConstant {
			continue
		}
		stagedColumn := statusEntry[0]
		unstagedColumn := statusEntry[1]
		if stagedColumn != statusUnmodifiedMarkerConstant && stagedColumn != statusUntrackedMarkerConstant && stagedColumn != statusIgnoredMarkerConstant {
			workingTreeStatus.StagedCount++
		}
		if unstagedColumn != statusUnmodifiedMarkerConstant && unstagedColumn != statusIgnoredMarkerConstant {
			workingTreeStatus.UncommittedCount++
		}
	}
	return workingTreeStatus
}

func parseAheadBehind(countOutput string) (AheadBehind, error) {
	trimmedOutput := strings.TrimSpace(countOutput)
	fields := strings.Fields(trimmedOutput)
	if len(fields) != aheadBehindFieldCountConstant {
		return AheadBehind{}, fmt.Errorf(unparsableCountsTemplateConstant, trimmedOutput)
	}

	behindCount, behindError := strconv.Atoi(fields[0])
	if behindError != nil {
		return AheadBehind{}, fmt.Errorf(unparsableCountsTemplateConstant, trimmedOutput)
	}
	aheadCount, aheadError := strconv.Atoi(fields[1])
	if aheadError != nil {
		return AheadBehind{}, fmt.Errorf(unparsableCountsTemplateConstant, trimmedOutput)
	}

	return AheadBehind{AheadCount: aheadCount, BehindCount: behindCount}, nil
}

func parseCommitDetails(logOutput string) (CommitDetails, error) {
	trimmedOutput := strings.TrimSpace(logOutput)
	if len(trimmedOutput) == 0 {
		return CommitDetails{}, nil
	}

	fields := strings.SplitN(trimmedOutput, commitFieldSeparatorConstant, commitFieldCountConstant)
	if len(fields) < commitFieldCountConstant {
		return CommitDetails{}, fmt.Errorf(unparsableCommitTemplateConstant, trimmedOutput)
	}

	epochSeconds, epochError := strconv.ParseInt(fields[1], 10, 64)
	if epochError != nil {
		return CommitDetails{}, fmt.Errorf(unparsableCommitTemplateConstant, trimmedOutput)
	}

	return CommitDetails{
		Hash:        fields[0],
		Subject:     fields[2],
		CommittedAt: time.Unix(epochSeconds, 0).UTC(),
	}, nil
}
