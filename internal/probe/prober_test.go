package probe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/sitrep/internal/execshell"
	"github.com/temirov/sitrep/internal/gitrepo"
	"github.com/temirov/sitrep/internal/probe"
)

const (
	testRepositoryPathConstant     = "/workspaces/widget"
	testMainBranchNameConstant     = "main"
	testUpstreamReferenceConstant  = "origin/main"
	testOriginRemoteNameConstant   = "origin"
	testCommitHashConstant         = "f1d2d2f924e986ac86fdf7b36c94bcdf32beec15"
	testCommitSubjectConstant      = "Add widget assembly"
	testRemoteURLConstant          = "git@github.com:acme/widget.git"
	notARepositoryStderrConstant   = "fatal: not a git repository (or any parent up to mount point /)"
	permissionDeniedStderrConstant = "error: open(\".env\"): Permission denied"
	corruptObjectStderrConstant    = "fatal: bad object HEAD"
	commandExitFailureCodeConstant = 128
)

type stubRepositoryManager struct {
	isRepository          bool
	isRepositoryError     error
	branchName            string
	branchError           error
	upstreamBranch        string
	upstreamError         error
	workingTreeStatus     gitrepo.WorkingTreeStatus
	workingTreeError      error
	reachabilityError     error
	reachabilityBehavior  func(executionContext context.Context) error
	reachabilityCallCount int
	aheadBehind           gitrepo.AheadBehind
	aheadBehindError      error
	aheadBehindCallCount  int
	lastCommit            gitrepo.CommitDetails
	lastCommitError       error
	remoteURL             string
	remoteURLError        error
	recordedRemoteNames   []string
}

func (manager *stubRepositoryManager) CheckIsRepository(_ context.Context, _ string) (bool, error) {
	return manager.isRepository, manager.isRepositoryError
}

func (manager *stubRepositoryManager) GetCurrentBranch(_ context.Context, _ string) (string, error) {
	return manager.branchName, manager.branchError
}

func (manager *stubRepositoryManager) GetUpstreamBranch(_ context.Context, _ string) (string, error) {
	return manager.upstreamBranch, manager.upstreamError
}

func (manager *stubRepositoryManager) CountWorkingTreeChanges(_ context.Context, _ string) (gitrepo.WorkingTreeStatus, error) {
	return manager.workingTreeStatus, manager.workingTreeError
}

func (manager *stubRepositoryManager) CheckRemoteReachability(executionContext context.Context, _ string, remoteName string) error {
	manager.reachabilityCallCount++
	manager.recordedRemoteNames = append(manager.recordedRemoteNames, remoteName)
	if manager.reachabilityBehavior != nil {
		return manager.reachabilityBehavior(executionContext)
	}
	return manager.reachabilityError
}

func (manager *stubRepositoryManager) CountAheadBehind(_ context.Context, _ string) (gitrepo.AheadBehind, error) {
	manager.aheadBehindCallCount++
	return manager.aheadBehind, manager.aheadBehindError
}

func (manager *stubRepositoryManager) GetLastCommit(_ context.Context, _ string) (gitrepo.CommitDetails, error) {
	return manager.lastCommit, manager.lastCommitError
}

func (manager *stubRepositoryManager) GetRemoteURL(_ context.Context, _ string, _ string) (string, error) {
	return manager.remoteURL, manager.remoteURLError
}

func stubCommandFailure(standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit},
		Result:  execshell.ExecutionResult{StandardError: standardError, ExitCode: commandExitFailureCodeConstant},
	}
}

func TestNewGitProbeRequiresRepositoryManager(testInstance *testing.T) {
	probeInstance, creationError := probe.NewGitProbe(nil, zap.NewNop(), probe.ProbeOptions{})
	require.ErrorIs(testInstance, creationError, probe.ErrRepositoryManagerNotConfigured)
	require.Nil(testInstance, probeInstance)
}

func TestProbeCollectsFactsForTrackedRepository(testInstance *testing.T) {
	commitTimestamp := time.Unix(1721500000, 0).UTC()
	repositoryManager := &stubRepositoryManager{
		isRepository:      true,
		branchName:        testMainBranchNameConstant,
		upstreamBranch:    testUpstreamReferenceConstant,
		workingTreeStatus: gitrepo.WorkingTreeStatus{StagedCount: 1, UncommittedCount: 2},
		aheadBehind:       gitrepo.AheadBehind{AheadCount: 3, BehindCount: 2},
		lastCommit:        gitrepo.CommitDetails{Hash: testCommitHashConstant, CommittedAt: commitTimestamp, Subject: testCommitSubjectConstant},
		remoteURL:         testRemoteURLConstant,
	}

	probeInstance, creationError := probe.NewGitProbe(repositoryManager, zap.NewNop(), probe.ProbeOptions{CollectCommitDetails: true})
	require.NoError(testInstance, creationError)

	repositoryFacts, probeError := probeInstance.Probe(context.Background(), testRepositoryPathConstant)
	require.NoError(testInstance, probeError)

	expectedFacts := probe.RepositoryFacts{
		BranchName:       testMainBranchNameConstant,
		HasUpstream:      true,
		StagedCount:      1,
		UncommittedCount: 2,
		AheadCount:       3,
		BehindCount:      2,
		RemoteOutcome:    probe.RemoteOutcomeReachable,
		RemoteName:       testOriginRemoteNameConstant,
		RemoteURL:        testRemoteURLConstant,
		LastCommit:       gitrepo.CommitDetails{Hash: testCommitHashConstant, CommittedAt: commitTimestamp, Subject: testCommitSubjectConstant},
	}
	require.Equal(testInstance, expectedFacts, repositoryFacts)
	require.Equal(testInstance, []string{testOriginRemoteNameConstant}, repositoryManager.recordedRemoteNames)
}

func TestProbeMarksDetachedHeadWithoutUpstream(testInstance *testing.T) {
	repositoryManager := &stubRepositoryManager{
		isRepository:  true,
		branchName:    "HEAD",
		upstreamError: gitrepo.ErrNoUpstreamConfigured,
	}

	probeInstance, creationError := probe.NewGitProbe(repositoryManager, zap.NewNop(), probe.ProbeOptions{})
	require.NoError(testInstance, creationError)

	repositoryFacts, probeError := probeInstance.Probe(context.Background(), testRepositoryPathConstant)
	require.NoError(testInstance, probeError)
	require.Equal(testInstance, probe.DetachedBranchNameConstant, repositoryFacts.BranchName)
	require.False(testInstance, repositoryFacts.HasUpstream)
	require.Equal(testInstance, probe.RemoteOutcomeUnset, repositoryFacts.RemoteOutcome)
	require.Zero(testInstance, repositoryManager.reachabilityCallCount)
	require.Zero(testInstance, repositoryManager.aheadBehindCallCount)
}

func TestProbeSkipsRemoteCheckWhenOffline(testInstance *testing.T) {
	repositoryManager := &stubRepositoryManager{
		isRepository:   true,
		branchName:     testMainBranchNameConstant,
		upstreamBranch: testUpstreamReferenceConstant,
		aheadBehind:    gitrepo.AheadBehind{AheadCount: 1},
	}

	probeInstance, creationError := probe.NewGitProbe(repositoryManager, zap.NewNop(), probe.ProbeOptions{Offline: true})
	require.NoError(testInstance, creationError)

	repositoryFacts, probeError := probeInstance.Probe(context.Background(), testRepositoryPathConstant)
	require.NoError(testInstance, probeError)
	require.Equal(testInstance, probe.RemoteOutcomeUnset, repositoryFacts.RemoteOutcome)
	require.Equal(testInstance, 1, repositoryFacts.AheadCount)
	require.Zero(testInstance, repositoryManager.reachabilityCallCount)
	require.Equal(testInstance, 1, repositoryManager.aheadBehindCallCount)
}

func TestProbeClassifiesRemoteFailuresAndKeepsCounting(testInstance *testing.T) {
	repositoryManager := &stubRepositoryManager{
		isRepository:      true,
		branchName:        testMainBranchNameConstant,
		upstreamBranch:    testUpstreamReferenceConstant,
		reachabilityError: stubCommandFailure(promptsDisabledDiagnosticConstant),
		aheadBehind:       gitrepo.AheadBehind{AheadCount: 2, BehindCount: 1},
	}

	probeInstance, creationError := probe.NewGitProbe(repositoryManager, zap.NewNop(), probe.ProbeOptions{})
	require.NoError(testInstance, creationError)

	repositoryFacts, probeError := probeInstance.Probe(context.Background(), testRepositoryPathConstant)
	require.NoError(testInstance, probeError)
	require.Equal(testInstance, probe.RemoteOutcomeAuthRequired, repositoryFacts.RemoteOutcome)
	require.Equal(testInstance, 2, repositoryFacts.AheadCount)
	require.Equal(testInstance, 1, repositoryFacts.BehindCount)
	require.Equal(testInstance, 1, repositoryManager.aheadBehindCallCount)
}

func TestProbeTreatsRemoteTimeoutAsNetworkIssue(testInstance *testing.T) {
	executionContext, cancelExecution := context.WithCancel(context.Background())
	defer cancelExecution()

	repositoryManager := &stubRepositoryManager{
		isRepository:      true,
		branchName:        testMainBranchNameConstant,
		upstreamBranch:    testUpstreamReferenceConstant,
		workingTreeStatus: gitrepo.WorkingTreeStatus{UncommittedCount: 4},
	}
	repositoryManager.reachabilityBehavior = func(context.Context) error {
		cancelExecution()
		return context.DeadlineExceeded
	}

	probeInstance, creationError := probe.NewGitProbe(repositoryManager, zap.NewNop(), probe.ProbeOptions{})
	require.NoError(testInstance, creationError)

	repositoryFacts, probeError := probeInstance.Probe(executionContext, testRepositoryPathConstant)
	require.NoError(testInstance, probeError)
	require.Equal(testInstance, probe.RemoteOutcomeNetworkIssue, repositoryFacts.RemoteOutcome)
	require.Equal(testInstance, 4, repositoryFacts.UncommittedCount)
	require.Zero(testInstance, repositoryManager.aheadBehindCallCount)
}

func TestProbeReportsLocalFailureKinds(testInstance *testing.T) {
	testCases := []struct {
		name              string
		repositoryManager *stubRepositoryManager
		expectedKind      probe.ProbeErrorKind
	}{
		{
			name:              "path_outside_working_tree",
			repositoryManager: &stubRepositoryManager{isRepository: false},
			expectedKind:      probe.ProbeErrorNotARepository,
		},
		{
			name: "repository_query_failed",
			repositoryManager: &stubRepositoryManager{
				isRepositoryError: stubCommandFailure(notARepositoryStderrConstant),
			},
			expectedKind: probe.ProbeErrorNotARepository,
		},
		{
			name: "branch_query_permission_denied",
			repositoryManager: &stubRepositoryManager{
				isRepository: true,
				branchError:  stubCommandFailure(permissionDeniedStderrConstant),
			},
			expectedKind: probe.ProbeErrorPermissionDenied,
		},
		{
			name: "status_query_corrupt_object",
			repositoryManager: &stubRepositoryManager{
				isRepository:     true,
				branchName:       testMainBranchNameConstant,
				workingTreeError: stubCommandFailure(corruptObjectStderrConstant),
			},
			expectedKind: probe.ProbeErrorCorruptRepository,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			probeInstance, creationError := probe.NewGitProbe(testCase.repositoryManager, zap.NewNop(), probe.ProbeOptions{})
			require.NoError(subTest, creationError)

			_, probeError := probeInstance.Probe(context.Background(), testRepositoryPathConstant)
			require.Error(subTest, probeError)

			var reportedError probe.ProbeError
			require.ErrorAs(subTest, probeError, &reportedError)
			require.Equal(subTest, testCase.expectedKind, reportedError.Kind)
			require.Equal(subTest, testRepositoryPathConstant, reportedError.RepositoryPath)
		})
	}
}

func TestProbeFailsWhenDeadlineExpiresLocally(testInstance *testing.T) {
	executionContext, cancelExecution := context.WithCancel(context.Background())
	cancelExecution()

	repositoryManager := &stubRepositoryManager{isRepositoryError: context.Canceled}

	probeInstance, creationError := probe.NewGitProbe(repositoryManager, zap.NewNop(), probe.ProbeOptions{})
	require.NoError(testInstance, creationError)

	_, probeError := probeInstance.Probe(executionContext, testRepositoryPathConstant)
	require.Error(testInstance, probeError)

	var reportedError probe.ProbeError
	require.ErrorAs(testInstance, probeError, &reportedError)
	require.Equal(testInstance, probe.ProbeErrorTimeout, reportedError.Kind)
	require.ErrorIs(testInstance, probeError, context.Canceled)
}

func TestProbeToleratesMissingCommitDetails(testInstance *testing.T) {
	repositoryManager := &stubRepositoryManager{
		isRepository:    true,
		branchName:      testMainBranchNameConstant,
		upstreamBranch:  testUpstreamReferenceConstant,
		lastCommitError: stubCommandFailure(corruptObjectStderrConstant),
		remoteURLError:  stubCommandFailure(notARepositoryStderrConstant),
	}

	probeInstance, creationError := probe.NewGitProbe(repositoryManager, zap.NewNop(), probe.ProbeOptions{CollectCommitDetails: true})
	require.NoError(testInstance, creationError)

	repositoryFacts, probeError := probeInstance.Probe(context.Background(), testRepositoryPathConstant)
	require.NoError(testInstance, probeError)
	require.Empty(testInstance, repositoryFacts.RemoteURL)
	require.Equal(testInstance, gitrepo.CommitDetails{}, repositoryFacts.LastCommit)
}
