package scan_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/sitrep/internal/probe"
	"github.com/temirov/sitrep/internal/scan"
	"github.com/temirov/sitrep/internal/status"
)

const (
	alphaRootPathConstant             = "/workspaces/alpha"
	betaRootPathConstant              = "/workspaces/beta"
	missingRootPathConstant           = "/workspaces/missing"
	apiServerRepositoryPathConstant   = "/workspaces/alpha/api-server"
	webappRepositoryPathConstant      = "/workspaces/alpha/webapp"
	cliToolsRepositoryPathConstant    = "/workspaces/alpha/cli-tools"
	infraRepositoryPathConstant       = "/workspaces/beta/infra"
	mainBranchNameConstant            = "main"
	probeFailureMessageConstant       = "status query failed"
	rootUnavailableLogMessageConstant = "skipping unavailable root"
	discoveryFailureMessageConstant   = "no such file or directory"
)

type stubRepositoryDiscoverer struct {
	repositoriesByRoot map[string][]string
	errorsByRoot       map[string]error
	requestedRoots     []string
}

func (discoverer *stubRepositoryDiscoverer) DiscoverRepositoriesWithin(repositoryRoot string) ([]string, error) {
	discoverer.requestedRoots = append(discoverer.requestedRoots, repositoryRoot)
	if discoveryError, errorConfigured := discoverer.errorsByRoot[repositoryRoot]; errorConfigured {
		return nil, discoveryError
	}
	return discoverer.repositoriesByRoot[repositoryRoot], nil
}

type stubRepositoryProber struct {
	mutex            sync.Mutex
	factsByPath      map[string]probe.RepositoryFacts
	errorsByPath     map[string]error
	delaysByPath     map[string]time.Duration
	probedPaths      []string
	deadlinesSeen    []bool
	remainingBudgets []time.Duration
}

func (prober *stubRepositoryProber) Probe(executionContext context.Context, repositoryPath string) (probe.RepositoryFacts, error) {
	probeDeadline, deadlineConfigured := executionContext.Deadline()
	prober.mutex.Lock()
	prober.probedPaths = append(prober.probedPaths, repositoryPath)
	prober.deadlinesSeen = append(prober.deadlinesSeen, deadlineConfigured)
	if deadlineConfigured {
		prober.remainingBudgets = append(prober.remainingBudgets, time.Until(probeDeadline))
	}
	prober.mutex.Unlock()

	if probeDelay, delayConfigured := prober.delaysByPath[repositoryPath]; delayConfigured {
		select {
		case <-time.After(probeDelay):
		case <-executionContext.Done():
			return probe.RepositoryFacts{}, executionContext.Err()
		}
	}
	if probeError, errorConfigured := prober.errorsByPath[repositoryPath]; errorConfigured {
		return probe.RepositoryFacts{}, probeError
	}
	return prober.factsByPath[repositoryPath], nil
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	testCases := []struct {
		name          string
		discoverer    scan.RepositoryDiscoverer
		prober        scan.RepositoryProber
		expectedError error
	}{
		{name: "missing_discoverer", discoverer: nil, prober: &stubRepositoryProber{}, expectedError: scan.ErrDiscovererNotConfigured},
		{name: "missing_prober", discoverer: &stubRepositoryDiscoverer{}, prober: nil, expectedError: scan.ErrProberNotConfigured},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			service, creationError := scan.NewService(testCase.discoverer, testCase.prober, zap.NewNop(), nil)
			require.ErrorIs(subTest, creationError, testCase.expectedError)
			require.Nil(subTest, service)
		})
	}
}

func TestServiceRunGroupsResultsByRootInDiscoveryOrder(testInstance *testing.T) {
	discoverer := &stubRepositoryDiscoverer{
		repositoriesByRoot: map[string][]string{
			alphaRootPathConstant: {apiServerRepositoryPathConstant, webappRepositoryPathConstant, cliToolsRepositoryPathConstant},
			betaRootPathConstant:  {infraRepositoryPathConstant},
		},
	}
	prober := &stubRepositoryProber{
		factsByPath: map[string]probe.RepositoryFacts{
			apiServerRepositoryPathConstant: {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
			webappRepositoryPathConstant:    {BranchName: mainBranchNameConstant, HasUpstream: true, UncommittedCount: 3, RemoteOutcome: probe.RemoteOutcomeReachable},
			cliToolsRepositoryPathConstant:  {BranchName: mainBranchNameConstant, HasUpstream: true, AheadCount: 2, RemoteOutcome: probe.RemoteOutcomeReachable},
			infraRepositoryPathConstant:     {BranchName: mainBranchNameConstant},
		},
		delaysByPath: map[string]time.Duration{
			apiServerRepositoryPathConstant: 30 * time.Millisecond,
			webappRepositoryPathConstant:    10 * time.Millisecond,
		},
	}

	service, creationError := scan.NewService(discoverer, prober, zap.NewNop(), nil)
	require.NoError(testInstance, creationError)

	rootReports, runSummary, runError := service.Run(context.Background(), scan.ScanOptions{
		Roots:       []string{alphaRootPathConstant, betaRootPathConstant},
		Concurrency: 4,
	})
	require.NoError(testInstance, runError)

	require.Len(testInstance, rootReports, 2)
	require.Equal(testInstance, alphaRootPathConstant, rootReports[0].RootPath)
	require.Equal(testInstance, betaRootPathConstant, rootReports[1].RootPath)

	alphaPaths := make([]string, 0, len(rootReports[0].Results))
	alphaStates := make([]status.SyncState, 0, len(rootReports[0].Results))
	for _, repositoryResult := range rootReports[0].Results {
		alphaPaths = append(alphaPaths, repositoryResult.Repository.String())
		alphaStates = append(alphaStates, repositoryResult.State)
	}
	require.Equal(testInstance, []string{apiServerRepositoryPathConstant, webappRepositoryPathConstant, cliToolsRepositoryPathConstant}, alphaPaths)
	require.Equal(testInstance, []status.SyncState{status.SyncStateUpToDate, status.SyncStateUncommittedChanges, status.SyncStatePushNeeded}, alphaStates)

	require.Len(testInstance, rootReports[1].Results, 1)
	require.Equal(testInstance, status.SyncStateNoRemote, rootReports[1].Results[0].State)
	require.Equal(testInstance, betaRootPathConstant, rootReports[1].Results[0].RootPath)

	require.Equal(testInstance, 4, runSummary.TotalRepositories)
	require.Equal(testInstance, 0, runSummary.ProbeFailures)
	require.Equal(testInstance, 1, runSummary.StateCounts[status.SyncStateUpToDate])
	require.Equal(testInstance, 1, runSummary.StateCounts[status.SyncStateUncommittedChanges])
	require.Equal(testInstance, 1, runSummary.StateCounts[status.SyncStatePushNeeded])
	require.Equal(testInstance, 1, runSummary.StateCounts[status.SyncStateNoRemote])
}

func TestServiceRunIsolatesProbeFailures(testInstance *testing.T) {
	discoverer := &stubRepositoryDiscoverer{
		repositoriesByRoot: map[string][]string{
			alphaRootPathConstant: {apiServerRepositoryPathConstant, webappRepositoryPathConstant},
		},
	}
	prober := &stubRepositoryProber{
		factsByPath: map[string]probe.RepositoryFacts{
			apiServerRepositoryPathConstant: {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
		},
		errorsByPath: map[string]error{
			webappRepositoryPathConstant: errors.New(probeFailureMessageConstant),
		},
	}

	service, creationError := scan.NewService(discoverer, prober, zap.NewNop(), nil)
	require.NoError(testInstance, creationError)

	rootReports, runSummary, runError := service.Run(context.Background(), scan.ScanOptions{Roots: []string{alphaRootPathConstant}})
	require.NoError(testInstance, runError)

	require.Len(testInstance, rootReports, 1)
	require.Len(testInstance, rootReports[0].Results, 2)

	healthyResult := rootReports[0].Results[0]
	require.Equal(testInstance, status.SyncStateUpToDate, healthyResult.State)
	require.Empty(testInstance, healthyResult.ErrorNote)

	failedResult := rootReports[0].Results[1]
	require.Equal(testInstance, probeFailureMessageConstant, failedResult.ErrorNote)
	require.Empty(testInstance, failedResult.State)

	require.Equal(testInstance, 2, runSummary.TotalRepositories)
	require.Equal(testInstance, 1, runSummary.ProbeFailures)
	require.Equal(testInstance, 1, runSummary.StateCounts[status.SyncStateUpToDate])
}

func TestServiceRunWarnsAndContinuesWhenRootUnavailable(testInstance *testing.T) {
	observerCore, observedLogs := observer.New(zap.WarnLevel)
	errorOutput := &bytes.Buffer{}

	discoverer := &stubRepositoryDiscoverer{
		repositoriesByRoot: map[string][]string{
			alphaRootPathConstant: {apiServerRepositoryPathConstant},
		},
		errorsByRoot: map[string]error{
			missingRootPathConstant: errors.New(discoveryFailureMessageConstant),
		},
	}
	prober := &stubRepositoryProber{
		factsByPath: map[string]probe.RepositoryFacts{
			apiServerRepositoryPathConstant: {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
		},
	}

	service, creationError := scan.NewService(discoverer, prober, zap.New(observerCore), errorOutput)
	require.NoError(testInstance, creationError)

	rootReports, runSummary, runError := service.Run(context.Background(), scan.ScanOptions{
		Roots: []string{missingRootPathConstant, alphaRootPathConstant},
	})
	require.NoError(testInstance, runError)

	require.Len(testInstance, rootReports, 2)
	require.Equal(testInstance, missingRootPathConstant, rootReports[0].RootPath)
	require.Empty(testInstance, rootReports[0].Results)
	require.Len(testInstance, rootReports[1].Results, 1)

	require.Contains(testInstance, errorOutput.String(), missingRootPathConstant)
	require.Contains(testInstance, errorOutput.String(), discoveryFailureMessageConstant)

	warningEntries := observedLogs.FilterMessage(rootUnavailableLogMessageConstant).All()
	require.Len(testInstance, warningEntries, 1)

	require.Equal(testInstance, 1, runSummary.TotalRepositories)
}

func TestServiceRunFailsWithoutScannableRoots(testInstance *testing.T) {
	testCases := []struct {
		name            string
		roots           []string
		discoveryErrors map[string]error
	}{
		{name: "no_roots_requested", roots: nil},
		{
			name:            "all_roots_unavailable",
			roots:           []string{missingRootPathConstant},
			discoveryErrors: map[string]error{missingRootPathConstant: errors.New(discoveryFailureMessageConstant)},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			discoverer := &stubRepositoryDiscoverer{errorsByRoot: testCase.discoveryErrors}
			prober := &stubRepositoryProber{}

			service, creationError := scan.NewService(discoverer, prober, zap.NewNop(), nil)
			require.NoError(subTest, creationError)

			rootReports, _, runError := service.Run(context.Background(), scan.ScanOptions{Roots: testCase.roots})
			require.ErrorIs(subTest, runError, scan.ErrNoScannableRoots)
			require.Nil(subTest, rootReports)
		})
	}
}

func TestServiceRunAppliesProbeTimeoutPerRepository(testInstance *testing.T) {
	discoverer := &stubRepositoryDiscoverer{
		repositoriesByRoot: map[string][]string{
			alphaRootPathConstant: {apiServerRepositoryPathConstant, webappRepositoryPathConstant},
		},
	}
	prober := &stubRepositoryProber{
		factsByPath: map[string]probe.RepositoryFacts{
			apiServerRepositoryPathConstant: {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
		},
		delaysByPath: map[string]time.Duration{
			webappRepositoryPathConstant: 500 * time.Millisecond,
		},
	}

	service, creationError := scan.NewService(discoverer, prober, zap.NewNop(), nil)
	require.NoError(testInstance, creationError)

	rootReports, runSummary, runError := service.Run(context.Background(), scan.ScanOptions{
		Roots:       []string{alphaRootPathConstant},
		Timeout:     30 * time.Millisecond,
		Concurrency: 2,
	})
	require.NoError(testInstance, runError)

	for _, deadlineSeen := range prober.deadlinesSeen {
		require.True(testInstance, deadlineSeen)
	}

	timedOutResult := rootReports[0].Results[1]
	require.Contains(testInstance, timedOutResult.ErrorNote, context.DeadlineExceeded.Error())
	require.Equal(testInstance, status.SyncStateUpToDate, rootReports[0].Results[0].State)
	require.Equal(testInstance, 1, runSummary.ProbeFailures)
}

func TestServiceRunAppliesDefaultProbeTimeout(testInstance *testing.T) {
	discoverer := &stubRepositoryDiscoverer{
		repositoriesByRoot: map[string][]string{
			alphaRootPathConstant: {apiServerRepositoryPathConstant},
		},
	}
	prober := &stubRepositoryProber{
		factsByPath: map[string]probe.RepositoryFacts{
			apiServerRepositoryPathConstant: {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
		},
	}

	service, creationError := scan.NewService(discoverer, prober, zap.NewNop(), nil)
	require.NoError(testInstance, creationError)

	_, _, runError := service.Run(context.Background(), scan.ScanOptions{Roots: []string{alphaRootPathConstant}})
	require.NoError(testInstance, runError)

	require.Len(testInstance, prober.deadlinesSeen, 1)
	require.True(testInstance, prober.deadlinesSeen[0])
}

func TestServiceRunHonorsConcurrencyLimit(testInstance *testing.T) {
	discoverer := &stubRepositoryDiscoverer{
		repositoriesByRoot: map[string][]string{
			alphaRootPathConstant: {apiServerRepositoryPathConstant, webappRepositoryPathConstant, cliToolsRepositoryPathConstant},
		},
	}
	prober := &stubRepositoryProber{
		factsByPath: map[string]probe.RepositoryFacts{
			apiServerRepositoryPathConstant: {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
			webappRepositoryPathConstant:    {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
			cliToolsRepositoryPathConstant:  {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
		},
		delaysByPath: map[string]time.Duration{
			apiServerRepositoryPathConstant: 30 * time.Millisecond,
			webappRepositoryPathConstant:    10 * time.Millisecond,
		},
	}

	service, creationError := scan.NewService(discoverer, prober, zap.NewNop(), nil)
	require.NoError(testInstance, creationError)

	_, _, runError := service.Run(context.Background(), scan.ScanOptions{
		Roots:       []string{alphaRootPathConstant},
		Concurrency: 1,
	})
	require.NoError(testInstance, runError)

	require.Equal(testInstance, []string{apiServerRepositoryPathConstant, webappRepositoryPathConstant, cliToolsRepositoryPathConstant}, prober.probedPaths)
}

func TestServiceRunNormalizesRequestedRoots(testInstance *testing.T) {
	testCases := []struct {
		name          string
		roots         []string
		expectedRoots []string
	}{
		{
			name:          "nested_root_pruned",
			roots:         []string{alphaRootPathConstant, apiServerRepositoryPathConstant},
			expectedRoots: []string{alphaRootPathConstant},
		},
		{
			name:          "duplicate_root_deduplicated",
			roots:         []string{alphaRootPathConstant, alphaRootPathConstant},
			expectedRoots: []string{alphaRootPathConstant},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(subTest *testing.T) {
			discoverer := &stubRepositoryDiscoverer{
				repositoriesByRoot: map[string][]string{
					alphaRootPathConstant: {apiServerRepositoryPathConstant},
				},
			}
			prober := &stubRepositoryProber{
				factsByPath: map[string]probe.RepositoryFacts{
					apiServerRepositoryPathConstant: {BranchName: mainBranchNameConstant, HasUpstream: true, RemoteOutcome: probe.RemoteOutcomeReachable},
				},
			}

			service, creationError := scan.NewService(discoverer, prober, zap.NewNop(), nil)
			require.NoError(subTest, creationError)

			rootReports, _, runError := service.Run(context.Background(), scan.ScanOptions{Roots: testCase.roots})
			require.NoError(subTest, runError)

			require.Equal(subTest, testCase.expectedRoots, discoverer.requestedRoots)
			require.Len(subTest, rootReports, len(testCase.expectedRoots))
		})
	}
}
