package status

import (
	"github.com/temirov/sitrep/internal/probe"
)

// Classify maps repository facts onto a single synchronization state.
// Evaluation follows a fixed precedence: structural conditions (detached HEAD,
// missing upstream, limited remote access) pre-empt branch divergence, and
// divergence pre-empts local dirtiness.
func Classify(repositoryFacts probe.RepositoryFacts) SyncState {
	switch {
	case repositoryFacts.BranchName == probe.DetachedBranchNameConstant:
		return SyncStateDetachedHead
	case !repositoryFacts.HasUpstream:
		return SyncStateNoRemote
	case repositoryFacts.RemoteOutcome != probe.RemoteOutcomeUnset && repositoryFacts.RemoteOutcome != probe.RemoteOutcomeReachable:
		return SyncStateRemoteAccessLimited
	case repositoryFacts.AheadCount > 0 && repositoryFacts.BehindCount > 0:
		return SyncStateDiverged
	case repositoryFacts.BehindCount > 0:
		return SyncStatePullNeeded
	case repositoryFacts.AheadCount > 0:
		return SyncStatePushNeeded
	case repositoryFacts.StagedCount > 0:
		return SyncStateStagedChanges
	case repositoryFacts.UncommittedCount > 0:
		return SyncStateUncommittedChanges
	default:
		return SyncStateUpToDate
	}
}
