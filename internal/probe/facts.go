package probe

import (
	"github.com/temirov/sitrep/internal/gitrepo"
)

// RemoteOutcome records the result of a remote reachability check.
type RemoteOutcome string

// Remote reachability outcomes. The empty value means no check was attempted.
const (
	RemoteOutcomeUnset        RemoteOutcome = ""
	RemoteOutcomeReachable    RemoteOutcome = "reachable"
	RemoteOutcomeAuthRequired RemoteOutcome = "auth_required"
	RemoteOutcomeNetworkIssue RemoteOutcome = "network_issue"
	RemoteOutcomeNotFound     RemoteOutcome = "remote_not_found"
	RemoteOutcomeUnknown      RemoteOutcome = "unknown"
)

// DetachedBranchNameConstant is the branch sentinel reported for a detached HEAD.
const DetachedBranchNameConstant = "DETACHED"

// RepositoryFacts captures everything one probe learns about a repository.
// Instances are assembled once per scan and never mutated afterwards.
type RepositoryFacts struct {
	BranchName       string
	HasUpstream      bool
	StagedCount      int
	UncommittedCount int
	AheadCount       int
	BehindCount      int
	RemoteOutcome    RemoteOutcome
	RemoteName       string
	RemoteURL        string
	LastCommit       gitrepo.CommitDetails
}
