package scan

import (
	"time"

	"github.com/temirov/sitrep/internal/probe"
	"github.com/temirov/sitrep/internal/status"
)

// RepositoryRef identifies one discovered repository by path.
type RepositoryRef string

// String renders the referenced repository path.
func (reference RepositoryRef) String() string {
	return string(reference)
}

// ScanOptions captures the immutable parameters of one report run.
type ScanOptions struct {
	Roots         []string
	IgnoreNames   []string
	Timeout       time.Duration
	Concurrency   int
	Offline       bool
	Verbose       bool
	CommitDetails bool
}

// Result captures the outcome of probing a single repository.
type Result struct {
	Repository RepositoryRef
	RootPath   string
	State      status.SyncState
	Facts      probe.RepositoryFacts
	ErrorNote  string
}

// RootReport groups the results of one monitored root in discovery order.
type RootReport struct {
	RootPath string
	Results  []Result
}

// Summary aggregates the outcome counts of one report run.
type Summary struct {
	TotalRepositories int
	StateCounts       map[status.SyncState]int
	ProbeFailures     int
}
