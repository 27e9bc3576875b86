package scan

import (
	"context"

	"github.com/temirov/sitrep/internal/execshell"
	"github.com/temirov/sitrep/internal/probe"
)

// RepositoryDiscoverer finds git repositories beneath one monitored root.
type RepositoryDiscoverer interface {
	DiscoverRepositoriesWithin(repositoryRoot string) ([]string, error)
}

// RepositoryProber collects the synchronization facts of a single repository.
type RepositoryProber interface {
	Probe(executionContext context.Context, repositoryPath string) (probe.RepositoryFacts, error)
}

// GitExecutor exposes the subset of shell execution used by the report command.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// ReportRenderer presents grouped scan results and the run summary.
type ReportRenderer interface {
	Render(rootReports []RootReport, summary Summary) error
}
