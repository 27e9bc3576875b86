package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/sitrep/internal/status"
	pathutils "github.com/temirov/sitrep/internal/utils/path"
)

const (
	defaultProbeTimeoutConstant    = defaultTimeoutSecondsConstant * time.Second
	rootFieldNameConstant          = "root"
	rootUnavailableMessageConstant = "skipping unavailable root"
	rootWarningTemplateConstant    = "warning: skipping root %s: %v\n"
)

var (
	// ErrDiscovererNotConfigured reports a missing repository discoverer dependency.
	ErrDiscovererNotConfigured = errors.New("repository discoverer not configured")
	// ErrProberNotConfigured reports a missing repository prober dependency.
	ErrProberNotConfigured = errors.New("repository prober not configured")
	// ErrNoScannableRoots reports that none of the requested roots could be scanned.
	ErrNoScannableRoots = errors.New("no scannable repository roots")
)

// Service coordinates repository discovery, probing, and classification.
type Service struct {
	discoverer    RepositoryDiscoverer
	prober        RepositoryProber
	logger        *zap.Logger
	errorWriter   io.Writer
	pathSanitizer *pathutils.RepositoryPathSanitizer
}

// NewService constructs a Service using the provided dependencies.
func NewService(discoverer RepositoryDiscoverer, prober RepositoryProber, logger *zap.Logger, errorWriter io.Writer) (*Service, error) {
	if discoverer == nil {
		return nil, ErrDiscovererNotConfigured
	}
	if prober == nil {
		return nil, ErrProberNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if errorWriter == nil {
		errorWriter = io.Discard
	}
	sanitizer := pathutils.NewRepositoryPathSanitizerWithConfiguration(nil, pathutils.RepositoryPathSanitizerConfiguration{PruneNestedPaths: true})
	return &Service{
		discoverer:    discoverer,
		prober:        prober,
		logger:        logger,
		errorWriter:   errorWriter,
		pathSanitizer: sanitizer,
	}, nil
}

type probeAssignment struct {
	rootIndex      int
	resultIndex    int
	repositoryPath string
}

// Run discovers repositories beneath the requested roots, probes every one of
// them, and returns the grouped results together with a run summary. Roots are
// processed in request order and repositories stay in discovery order
// regardless of probe concurrency. A failed probe is recorded on the affected
// repository and never aborts the run; an unavailable root yields a warning
// and an empty group. Run fails only when no root could be scanned at all.
func (service *Service) Run(executionContext context.Context, options ScanOptions) ([]RootReport, Summary, error) {
	sanitizedRoots := service.pathSanitizer.Sanitize(options.Roots)
	if len(sanitizedRoots) == 0 {
		return nil, Summary{}, ErrNoScannableRoots
	}

	rootReports := make([]RootReport, 0, len(sanitizedRoots))
	assignments := make([]probeAssignment, 0, len(sanitizedRoots))
	scannableRoots := 0
	for _, rootPath := range sanitizedRoots {
		repositories, discoveryError := service.discoverer.DiscoverRepositoriesWithin(rootPath)
		if discoveryError != nil {
			service.logger.Warn(rootUnavailableMessageConstant, zap.String(rootFieldNameConstant, rootPath), zap.Error(discoveryError))
			fmt.Fprintf(service.errorWriter, rootWarningTemplateConstant, rootPath, discoveryError)
			rootReports = append(rootReports, RootReport{RootPath: rootPath})
			continue
		}
		scannableRoots++
		rootIndex := len(rootReports)
		for repositoryIndex, repositoryPath := range repositories {
			assignments = append(assignments, probeAssignment{rootIndex: rootIndex, resultIndex: repositoryIndex, repositoryPath: repositoryPath})
		}
		rootReports = append(rootReports, RootReport{RootPath: rootPath, Results: make([]Result, len(repositories))})
	}
	if scannableRoots == 0 {
		return nil, Summary{}, ErrNoScannableRoots
	}

	probeTimeout := options.Timeout
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeoutConstant
	}

	var workerGroup errgroup.Group
	workerGroup.SetLimit(resolveConcurrencyLimit(options.Concurrency))
	for _, assignment := range assignments {
		assignment := assignment
		workerGroup.Go(func() error {
			probeContext, cancelProbe := context.WithTimeout(executionContext, probeTimeout)
			defer cancelProbe()

			repositoryFacts, probeError := service.prober.Probe(probeContext, assignment.repositoryPath)
			probedResult := Result{
				Repository: RepositoryRef(assignment.repositoryPath),
				RootPath:   rootReports[assignment.rootIndex].RootPath,
				Facts:      repositoryFacts,
			}
			if probeError != nil {
				probedResult.ErrorNote = probeError.Error()
			} else {
				probedResult.State = status.Classify(repositoryFacts)
			}
			rootReports[assignment.rootIndex].Results[assignment.resultIndex] = probedResult
			return nil
		})
	}
	if waitError := workerGroup.Wait(); waitError != nil {
		return nil, Summary{}, waitError
	}

	return rootReports, summarizeReports(rootReports), nil
}

func resolveConcurrencyLimit(requestedConcurrency int) int {
	if requestedConcurrency > 0 {
		return requestedConcurrency
	}
	detectedConcurrency := runtime.NumCPU()
	if detectedConcurrency < 1 {
		return 1
	}
	return detectedConcurrency
}

func summarizeReports(rootReports []RootReport) Summary {
	runSummary := Summary{StateCounts: make(map[status.SyncState]int)}
	for _, rootReport := range rootReports {
		for _, repositoryResult := range rootReport.Results {
			runSummary.TotalRepositories++
			if len(repositoryResult.ErrorNote) > 0 {
				runSummary.ProbeFailures++
				continue
			}
			runSummary.StateCounts[repositoryResult.State]++
		}
	}
	return runSummary
}
