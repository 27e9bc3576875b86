package report

import (
	"fmt"
	"strings"

	"github.com/temirov/sitrep/internal/scan"
	"github.com/temirov/sitrep/internal/status"
)

const (
	summarySingularTemplateConstant  = "%d repository: %s"
	summaryPluralTemplateConstant    = "%d repositories: %s"
	emptySummaryMessageConstant      = "no repositories found"
	probeFailureSummaryLabelConstant = "probe failed"
	summaryCountTemplateConstant     = "%d %s"
)

var summaryStateLabels = map[status.SyncState]string{
	status.SyncStateUpToDate:            "up to date",
	status.SyncStateUncommittedChanges:  "uncommitted",
	status.SyncStateStagedChanges:       "staged",
	status.SyncStatePushNeeded:          "to push",
	status.SyncStatePullNeeded:          "to pull",
	status.SyncStateDiverged:            "diverged",
	status.SyncStateNoRemote:            "no remote",
	status.SyncStateDetachedHead:        "detached",
	status.SyncStateRemoteAccessLimited: "remote limited",
}

// writeSummary appends the aggregate line: per-state counts in display order
// with zero counts omitted and probe failures always last.
func writeSummary(reportBuilder *strings.Builder, runSummary scan.Summary) {
	if runSummary.TotalRepositories == 0 {
		reportBuilder.WriteString(emptySummaryMessageConstant)
		reportBuilder.WriteString("\n")
		return
	}

	fragments := make([]string, 0, len(status.OrderedSyncStates)+1)
	for _, syncState := range status.OrderedSyncStates {
		stateCount := runSummary.StateCounts[syncState]
		if stateCount == 0 {
			continue
		}
		fragments = append(fragments, fmt.Sprintf(summaryCountTemplateConstant, stateCount, summaryStateLabels[syncState]))
	}
	if runSummary.ProbeFailures > 0 {
		fragments = append(fragments, fmt.Sprintf(summaryCountTemplateConstant, runSummary.ProbeFailures, probeFailureSummaryLabelConstant))
	}

	summaryTemplate := summaryPluralTemplateConstant
	if runSummary.TotalRepositories == 1 {
		summaryTemplate = summarySingularTemplateConstant
	}
	reportBuilder.WriteString(fmt.Sprintf(summaryTemplate, runSummary.TotalRepositories, strings.Join(fragments, ", ")))
	reportBuilder.WriteString("\n")
}
