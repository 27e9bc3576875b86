package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/temirov/sitrep/internal/gitrepo"
	"github.com/temirov/sitrep/internal/probe"
	"github.com/temirov/sitrep/internal/repos/shared"
	"github.com/temirov/sitrep/internal/scan"
	"github.com/temirov/sitrep/internal/status"
)

const (
	treeBranchConnectorConstant           = "├── "
	treeElbowConnectorConstant            = "└── "
	treeContinuationPrefixConstant        = "│   "
	treeTerminalPrefixConstant            = "    "
	rootHeaderSingularTemplateConstant    = "%s (%d repository)"
	rootHeaderPluralTemplateConstant      = "%s (%d repositories)"
	probeFailureEmojiIconConstant         = "❌"
	probeFailureASCIITagConstant          = "[failed]"
	uncommittedAnnotationTemplateConstant = "%d uncommitted"
	stagedAnnotationTemplateConstant      = "%d staged"
	pushAnnotationTemplateConstant        = "%d to push"
	pullAnnotationTemplateConstant        = "%d to pull"
	divergedAnnotationTemplateConstant    = "%d to push, %d to pull"
	noUpstreamAnnotationConstant          = "no upstream"
	detachedAnnotationConstant            = "detached HEAD"
	limitedRemoteFallbackConstant         = "remote: check failed"
	detailCountsTemplateConstant          = "ahead %d, behind %d, staged %d, uncommitted %d"
	probeFailureDetailTemplateConstant    = "probe failed: %s"
	lastCommitDetailTemplateConstant      = "last commit %s"
	justNowAgeLabelConstant               = "just now"
	minutesAgeTemplateConstant            = "%dm ago"
	hoursAgeTemplateConstant              = "%dh ago"
	daysAgeTemplateConstant               = "%dd ago"
	yearsAgeTemplateConstant              = "%dy ago"
)

var stateEmojiIcons = map[status.SyncState]string{
	status.SyncStateUpToDate:            "✅",
	status.SyncStateUncommittedChanges:  "📝",
	status.SyncStateStagedChanges:       "🗂",
	status.SyncStatePushNeeded:          "⬆️",
	status.SyncStatePullNeeded:          "⬇️",
	status.SyncStateDiverged:            "🔀",
	status.SyncStateNoRemote:            "📴",
	status.SyncStateDetachedHead:        "🧷",
	status.SyncStateRemoteAccessLimited: "🔒",
}

var stateASCIITags = map[status.SyncState]string{
	status.SyncStateUpToDate:            "[ok]",
	status.SyncStateUncommittedChanges:  "[dirty]",
	status.SyncStateStagedChanges:       "[staged]",
	status.SyncStatePushNeeded:          "[push]",
	status.SyncStatePullNeeded:          "[pull]",
	status.SyncStateDiverged:            "[diverged]",
	status.SyncStateNoRemote:            "[no-remote]",
	status.SyncStateDetachedHead:        "[detached]",
	status.SyncStateRemoteAccessLimited: "[limited]",
}

var limitedRemoteAnnotations = map[probe.RemoteOutcome]string{
	probe.RemoteOutcomeAuthRequired: "remote: auth required",
	probe.RemoteOutcomeNetworkIssue: "remote: network issue",
	probe.RemoteOutcomeNotFound:     "remote: not found",
	probe.RemoteOutcomeUnknown:      "remote: check failed",
}

var detailRemoteOutcomeLabels = map[probe.RemoteOutcome]string{
	probe.RemoteOutcomeReachable:    "remote reachable",
	probe.RemoteOutcomeAuthRequired: "remote auth required",
	probe.RemoteOutcomeNetworkIssue: "remote network issue",
	probe.RemoteOutcomeNotFound:     "remote not found",
	probe.RemoteOutcomeUnknown:      "remote check failed",
}

var (
	rootHeaderStyle   = lipgloss.NewStyle().Bold(true)
	annotationStyle   = lipgloss.NewStyle().Faint(true)
	probeFailureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	stateStyles       = map[status.SyncState]lipgloss.Style{
		status.SyncStateUpToDate:            lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		status.SyncStateUncommittedChanges:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		status.SyncStateStagedChanges:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		status.SyncStatePushNeeded:          lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		status.SyncStatePullNeeded:          lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		status.SyncStateDiverged:            lipgloss.NewStyle().Foreground(lipgloss.Color("5")),
		status.SyncStateNoRemote:            lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		status.SyncStateDetachedHead:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		status.SyncStateRemoteAccessLimited: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

// Options configures report presentation.
type Options struct {
	EmojiEnabled   bool
	VerboseEnabled bool
}

// Renderer writes grouped scan results as a tree-style situation report.
type Renderer struct {
	outputWriter io.Writer
	options      Options
	clock        shared.Clock
}

// NewRenderer constructs a Renderer writing to the provided writer.
func NewRenderer(outputWriter io.Writer, options Options, clock shared.Clock) *Renderer {
	if outputWriter == nil {
		outputWriter = io.Discard
	}
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &Renderer{outputWriter: outputWriter, options: options, clock: clock}
}

// Render writes one block per monitored root followed by the run summary.
func (renderer *Renderer) Render(rootReports []scan.RootReport, runSummary scan.Summary) error {
	var reportBuilder strings.Builder
	for rootIndex, rootReport := range rootReports {
		if rootIndex > 0 {
			reportBuilder.WriteString("\n")
		}
		renderer.writeRoot(&reportBuilder, rootReport)
	}
	if len(rootReports) > 0 {
		reportBuilder.WriteString("\n")
	}
	writeSummary(&reportBuilder, runSummary)

	_, writeError := io.WriteString(renderer.outputWriter, reportBuilder.String())
	return writeError
}

func (renderer *Renderer) writeRoot(reportBuilder *strings.Builder, rootReport scan.RootReport) {
	repositoryCount := len(rootReport.Results)
	headerTemplate := rootHeaderPluralTemplateConstant
	if repositoryCount == 1 {
		headerTemplate = rootHeaderSingularTemplateConstant
	}
	reportBuilder.WriteString(rootHeaderStyle.Render(fmt.Sprintf(headerTemplate, rootReport.RootPath, repositoryCount)))
	reportBuilder.WriteString("\n")

	nameColumnWidth := 0
	branchColumnWidth := 0
	tagColumnWidth := 0
	for _, repositoryResult := range rootReport.Results {
		displayNameWidth := lipgloss.Width(repositoryDisplayName(repositoryResult))
		if displayNameWidth > nameColumnWidth {
			nameColumnWidth = displayNameWidth
		}
		branchLabelWidth := lipgloss.Width(branchDisplayLabel(repositoryResult))
		if branchLabelWidth > branchColumnWidth {
			branchColumnWidth = branchLabelWidth
		}
		tagWidth := lipgloss.Width(renderer.stateTag(repositoryResult))
		if tagWidth > tagColumnWidth {
			tagColumnWidth = tagWidth
		}
	}

	for resultIndex, repositoryResult := range rootReport.Results {
		lastEntry := resultIndex == len(rootReport.Results)-1
		connector := treeBranchConnectorConstant
		detailPrefix := treeContinuationPrefixConstant
		if lastEntry {
			connector = treeElbowConnectorConstant
			detailPrefix = treeTerminalPrefixConstant
		}

		displayName := repositoryDisplayName(repositoryResult)
		branchLabel := branchDisplayLabel(repositoryResult)
		annotation := annotationText(repositoryResult)

		rowText := connector + renderer.paddedStateTag(repositoryResult, tagColumnWidth) + " " + padRight(displayName, nameColumnWidth)
		if branchColumnWidth > 0 {
			rowText += "  " + padRight(branchLabel, branchColumnWidth)
		}
		if len(annotation) > 0 {
			rowText += "  " + annotationStyle.Render(annotation)
		}
		reportBuilder.WriteString(strings.TrimRight(rowText, " "))
		reportBuilder.WriteString("\n")

		if renderer.options.VerboseEnabled {
			reportBuilder.WriteString(detailPrefix)
			reportBuilder.WriteString(annotationStyle.Render(renderer.detailText(repositoryResult)))
			reportBuilder.WriteString("\n")
		}
	}
}

func (renderer *Renderer) stateTag(repositoryResult scan.Result) string {
	if len(repositoryResult.ErrorNote) > 0 {
		if renderer.options.EmojiEnabled {
			return probeFailureEmojiIconConstant
		}
		return probeFailureASCIITagConstant
	}
	if renderer.options.EmojiEnabled {
		return stateEmojiIcons[repositoryResult.State]
	}
	return stateASCIITags[repositoryResult.State]
}

func (renderer *Renderer) paddedStateTag(repositoryResult scan.Result, tagColumnWidth int) string {
	stateTag := renderer.stateTag(repositoryResult)
	padding := tagColumnWidth - lipgloss.Width(stateTag)
	styledTag := renderer.stateStyle(repositoryResult).Render(stateTag)
	if padding > 0 {
		return styledTag + strings.Repeat(" ", padding)
	}
	return styledTag
}

func (renderer *Renderer) stateStyle(repositoryResult scan.Result) lipgloss.Style {
	if len(repositoryResult.ErrorNote) > 0 {
		return probeFailureStyle
	}
	return stateStyles[repositoryResult.State]
}

func (renderer *Renderer) detailText(repositoryResult scan.Result) string {
	if len(repositoryResult.ErrorNote) > 0 {
		return fmt.Sprintf(probeFailureDetailTemplateConstant, repositoryResult.ErrorNote)
	}

	repositoryFacts := repositoryResult.Facts
	fragments := []string{
		fmt.Sprintf(detailCountsTemplateConstant, repositoryFacts.AheadCount, repositoryFacts.BehindCount, repositoryFacts.StagedCount, repositoryFacts.UncommittedCount),
	}
	if !repositoryFacts.HasUpstream {
		fragments = append(fragments, noUpstreamAnnotationConstant)
	}
	if len(repositoryFacts.RemoteOutcome) > 0 {
		fragments = append(fragments, detailRemoteOutcomeLabels[repositoryFacts.RemoteOutcome])
	}
	if len(repositoryFacts.RemoteURL) > 0 {
		fragments = append(fragments, remoteOwnerRepositoryLabel(repositoryFacts.RemoteURL))
	}
	if !repositoryFacts.LastCommit.CommittedAt.IsZero() {
		commitAge := formatRelativeAge(renderer.clock.Now(), repositoryFacts.LastCommit.CommittedAt)
		fragments = append(fragments, fmt.Sprintf(lastCommitDetailTemplateConstant, commitAge))
	}
	return strings.Join(fragments, ", ")
}

func repositoryDisplayName(repositoryResult scan.Result) string {
	return filepath.Base(repositoryResult.Repository.String())
}

func branchDisplayLabel(repositoryResult scan.Result) string {
	if len(repositoryResult.ErrorNote) > 0 {
		return ""
	}
	return repositoryResult.Facts.BranchName
}

func annotationText(repositoryResult scan.Result) string {
	if len(repositoryResult.ErrorNote) > 0 {
		return repositoryResult.ErrorNote
	}

	repositoryFacts := repositoryResult.Facts
	switch repositoryResult.State {
	case status.SyncStateUncommittedChanges:
		return fmt.Sprintf(uncommittedAnnotationTemplateConstant, repositoryFacts.UncommittedCount)
	case status.SyncStateStagedChanges:
		return fmt.Sprintf(stagedAnnotationTemplateConstant, repositoryFacts.StagedCount)
	case status.SyncStatePushNeeded:
		return fmt.Sprintf(pushAnnotationTemplateConstant, repositoryFacts.AheadCount)
	case status.SyncStatePullNeeded:
		return fmt.Sprintf(pullAnnotationTemplateConstant, repositoryFacts.BehindCount)
	case status.SyncStateDiverged:
		return fmt.Sprintf(divergedAnnotationTemplateConstant, repositoryFacts.AheadCount, repositoryFacts.BehindCount)
	case status.SyncStateNoRemote:
		return noUpstreamAnnotationConstant
	case status.SyncStateDetachedHead:
		return detachedAnnotationConstant
	case status.SyncStateRemoteAccessLimited:
		annotation, annotationKnown := limitedRemoteAnnotations[repositoryFacts.RemoteOutcome]
		if !annotationKnown {
			return limitedRemoteFallbackConstant
		}
		return annotation
	default:
		return ""
	}
}

func remoteOwnerRepositoryLabel(remoteURLText string) string {
	parsedRemoteURL, parseError := gitrepo.ParseRemoteURL(remoteURLText)
	if parseError != nil {
		return remoteURLText
	}
	return parsedRemoteURL.Owner + "/" + parsedRemoteURL.Repository
}

func formatRelativeAge(currentTime time.Time, committedAt time.Time) string {
	elapsed := currentTime.Sub(committedAt)
	if elapsed < time.Minute {
		return justNowAgeLabelConstant
	}
	if elapsed < time.Hour {
		return fmt.Sprintf(minutesAgeTemplateConstant, int(elapsed.Minutes()))
	}
	if elapsed < 24*time.Hour {
		return fmt.Sprintf(hoursAgeTemplateConstant, int(elapsed.Hours()))
	}
	elapsedDays := int(elapsed.Hours()) / 24
	if elapsedDays < 365 {
		return fmt.Sprintf(daysAgeTemplateConstant, elapsedDays)
	}
	return fmt.Sprintf(yearsAgeTemplateConstant, elapsedDays/365)
}

func padRight(text string, width int) string {
	padding := width - lipgloss.Width(text)
	if padding <= 0 {
		return text
	}
	return text + strings.Repeat(" ", padding)
}
