package probe

import (
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/sitrep/internal/execshell"
)

const (
	probeErrorTemplateConstant         = "probing %s failed (%s): %v"
	probeErrorNoCauseTemplateConstant  = "probing %s failed (%s)"
	notARepositoryDiagnosticConstant   = "not a git repository"
	permissionDeniedDiagnosticConstant = "permission denied"
)

var corruptionDiagnosticFragments = []string{
	"corrupt",
	"bad object",
	"object file",
	"loose object",
	"unable to read tree",
	"invalid object",
}

// ProbeErrorKind categorizes why a repository could not be probed.
type ProbeErrorKind string

// Probe failure kinds.
const (
	ProbeErrorNotARepository    ProbeErrorKind = "not_a_git_repository"
	ProbeErrorCorruptRepository ProbeErrorKind = "corrupt_repository"
	ProbeErrorPermissionDenied  ProbeErrorKind = "permission_denied"
	ProbeErrorTimeout           ProbeErrorKind = "probe_timeout"
)

// ProbeError reports that a repository could not be probed at all this run.
type ProbeError struct {
	RepositoryPath string
	Kind           ProbeErrorKind
	Cause          error
}

// Error describes the probe failure.
func (probeError ProbeError) Error() string {
	if probeError.Cause == nil {
		return fmt.Sprintf(probeErrorNoCauseTemplateConstant, probeError.RepositoryPath, probeError.Kind)
	}
	return fmt.Sprintf(probeErrorTemplateConstant, probeError.RepositoryPath, probeError.Kind, probeError.Cause)
}

// Unwrap exposes the underlying failure.
func (probeError ProbeError) Unwrap() error {
	return probeError.Cause
}

func newProbeError(repositoryPath string, kind ProbeErrorKind, cause error) ProbeError {
	return ProbeError{RepositoryPath: repositoryPath, Kind: kind, Cause: cause}
}

// classifyLocalFailureKind maps a local git query failure onto a probe error kind.
// The fallback applies when the diagnostic text matches no known pattern.
func classifyLocalFailureKind(executionError error, fallbackKind ProbeErrorKind) ProbeErrorKind {
	diagnosticText := strings.ToLower(diagnosticTextFromError(executionError))
	switch {
	case strings.Contains(diagnosticText, permissionDeniedDiagnosticConstant):
		return ProbeErrorPermissionDenied
	case containsAnyFragment(diagnosticText, corruptionDiagnosticFragments):
		return ProbeErrorCorruptRepository
	case strings.Contains(diagnosticText, notARepositoryDiagnosticConstant):
		return ProbeErrorNotARepository
	default:
		return fallbackKind
	}
}

// diagnosticTextFromError extracts the most specific diagnostic text a git failure carries.
func diagnosticTextFromError(executionError error) string {
	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) {
		trimmedStandardError := strings.TrimSpace(commandFailure.Result.StandardError)
		if len(trimmedStandardError) > 0 {
			return trimmedStandardError
		}
	}
	var executionFailure execshell.CommandExecutionError
	if errors.As(executionError, &executionFailure) && executionFailure.Cause != nil {
		return executionFailure.Cause.Error()
	}
	if executionError == nil {
		return ""
	}
	return executionError.Error()
}

func containsAnyFragment(diagnosticText string, fragments []string) bool {
	for _, fragment := range fragments {
		if strings.Contains(diagnosticText, fragment) {
			return true
		}
	}
	return false
}
