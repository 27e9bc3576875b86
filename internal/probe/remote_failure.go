package probe

import "strings"

// Authentication patterns are matched before network patterns because several
// credential failures embed transport wording in the same message.
var authRequiredDiagnosticFragments = []string{
	"authentication failed",
	"could not read username",
	"could not read password",
	"permission denied (publickey",
	"invalid credentials",
	"terminal prompts disabled",
	"403",
}

var remoteNotFoundDiagnosticFragments = []string{
	"repository not found",
	"does not appear to be a git repository",
	"not found",
	"404",
}

var networkIssueDiagnosticFragments = []string{
	"could not resolve host",
	"unable to access",
	"connection timed out",
	"connection refused",
	"network is unreachable",
	"operation timed out",
	"timed out",
}

// ClassifyRemoteFailure maps raw remote diagnostic text onto a RemoteOutcome.
// Matching is case-insensitive and best-effort; unmatched text yields
// RemoteOutcomeUnknown rather than an error.
func ClassifyRemoteFailure(diagnosticText string) RemoteOutcome {
	loweredText := strings.ToLower(diagnosticText)
	switch {
	case containsAnyFragment(loweredText, authRequiredDiagnosticFragments):
		return RemoteOutcomeAuthRequired
	case containsAnyFragment(loweredText, remoteNotFoundDiagnosticFragments):
		return RemoteOutcomeNotFound
	case containsAnyFragment(loweredText, networkIssueDiagnosticFragments):
		return RemoteOutcomeNetworkIssue
	default:
		return RemoteOutcomeUnknown
	}
}
