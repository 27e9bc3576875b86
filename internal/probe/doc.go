// Package probe collects the synchronization facts of individual Git
// repositories through read-only git queries.
//
// It exposes GitProbe for gathering RepositoryFacts, ProbeError for reporting
// repositories that could not be inspected, and ClassifyRemoteFailure for
// translating remote diagnostics into RemoteOutcome values.
package probe
