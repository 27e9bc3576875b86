// Package scan orchestrates the situation report for sitrep.
//
// It exposes CommandBuilder for wiring the report Cobra command and Service
// for driving the scan programmatically: repositories are discovered beneath
// the monitored roots, probed concurrently under per-repository timeouts,
// classified, and grouped per root for rendering.
package scan
