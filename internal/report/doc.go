// Package report renders grouped scan results as the sitrep situation report:
// one tree block per monitored root with per-state icons or ASCII tags,
// optional verbose detail lines, and an aggregate summary.
package report
