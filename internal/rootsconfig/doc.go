// Package rootsconfig persists the registry of monitored repository roots.
//
// Registry stores unique, sorted, absolute root paths in a JSON document and
// CommandGroupBuilder exposes the roots command family (list, add, remove,
// edit) that maintains it.
package rootsconfig
