// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging and lifecycle events via ShellExecutor,
// exposes OSCommandRunner for default process execution plus
// InteractiveCommandRunner for terminal-attached programs, and defines the
// abstractions used throughout sitrep to run git and editors in a testable
// manner.
package execshell
