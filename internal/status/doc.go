// Package status defines the synchronization states reported for Git
// repositories and the pure classifier that derives a state from the facts a
// probe collected.
package status
