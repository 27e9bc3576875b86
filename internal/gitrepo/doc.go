// Package gitrepo contains helpers for interrogating Git repositories.
//
// It exposes RepositoryManager for read-only branch, status, upstream, and
// remote queries, along with remote URL parsing utilities consumed by
// services that need structured Git metadata.
package gitrepo
