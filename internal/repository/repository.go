// Package repository provides Postgres-backed persistence for tickets,
// assignments, comments and audit events.
package repository

import "errors"

// Sentinel errors translated by callers into the user-facing taxonomy.
var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict indicates an optimistic-concurrency collision:
	// the ticket row changed between read and write.
	ErrVersionConflict = errors.New("ticket version conflict")
)
