// Package records persists one row per uploaded document in SQLite and
// exposes the lifecycle primitives every other component builds on.
//
// The Store owns schema initialization, conditional status transitions keyed
// on (status, status_generation), revision-guarded field edits, soft delete
// with timed expiry, and the stale-record queries the reconciler sweeps with.
// All cross-actor coordination happens through these conditional writes; a
// zero-row update means the caller lost a race and must re-read.
//
// Treat this package as the single source of truth for lifecycle semantics;
// when you add statuses or columns, update schema.sql and bump schemaVersion.
package records
