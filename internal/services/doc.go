// Package services defines shared utilities consumed by the pipeline
// components and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp document IDs, stage names, lanes, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the taxonomy the API and the reconciler act on (validation,
//     routing mismatch, state conflict, store, transport, ...).
//   - HTTP status mapping so transport handlers surface the same taxonomy
//     without re-deriving it.
//
// Use these helpers when wiring new component logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
