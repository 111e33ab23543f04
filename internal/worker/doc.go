// Package worker runs the consumer side of the pipeline. One lane per tier
// leases work items, validates their dispatch tokens against the records
// store, claims the document with a conditional queued-to-processing write,
// and walks it through the tier's stages while a heartbeat keeps the record
// and the queue lease fresh.
//
// Lost races are the normal currency here, not errors: a stale token, an
// already-claimed record, or a reconciler requeue mid-pipeline all end with
// the item acknowledged and the winner's write left standing.
package worker
