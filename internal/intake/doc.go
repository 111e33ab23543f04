// Package intake validates uploaded documents and routes them to a processing
// tier.
//
// Routing is configuration-driven: size and page-count thresholds promote a
// document to the heavy pipeline, and a force_tier override pins every
// decision for debugging. The router creates the document record but never
// enqueues work; dispatch is a separate, explicit step.
package intake
