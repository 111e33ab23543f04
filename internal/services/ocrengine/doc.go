// Package ocrengine talks to the batch OCR service that backs the heavy
// tier. Documents go in through Submit, which returns the engine's job id,
// and come back out through Await, which polls until the job reaches a
// terminal state.
package ocrengine
