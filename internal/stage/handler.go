// Package stage defines the contract between worker lanes and the pipeline
// stages they run.
package stage

import (
	"context"

	"inkwell/internal/extraction"
	"inkwell/internal/records"
)

// Job carries one document through a tier pipeline. Handlers mutate the
// in-memory fields; the lane persists status moves and the final result.
type Job struct {
	Document *records.Document
	Data     []byte
	Output   extraction.Output
	Result   records.Result
}

// Handler is one pipeline stage. The lane moves the record into the stage's
// status and keeps heartbeats fresh while Execute runs; Execute only does
// the work and fills in the job.
type Handler interface {
	Name() string
	Execute(ctx context.Context, job *Job) error
	HealthCheck(ctx context.Context) Health
}
