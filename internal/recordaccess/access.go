// Package recordaccess gives the CLI one surface for document operations
// whether the daemon is running or not. When the daemon API answers, calls go
// over HTTP; otherwise the stores are opened directly so read commands and
// offline maintenance keep working.
package recordaccess

import (
	"context"

	"inkwell/internal/api"
)

// Access provides document operations regardless of HTTP or direct store backing.
type Access interface {
	// Daemon reports whether calls reach a running daemon.
	Daemon() bool

	List(ctx context.Context, statuses []string, limit int) ([]api.Document, error)
	Describe(ctx context.Context, documentID string) (*api.Document, error)
	Intake(ctx context.Context, req api.IntakeRequest) (*api.Document, error)
	Dispatch(ctx context.Context, documentID, tier string) (*api.DispatchOutcome, error)
	Retry(ctx context.Context, documentID string) (*api.DispatchOutcome, error)
	Edit(ctx context.Context, documentID string, req api.EditRequest) (*api.Document, error)
	Delete(ctx context.Context, documentID string) (*api.RecycleEntry, error)
	Restore(ctx context.Context, documentID string) (*api.Document, error)
	Recycled(ctx context.Context) ([]api.RecycleEntry, error)
	PurgeRecycled(ctx context.Context) (int64, error)
	DeadLetters(ctx context.Context) ([]api.WorkItem, error)
	ReplayDeadLetter(ctx context.Context, id int64) (*api.WorkItem, error)
	RecordStats(ctx context.Context) (api.RecordStats, error)
	QueueStats(ctx context.Context) (api.QueueStats, error)

	Close() error
}
