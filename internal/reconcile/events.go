package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"inkwell/internal/dispatch"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
)

// EventTypeJobStateChanged is the CloudEvents type external executors emit
// when a job reaches a terminal state outside the normal write-back path.
const EventTypeJobStateChanged = "com.inkwell.job.state-changed"

// Job states an executor may report.
const (
	JobStateSucceeded = "succeeded"
	JobStateFailed    = "failed"
)

// JobStateChanged is the event payload.
type JobStateChanged struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id,omitempty"`
	State      string `json:"state"`
	Detail     string `json:"detail,omitempty"`
}

// HandleJobEvent resolves drift between an external executor's verdict and
// the record. An executor failure fails a non-terminal record; an executor
// success against a non-terminal record means the terminal write was lost,
// so the document finishes directly when its stored result allows it and is
// re-dispatched otherwise. Records that already agree are left alone.
func (r *Reconciler) HandleJobEvent(ctx context.Context, event cloudevents.Event) (*records.Document, error) {
	var payload JobStateChanged
	if err := event.DataAs(&payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "reconcile", "job_event",
			"decode event data", err)
	}
	documentID := strings.TrimSpace(payload.DocumentID)
	if documentID == "" {
		return nil, services.Wrap(services.ErrValidation, "reconcile", "job_event",
			"event names no document", nil)
	}

	doc, err := r.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrNotFound, "reconcile", "job_event",
			fmt.Sprintf("document %s not found", documentID), nil)
	}

	logger := r.logger.With(logging.Args(
		logging.String(logging.FieldDocumentID, documentID),
		logging.String(logging.FieldStatus, string(doc.Status)),
		logging.String(logging.FieldEventType, "job_event"),
		logging.String("job_state", payload.State),
	)...)

	switch strings.ToLower(strings.TrimSpace(payload.State)) {
	case JobStateSucceeded:
		return r.reconcileSucceeded(ctx, logger, doc)
	case JobStateFailed:
		return r.reconcileFailed(ctx, logger, doc, payload.Detail)
	default:
		return nil, services.Wrap(services.ErrValidation, "reconcile", "job_event",
			fmt.Sprintf("unknown job state %q", payload.State), nil)
	}
}

func (r *Reconciler) reconcileSucceeded(ctx context.Context, logger *slog.Logger, doc *records.Document) (*records.Document, error) {
	if doc.Status.TerminalSuccess() {
		return doc, nil
	}
	if doc.Status == records.StatusFailed {
		// The executor finished after the record was written off. An
		// operator retry is the only path forward from failed.
		logger.Warn("executor succeeded for a failed record",
			logging.String(logging.FieldErrorHint, "retry the document to pick the result up"),
		)
		return doc, nil
	}

	if _, hasResult := doc.Result(); hasResult && records.CanTransition(doc.Status, records.StatusProcessed) {
		done, err := r.store.Transition(ctx, doc, records.StatusProcessed, &records.TransitionUpdate{ClearHeartbeat: true})
		if err != nil {
			if lostRace(err) {
				logger.Debug("record moved on before the drift repair", logging.Error(err))
				return r.store.Get(ctx, doc.DocumentID)
			}
			return nil, err
		}
		logger.Info("drifted record finished from stored result")
		return done, nil
	}

	// The executor finished but the result never landed; the work is
	// idempotent, so run it again rather than trusting what was lost.
	outcome, err := r.dispatcher.Dispatch(ctx, dispatch.TriggerFromReconciler(doc.DocumentID))
	if err != nil {
		if lostRace(err) {
			logger.Debug("record moved on before the drift requeue", logging.Error(err))
			return r.store.Get(ctx, doc.DocumentID)
		}
		return nil, err
	}
	logger.Info("drifted record requeued")
	return outcome.Document, nil
}

func (r *Reconciler) reconcileFailed(ctx context.Context, logger *slog.Logger, doc *records.Document, detail string) (*records.Document, error) {
	if doc.Status.Terminal() {
		return doc, nil
	}

	reason := "external job failed"
	if trimmed := strings.TrimSpace(detail); trimmed != "" {
		reason = reason + ": " + trimmed
	}
	failed, err := r.store.Transition(ctx, doc, records.StatusFailed, &records.TransitionUpdate{
		LastError:      &reason,
		ClearHeartbeat: true,
	})
	if err != nil {
		if lostRace(err) {
			logger.Debug("record moved on before the failure repair", logging.Error(err))
			return r.store.Get(ctx, doc.DocumentID)
		}
		return nil, err
	}
	logger.Warn("record failed from executor report", logging.Alert("job_event_failure"))
	if err := r.notifier.NotifyDocumentFailed(ctx, failed.DocumentID, reason); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	return failed, nil
}
