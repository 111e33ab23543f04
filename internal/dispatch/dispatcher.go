package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/workqueue"
)

// Outcome reports a successful dispatch.
type Outcome struct {
	Document *records.Document
	Token    string
	ItemID   int64
}

// Dispatcher moves documents into the work queue.
type Dispatcher struct {
	cfg    config.Dispatch
	store  *records.Store
	queue  *workqueue.Store
	logger *slog.Logger
}

// New builds a dispatcher over the two stores.
func New(cfg *config.Config, store *records.Store, queue *workqueue.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg.Dispatch,
		store:  store,
		queue:  queue,
		logger: logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Dispatch resolves the trigger to a record, moves it to queued with a fresh
// dispatch token, and enqueues exactly one work item carrying that token.
// Races with other dispatchers surface as StateConflict from the conditional
// transition; the winner's item is the one consumers will accept.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger Trigger) (*Outcome, error) {
	doc, err := d.resolve(ctx, trigger)
	if err != nil {
		return nil, err
	}
	if err := checkDispatchable(doc, trigger.Source); err != nil {
		return nil, err
	}

	// The conditional write below bumps the generation by exactly one, so the
	// token can be derived before the transition and stored with it.
	token := DeriveToken(doc.DocumentID, doc.StatusGeneration+1)

	update := &records.TransitionUpdate{DispatchToken: &token}
	switch trigger.Source {
	case workqueue.TriggerReconciler:
		update.BumpRetry = true
		update.ClearHeartbeat = true
	case workqueue.TriggerRetry:
		update.ResetRetry = true
		cleared := ""
		update.LastError = &cleared
		update.ClearHeartbeat = true
	}

	queued, err := d.store.Transition(ctx, doc, records.StatusQueued, update)
	if err != nil {
		return nil, err
	}

	item, err := d.enqueue(ctx, queued, token, trigger.Source)
	if err != nil {
		return nil, err
	}

	d.logger.Info("document dispatched", logging.Args(
		logging.String(logging.FieldDocumentID, queued.DocumentID),
		logging.String(logging.FieldTier, string(queued.Tier)),
		logging.String("trigger_source", string(trigger.Source)),
		logging.Int64(logging.FieldItemID, item.ID),
		logging.Int64("generation", queued.StatusGeneration),
	)...)

	return &Outcome{Document: queued, Token: token, ItemID: item.ID}, nil
}

func (d *Dispatcher) resolve(ctx context.Context, trigger Trigger) (*records.Document, error) {
	var (
		doc *records.Document
		err error
	)
	switch {
	case trigger.DocumentID != "":
		doc, err = d.store.Get(ctx, trigger.DocumentID)
	case trigger.Bucket != "" && trigger.Key != "":
		doc, err = d.store.LookupBySource(ctx, trigger.Bucket, trigger.Key)
	default:
		return nil, services.Wrap(services.ErrValidation, "dispatch", "resolve",
			"trigger carries neither a document id nor a source location", nil)
	}
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, services.Wrap(services.ErrNotFound, "dispatch", "resolve",
			"no record matches the trigger", nil)
	}

	if trigger.Bucket != "" && trigger.Key != "" &&
		(doc.SourceBucket != trigger.Bucket || doc.SourceKey != trigger.Key) {
		return nil, services.Wrap(services.ErrRoutingMismatch, "dispatch", "resolve",
			fmt.Sprintf("trigger location %s/%s does not match record %s/%s",
				trigger.Bucket, trigger.Key, doc.SourceBucket, doc.SourceKey), nil)
	}
	if trigger.Tier != "" {
		tier, ok := records.ParseTier(trigger.Tier)
		if !ok || tier != doc.Tier {
			return nil, services.Wrap(services.ErrRoutingMismatch, "dispatch", "resolve",
				fmt.Sprintf("trigger tier %q does not match record tier %s", trigger.Tier, doc.Tier), nil)
		}
	}
	return doc, nil
}

// checkDispatchable enforces the dispatch entry states: uploaded, queued
// (re-dispatch), and failed. Failed records requeue only through an explicit
// retry or the reconciler, never through a redelivered storage event. The
// reconciler alone may pull an in-flight record back to queued; for every
// other caller an in-flight document is busy.
func checkDispatchable(doc *records.Document, source workqueue.TriggerSource) error {
	switch {
	case doc.Status.TerminalSuccess():
		return services.Wrap(services.ErrValidation, "dispatch", "dispatch",
			fmt.Sprintf("document %s is already processed", doc.DocumentID), nil)
	case doc.Status.InFlight() && source != workqueue.TriggerReconciler:
		return services.Wrap(services.ErrStateConflict, "dispatch", "dispatch",
			fmt.Sprintf("document %s is in flight (%s)", doc.DocumentID, doc.Status), nil)
	case doc.Status == records.StatusFailed &&
		source != workqueue.TriggerRetry && source != workqueue.TriggerReconciler:
		return services.Wrap(services.ErrStateConflict, "dispatch", "dispatch",
			fmt.Sprintf("document %s is failed; requeue requires an explicit retry", doc.DocumentID), nil)
	}
	return nil
}

// enqueue inserts the work item with bounded backoff. The record already
// points at the new token, so on exhaustion the item is simply missing and a
// later dispatch or the reconciler repairs the gap.
func (d *Dispatcher) enqueue(ctx context.Context, doc *records.Document, token string, source workqueue.TriggerSource) (*workqueue.Item, error) {
	var item *workqueue.Item

	backoff := retry.WithMaxRetries(uint64(d.cfg.EnqueueRetries), retry.NewFibonacci(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		enqueued, err := d.queue.Enqueue(ctx, workqueue.NewItem{
			DocumentID:    doc.DocumentID,
			Tier:          string(doc.Tier),
			DispatchToken: token,
			TriggerSource: source,
			Payload: workqueue.Payload{
				DocumentID:   doc.DocumentID,
				Tier:         string(doc.Tier),
				SourceBucket: doc.SourceBucket,
				SourceKey:    doc.SourceKey,
			},
			MaxAttempts: d.cfg.MaxAttempts,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		item = enqueued
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "dispatch", "enqueue",
			fmt.Sprintf("enqueue work item for %s", doc.DocumentID), err)
	}
	return item, nil
}
