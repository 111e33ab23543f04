package recordaccess

import (
	"context"
	"fmt"
	"strconv"

	"inkwell/internal/api"
	"inkwell/internal/config"
	"inkwell/internal/dispatch"
	"inkwell/internal/editor"
	"inkwell/internal/intake"
	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/recycle"
	"inkwell/internal/workqueue"
)

// NewStoreAccess opens the records and work queue stores directly and serves
// the Access surface without a daemon. Page inspection is skipped offline, so
// intake routing decides on size alone.
func NewStoreAccess(cfg *config.Config) (Access, error) {
	store, err := records.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open records store: %w", err)
	}
	queue, err := workqueue.Open(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open work queue store: %w", err)
	}

	logger := logging.NewNop()
	dispatcher := dispatch.New(cfg, store, queue, logger)
	return &storeAccess{
		store:      store,
		queue:      queue,
		docs:       api.NewDocumentService(store, queue),
		router:     intake.NewRouter(cfg, store, nil, logger),
		dispatcher: dispatcher,
		editor:     editor.New(store, logger),
		recycler:   recycle.NewManager(cfg, store, logger),
	}, nil
}

type storeAccess struct {
	store      *records.Store
	queue      *workqueue.Store
	docs       *api.DocumentService
	router     *intake.Router
	dispatcher *dispatch.Dispatcher
	editor     *editor.Editor
	recycler   *recycle.Manager
}

func (a *storeAccess) Daemon() bool { return false }

func (a *storeAccess) List(ctx context.Context, statuses []string, limit int) ([]api.Document, error) {
	parsed := make([]records.Status, 0, len(statuses))
	for _, value := range statuses {
		status, ok := records.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown status %s", strconv.Quote(value))
		}
		parsed = append(parsed, status)
	}
	return a.docs.List(ctx, parsed, limit)
}

func (a *storeAccess) Describe(ctx context.Context, documentID string) (*api.Document, error) {
	return a.docs.Describe(ctx, documentID)
}

func (a *storeAccess) Intake(ctx context.Context, req api.IntakeRequest) (*api.Document, error) {
	decision, err := a.router.Route(ctx, intake.Request{
		DocumentID:  req.DocumentID,
		Bucket:      req.Bucket,
		Key:         req.Key,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		PageCount:   req.PageCount,
		Metadata:    api.ToMetadata(req.Metadata),
	})
	if err != nil {
		return nil, err
	}
	doc := api.FromDocument(decision.Document)
	return &doc, nil
}

func (a *storeAccess) Dispatch(ctx context.Context, documentID, tier string) (*api.DispatchOutcome, error) {
	return a.runDispatch(ctx, dispatch.TriggerFromRequest(documentID, "", "", tier))
}

func (a *storeAccess) Retry(ctx context.Context, documentID string) (*api.DispatchOutcome, error) {
	return a.runDispatch(ctx, dispatch.TriggerForRetry(documentID))
}

func (a *storeAccess) runDispatch(ctx context.Context, trigger dispatch.Trigger) (*api.DispatchOutcome, error) {
	outcome, err := a.dispatcher.Dispatch(ctx, trigger)
	if err != nil {
		return nil, err
	}
	return &api.DispatchOutcome{
		DocumentID: outcome.Document.DocumentID,
		Status:     string(outcome.Document.Status),
		Token:      outcome.Token,
		ItemID:     outcome.ItemID,
	}, nil
}

func (a *storeAccess) Edit(ctx context.Context, documentID string, req api.EditRequest) (*api.Document, error) {
	doc, err := a.editor.Edit(ctx, documentID, editor.Fields{
		RefinedText:   req.RefinedText,
		FormattedText: req.FormattedText,
		Title:         req.Title,
		Author:        req.Author,
		Publication:   req.Publication,
		Year:          req.Year,
		Description:   req.Description,
		Tags:          req.Tags,
	})
	if err != nil {
		return nil, err
	}
	converted := api.FromDocument(doc)
	return &converted, nil
}

func (a *storeAccess) Delete(ctx context.Context, documentID string) (*api.RecycleEntry, error) {
	doc, err := a.recycler.Delete(ctx, documentID)
	if err != nil {
		return nil, err
	}
	entry := api.FromRecycled(doc)
	return &entry, nil
}

func (a *storeAccess) Restore(ctx context.Context, documentID string) (*api.Document, error) {
	doc, err := a.recycler.Restore(ctx, documentID)
	if err != nil {
		return nil, err
	}
	converted := api.FromDocument(doc)
	return &converted, nil
}

func (a *storeAccess) Recycled(ctx context.Context) ([]api.RecycleEntry, error) {
	return a.docs.Recycled(ctx)
}

func (a *storeAccess) PurgeRecycled(ctx context.Context) (int64, error) {
	return a.recycler.PurgeExpired(ctx)
}

func (a *storeAccess) DeadLetters(ctx context.Context) ([]api.WorkItem, error) {
	return a.docs.DeadLetters(ctx)
}

func (a *storeAccess) ReplayDeadLetter(ctx context.Context, id int64) (*api.WorkItem, error) {
	item, err := a.queue.ReplayDeadLetter(ctx, id)
	if err != nil {
		return nil, err
	}
	converted := api.FromWorkItem(item)
	return &converted, nil
}

func (a *storeAccess) RecordStats(ctx context.Context) (api.RecordStats, error) {
	return a.docs.RecordStats(ctx)
}

func (a *storeAccess) QueueStats(ctx context.Context) (api.QueueStats, error) {
	return a.docs.QueueStats(ctx)
}

func (a *storeAccess) Close() error {
	queueErr := a.queue.Close()
	storeErr := a.store.Close()
	if storeErr != nil {
		return storeErr
	}
	return queueErr
}
