package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/services"
	"inkwell/internal/stage"
	"inkwell/internal/storage"
	"inkwell/internal/workqueue"
)

// pipelineError tags a stage failure with the stage that produced it while
// keeping the marker chain intact for classification.
type pipelineError struct {
	stage string
	err   error
}

func (e *pipelineError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *pipelineError) Unwrap() error { return e.err }

// processItem runs the consume protocol for one leased item: re-read the
// record, validate the dispatch token, claim the record with the conditional
// queued-to-processing write, then walk the lane's pipeline. Only a context
// cancellation propagates; every other outcome settles the item here.
func (m *Manager) processItem(ctx context.Context, lane *laneState, laneLogger *slog.Logger, item *workqueue.Item) error {
	payload, err := item.Payload()
	if err != nil {
		laneLogger.Warn("work item carries an unreadable payload",
			logging.Error(err),
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String(logging.FieldEventType, "item_discarded"),
			logging.String(logging.FieldErrorHint, "item dropped; dispatch again if the document matters"),
		)
		m.ackItem(ctx, laneLogger, item)
		return nil
	}

	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithLane(ctx, lane.name)
	ctx = services.WithDocumentID(ctx, payload.DocumentID)
	logger := logging.WithContext(ctx, laneLogger).With(
		logging.Int64(logging.FieldItemID, item.ID),
	)

	doc, err := m.store.Get(ctx, payload.DocumentID)
	if err != nil {
		m.setLastError(err)
		m.releaseItem(ctx, logger, item, err)
		return nil
	}
	if doc == nil {
		m.discardItem(ctx, logger, item, "record missing or recycled")
		return nil
	}
	if doc.DispatchToken != item.DispatchToken {
		m.discardItem(ctx, logger, item, "stale dispatch token")
		return nil
	}
	if doc.Status != records.StatusQueued {
		m.discardItem(ctx, logger, item, fmt.Sprintf("record is %s, not queued", doc.Status))
		return nil
	}

	// Fetch before claiming so a storage hiccup retries through the queue
	// while the record stays queued.
	data, err := m.fetchDocument(ctx, doc)
	if err != nil {
		m.setLastError(err)
		m.releaseItem(ctx, logger, item, err)
		return nil
	}

	claimed, err := m.store.Transition(ctx, doc, records.StatusProcessing, &records.TransitionUpdate{HeartbeatNow: true})
	if err != nil {
		if errors.Is(err, services.ErrStateConflict) || errors.Is(err, services.ErrNotFound) {
			m.discardItem(ctx, logger, item, "lost the claim race")
			return nil
		}
		m.setLastError(err)
		m.releaseItem(ctx, logger, item, err)
		return nil
	}
	m.setLastDocument(claimed)

	job := &stage.Job{Document: claimed, Data: data}
	execErr := m.runPipeline(ctx, lane, logger, job, item.ID)
	switch {
	case execErr == nil:
		m.finishDocument(ctx, logger, job, item)
		return nil
	case errors.Is(execErr, context.Canceled):
		// Shutdown mid-stage. The lease lapses on its own and the sweep
		// requeues the record; writing anything now would race the restart.
		logger.Debug("pipeline interrupted by shutdown")
		return execErr
	case errors.Is(execErr, services.ErrStateConflict):
		// Another actor moved the record mid-pipeline. Their write is
		// authoritative, so this consumer walks away quietly.
		m.setLastError(execErr)
		m.discardItem(ctx, logger, item, "record changed under the pipeline")
		return nil
	default:
		m.setLastError(execErr)
		m.failDocument(ctx, logger, job, execErr)
		m.ackItem(ctx, logger, item)
		return nil
	}
}

// runPipeline advances the document through the lane's stages. Each stage
// runs under its own in-flight status with a heartbeat keeping the record
// and the queue lease fresh.
func (m *Manager) runPipeline(ctx context.Context, lane *laneState, logger *slog.Logger, job *stage.Job, itemID int64) error {
	for _, stg := range lane.stages {
		if job.Document.Status != stg.status {
			updated, err := m.store.Transition(ctx, job.Document, stg.status, &records.TransitionUpdate{HeartbeatNow: true})
			if err != nil {
				return &pipelineError{stage: stg.name, err: err}
			}
			job.Document = updated
			m.setLastDocument(updated)
		}

		stageCtx := services.WithStage(ctx, stg.name)
		stageLogger := logging.WithContext(stageCtx, logger)
		stageStart := time.Now()
		stageLogger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"),
			logging.String(logging.FieldStatus, string(stg.status)),
		)

		if err := m.executeWithHeartbeat(stageCtx, stg.handler, job, itemID); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return &pipelineError{stage: stg.name, err: err}
		}

		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *stage.Job, itemID int64) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.Document.DocumentID, itemID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// finishDocument lands the result with the terminal conditional write and
// settles the item.
func (m *Manager) finishDocument(ctx context.Context, logger *slog.Logger, job *stage.Job, item *workqueue.Item) {
	update := &records.TransitionUpdate{Result: &job.Result, ClearHeartbeat: true}
	if job.Result.PageCount > 0 && job.Result.PageCount != job.Document.PageCount {
		pages := job.Result.PageCount
		update.PageCount = &pages
	}

	done, err := m.store.Transition(ctx, job.Document, records.StatusProcessed, update)
	if err != nil {
		if errors.Is(err, services.ErrStateConflict) || errors.Is(err, services.ErrNotFound) {
			m.discardItem(ctx, logger, item, "final write lost to a concurrent actor")
			return
		}
		m.setLastError(err)
		m.releaseItem(ctx, logger, item, err)
		return
	}

	m.setLastDocument(done)
	m.ackItem(ctx, logger, item)
	logger.Info("document processed",
		logging.String(logging.FieldEventType, "document_processed"),
		logging.String(logging.FieldStatus, string(done.Status)),
		logging.Int("word_count", job.Result.WordCount),
		logging.Float64("quality_score", job.Result.QualityScore),
	)
	if err := m.notifier.NotifyDocumentProcessed(ctx, done.DocumentID, notifyTitle(done)); err != nil {
		logger.Warn("processed notification failed", logging.Error(err))
	}
}

// failDocument moves the record to failed with the stage's reason. A lost
// race here means another actor already decided the record's fate.
func (m *Manager) failDocument(ctx context.Context, logger *slog.Logger, job *stage.Job, execErr error) {
	stageName := "pipeline"
	inner := execErr
	var pErr *pipelineError
	if errors.As(execErr, &pErr) {
		stageName = pErr.stage
		inner = pErr.err
	}

	details := services.Details(inner)
	message := strings.TrimSpace(details.Message)
	if message == "" && details.Cause != nil {
		message = details.Cause.Error()
	}
	if message == "" {
		message = inner.Error()
	}
	reason := stageName + ": " + message

	attrs := []logging.Attr{
		logging.String(logging.FieldStage, stageName),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorOperation, details.Operation),
		logging.Alert("stage_failure"),
		logging.String(logging.FieldEventType, "stage_failure"),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(inner))
	}
	logger.Error("stage failed", logging.Args(attrs...)...)

	failed, err := m.store.Transition(ctx, job.Document, records.StatusFailed, &records.TransitionUpdate{
		LastError:      &reason,
		ClearHeartbeat: true,
	})
	if err != nil {
		if errors.Is(err, services.ErrStateConflict) || errors.Is(err, services.ErrNotFound) {
			logger.Debug("failure write lost to a concurrent actor", logging.Error(err))
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
		return
	}
	m.setLastDocument(failed)
	if err := m.notifier.NotifyDocumentFailed(ctx, failed.DocumentID, reason); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
}

func (m *Manager) fetchDocument(ctx context.Context, doc *records.Document) ([]byte, error) {
	if m.objects == nil {
		return nil, services.Wrap(services.ErrConfiguration, "worker", "fetch",
			"object storage not configured", nil)
	}
	body, err := m.objects.Get(ctx, doc.SourceBucket, doc.SourceKey)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "worker", "fetch",
			fmt.Sprintf("fetch %s/%s", doc.SourceBucket, doc.SourceKey), err)
	}
	data, err := storage.ReadAll(body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "worker", "fetch",
			fmt.Sprintf("read %s/%s", doc.SourceBucket, doc.SourceKey), err)
	}
	return data, nil
}

// releaseItem puts the item back with a retry delay; the queue dead-letters
// it when the attempt budget is spent.
func (m *Manager) releaseItem(ctx context.Context, logger *slog.Logger, item *workqueue.Item, cause error) {
	deadLettered, err := m.queue.Release(ctx, item.ID, m.retryDelay, cause.Error())
	if err != nil {
		logger.Error("failed to release work item", logging.Error(err))
		return
	}
	if deadLettered {
		logger.Error("work item dead-lettered",
			logging.Error(cause),
			logging.Int("attempts", item.Attempts),
			logging.Alert("dead_letter"),
			logging.String(logging.FieldEventType, "dead_letter"),
			logging.String(logging.FieldErrorHint, "inspect and replay via the queue commands"),
		)
		if err := m.notifier.NotifyDeadLetter(ctx, item.DocumentID, item.Attempts); err != nil {
			logger.Warn("dead letter notification failed", logging.Error(err))
		}
		return
	}
	logger.Warn("work item released for retry",
		logging.Error(cause),
		logging.Int("attempts", item.Attempts),
		logging.String(logging.FieldEventType, "item_released"),
		logging.String(logging.FieldErrorHint, "transient failure; the item will be redelivered"),
	)
}

func (m *Manager) discardItem(ctx context.Context, logger *slog.Logger, item *workqueue.Item, reason string) {
	logger.Debug("work item discarded",
		logging.String("reason", reason),
		logging.String("token", item.DispatchToken),
		logging.String(logging.FieldEventType, "item_discarded"),
	)
	m.ackItem(ctx, logger, item)
}

func (m *Manager) ackItem(ctx context.Context, logger *slog.Logger, item *workqueue.Item) {
	if err := m.queue.Ack(ctx, item.ID); err != nil {
		logger.Warn("failed to ack work item", logging.Error(err))
	}
}

func notifyTitle(doc *records.Document) string {
	if meta := doc.Metadata(); meta.Title != "" {
		return meta.Title
	}
	return doc.DocumentID
}
