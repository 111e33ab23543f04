package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/dispatch"
	"inkwell/internal/logging"
	"inkwell/internal/notifications"
	"inkwell/internal/records"
	"inkwell/internal/recycle"
	"inkwell/internal/services"
)

// SweepSummary reports what one SLA sweep found and did.
type SweepSummary struct {
	Scanned  int
	Requeued int
	Failed   int
	Skipped  int
}

// Snapshot is the reconciler state surfaced through the status API.
type Snapshot struct {
	Running   bool
	LastSweep time.Time
	LastSwept SweepSummary
	LastError string
}

// Reconciler owns the SLA sweep and the recycle purge schedule.
type Reconciler struct {
	cfg        *config.Config
	store      *records.Store
	dispatcher *dispatch.Dispatcher
	recycler   *recycle.Manager
	notifier   notifications.Service
	logger     *slog.Logger

	sweepInterval time.Duration
	purgeInterval time.Duration

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastSweep time.Time
	lastSwept SweepSummary
	lastErr   error
}

// New builds a reconciler over the store, dispatcher, and recycle manager.
func New(cfg *config.Config, store *records.Store, dispatcher *dispatch.Dispatcher, recycler *recycle.Manager, logger *slog.Logger) *Reconciler {
	return NewWithNotifier(cfg, store, dispatcher, recycler, logger, notifications.NewService(cfg))
}

// NewWithNotifier builds a reconciler with a custom notifier (used in tests).
func NewWithNotifier(cfg *config.Config, store *records.Store, dispatcher *dispatch.Dispatcher, recycler *recycle.Manager, logger *slog.Logger, notifier notifications.Service) *Reconciler {
	return &Reconciler{
		cfg:           cfg,
		store:         store,
		dispatcher:    dispatcher,
		recycler:      recycler,
		notifier:      notifier,
		logger:        logging.NewComponentLogger(logger, "reconcile"),
		sweepInterval: time.Duration(cfg.Reconcile.SweepIntervalMinutes) * time.Minute,
		purgeInterval: time.Duration(cfg.Recycle.PurgeIntervalMinutes) * time.Minute,
	}
}

// Start begins the sweep and purge schedules. One sweep runs immediately so
// a restart repairs crashed work without waiting out a full interval.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("reconciler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(1)
	r.mu.Unlock()

	go r.run(runCtx)
	return nil
}

// Stop terminates the schedules and waits for an in-progress pass to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
}

func (r *Reconciler) run(ctx context.Context) {
	defer r.wg.Done()

	r.sweepAndRecord(ctx)
	r.purge(ctx)

	sweepTicker := time.NewTicker(r.sweepInterval)
	defer sweepTicker.Stop()
	purgeTicker := time.NewTicker(r.purgeInterval)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweepTicker.C:
			r.sweepAndRecord(ctx)
		case <-purgeTicker.C:
			r.purge(ctx)
		}
	}
}

func (r *Reconciler) sweepAndRecord(ctx context.Context) {
	summary, err := r.Sweep(ctx)

	r.mu.Lock()
	r.lastSweep = time.Now().UTC()
	r.lastSwept = summary
	r.lastErr = err
	r.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("sweep finished with errors",
			logging.Error(err),
			logging.String(logging.FieldEventType, "sweep_failed"),
			logging.String(logging.FieldErrorHint, "check records database access"),
		)
	}
}

// Sweep runs one SLA pass over both tiers and reports the outcome. It is
// exported so operators can trigger it through the API without waiting for
// the schedule.
func (r *Reconciler) Sweep(ctx context.Context) (SweepSummary, error) {
	var summary SweepSummary
	var firstErr error
	now := time.Now().UTC()

	tiers := []struct {
		tier records.Tier
		sla  time.Duration
	}{
		{records.TierFast, time.Duration(r.cfg.Reconcile.FastSLAMinutes) * time.Minute},
		{records.TierHeavy, time.Duration(r.cfg.Reconcile.HeavySLAMinutes) * time.Minute},
	}

	for _, entry := range tiers {
		if entry.sla <= 0 {
			continue
		}
		stale, err := r.store.StaleSince(ctx, entry.tier, now.Add(-entry.sla))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, doc := range stale {
			summary.Scanned++
			outcome, err := r.reconcileStale(ctx, doc)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			switch outcome {
			case outcomeRequeued:
				summary.Requeued++
			case outcomeFailed:
				summary.Failed++
			default:
				summary.Skipped++
			}
		}
	}

	if summary.Scanned > 0 {
		r.logger.Info("sweep complete", logging.Args(
			logging.Int("scanned", summary.Scanned),
			logging.Int("requeued", summary.Requeued),
			logging.Int("failed", summary.Failed),
			logging.Int("skipped", summary.Skipped),
			logging.String(logging.FieldEventType, "sweep_complete"),
		)...)
	}
	return summary, firstErr
}

type staleOutcome int

const (
	outcomeSkipped staleOutcome = iota
	outcomeRequeued
	outcomeFailed
)

// reconcileStale decides one stuck record's fate: requeue while budget
// remains, fail when it is spent. Lost conditional writes mean another actor
// got there first; the sweep just moves on.
func (r *Reconciler) reconcileStale(ctx context.Context, doc *records.Document) (staleOutcome, error) {
	logger := r.logger.With(logging.Args(
		logging.String(logging.FieldDocumentID, doc.DocumentID),
		logging.String(logging.FieldTier, string(doc.Tier)),
		logging.String(logging.FieldStatus, string(doc.Status)),
	)...)

	if doc.RetryCount < r.cfg.Reconcile.MaxRetries {
		outcome, err := r.dispatcher.Dispatch(ctx, dispatch.TriggerFromReconciler(doc.DocumentID))
		if err != nil {
			if lostRace(err) {
				logger.Debug("stale record moved on before requeue", logging.Error(err))
				return outcomeSkipped, nil
			}
			return outcomeSkipped, err
		}
		logger.Info("stuck document requeued", logging.Args(
			logging.Int("retry_count", outcome.Document.RetryCount),
			logging.Int64(logging.FieldItemID, outcome.ItemID),
			logging.String(logging.FieldEventType, "stuck_requeued"),
		)...)
		return outcomeRequeued, nil
	}

	reason := records.StuckReason
	failed, err := r.store.Transition(ctx, doc, records.StatusFailed, &records.TransitionUpdate{
		LastError:      &reason,
		ClearHeartbeat: true,
	})
	if err != nil {
		if lostRace(err) {
			logger.Debug("stale record moved on before failing", logging.Error(err))
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}
	logger.Warn("stuck document failed after exhausting retries",
		logging.Int("retry_count", failed.RetryCount),
		logging.Alert("stuck_document"),
		logging.String(logging.FieldEventType, "stuck_failed"),
		logging.String(logging.FieldErrorHint, "inspect the record and retry manually if the cause is fixed"),
	)
	if err := r.notifier.NotifyDocumentFailed(ctx, failed.DocumentID, reason); err != nil {
		logger.Warn("failure notification failed", logging.Error(err))
	}
	return outcomeFailed, nil
}

func (r *Reconciler) purge(ctx context.Context) {
	if r.recycler == nil {
		return
	}
	if _, err := r.recycler.PurgeExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Error("recycle purge failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "purge_failed"),
			logging.String(logging.FieldErrorHint, "check records database access"),
		)
	}
}

// Snapshot reports the reconciler's latest pass for the status API.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		Running:   r.running,
		LastSweep: r.lastSweep,
		LastSwept: r.lastSwept,
	}
	if r.lastErr != nil {
		snap.LastError = r.lastErr.Error()
	}
	return snap
}

// lostRace classifies errors that mean another actor already settled the
// record.
func lostRace(err error) bool {
	return errors.Is(err, services.ErrStateConflict) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrValidation)
}
