package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/workqueue"
)

// HeartbeatMonitor keeps a processing document visibly alive: it refreshes
// the record's heartbeat column and extends the work item's lease so the
// queue does not redeliver work that is still running.
type HeartbeatMonitor struct {
	store    *records.Store
	queue    *workqueue.Store
	logger   *slog.Logger
	interval time.Duration
	leaseFor time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *records.Store, queue *workqueue.Store, logger *slog.Logger, interval, leaseFor time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:    store,
		queue:    queue,
		logger:   logger,
		interval: interval,
		leaseFor: leaseFor,
	}
}

// StartLoop runs the heartbeat updater for one document and item until the
// stage finishes or the context ends.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, documentID string, itemID int64) {
	defer wg.Done()
	if h.interval <= 0 {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.logger, "worker-heartbeat"))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, documentID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Debug("shutdown during heartbeat update")
					return
				}
				logger.Warn("record heartbeat update failed", logging.Error(err))
				continue
			}
			if err := h.queue.ExtendLease(ctx, itemID, h.leaseFor); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("lease extension failed",
					logging.Error(err),
					logging.Int64(logging.FieldItemID, itemID),
				)
			}
		}
	}
}
