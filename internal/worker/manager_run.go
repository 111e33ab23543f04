package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("worker already running")
	}
	lanes := make([]*laneState, 0, len(m.laneOrder))
	for _, tier := range m.laneOrder {
		lane := m.lanes[tier]
		if lane == nil || len(lane.stages) == 0 {
			continue
		}
		lanes = append(lanes, lane)
	}
	if len(lanes) == 0 {
		m.mu.Unlock()
		return errors.New("worker stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, lane := range lanes {
		lane.logger = m.laneLogger(lane)
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, lane := range lanes {
		go m.runLane(runCtx, lane)
	}

	return nil
}

// Stop terminates background processing and waits for the lanes to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLane(ctx context.Context, lane *laneState) {
	defer m.wg.Done()
	if lane == nil {
		return
	}
	logger := lane.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := m.queue.Lease(ctx, string(lane.tier), m.leaseFor)
		if err != nil {
			m.handleLeaseError(ctx, logger, err)
			continue
		}
		if item == nil {
			m.waitForItemOrShutdown(ctx)
			continue
		}

		if err := m.processItem(ctx, lane, logger, item); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleLeaseError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to lease next work item",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_lease_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.errorInterval):
	}
}

func (m *Manager) waitForItemOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}
