package worker

import (
	"context"

	"inkwell/internal/logging"
	"inkwell/internal/records"
	"inkwell/internal/stage"
	"inkwell/internal/workqueue"
)

// StatusSummary represents lightweight worker diagnostics.
type StatusSummary struct {
	Running      bool
	LastError    string
	LastDocument *records.Document
	Records      records.StoreStats
	Queue        workqueue.Stats
	StageHealth  map[string]stage.Health
}

// Status returns the latest worker information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastDoc := m.lastDoc
	stageSet := make([]pipelineStage, 0)
	for _, tier := range m.laneOrder {
		lane := m.lanes[tier]
		if lane == nil {
			continue
		}
		stageSet = append(stageSet, lane.stages...)
	}
	m.mu.RUnlock()

	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	recordStats, err := m.store.Stats(ctx)
	if err != nil {
		logger.Warn("failed to read record stats", logging.Error(err))
	}
	queueStats, err := m.queue.Stats(ctx)
	if err != nil {
		logger.Warn("failed to read queue stats", logging.Error(err))
	}

	health := make(map[string]stage.Health, len(stageSet))
	for _, stg := range stageSet {
		if stg.handler == nil {
			continue
		}
		health[stg.name] = stg.handler.HealthCheck(ctx)
	}

	summary := StatusSummary{
		Running:     running,
		Records:     recordStats,
		Queue:       queueStats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastDoc != nil {
		copy := *lastDoc
		summary.LastDocument = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastDocument(doc *records.Document) {
	m.mu.Lock()
	if doc != nil {
		copy := *doc
		m.lastDoc = &copy
	} else {
		m.lastDoc = nil
	}
	m.mu.Unlock()
}
