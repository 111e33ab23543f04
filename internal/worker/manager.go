package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/notifications"
	"inkwell/internal/records"
	"inkwell/internal/stage"
	"inkwell/internal/storage"
	"inkwell/internal/workqueue"
)

// Manager coordinates the per-tier consumer lanes.
type Manager struct {
	cfg      *config.Config
	store    *records.Store
	queue    *workqueue.Store
	objects  storage.ObjectStore
	logger   *slog.Logger
	notifier notifications.Service

	pollInterval  time.Duration
	errorInterval time.Duration
	leaseFor      time.Duration
	retryDelay    time.Duration

	heartbeat *HeartbeatMonitor

	lanes     map[records.Tier]*laneState
	laneOrder []records.Tier

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastDoc  *records.Document
}

// NewManager constructs a worker manager over the two stores and object
// storage.
func NewManager(cfg *config.Config, store *records.Store, queue *workqueue.Store, objects storage.ObjectStore, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, queue, objects, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a worker manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *records.Store, queue *workqueue.Store, objects storage.ObjectStore, logger *slog.Logger, notifier notifications.Service) *Manager {
	leaseFor := time.Duration(cfg.Dispatch.LeaseSeconds) * time.Second
	return &Manager{
		cfg:           cfg,
		store:         store,
		queue:         queue,
		objects:       objects,
		logger:        logger,
		notifier:      notifier,
		pollInterval:  time.Duration(cfg.Workers.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workers.ErrorRetryInterval) * time.Second,
		leaseFor:      leaseFor,
		retryDelay:    time.Duration(cfg.Dispatch.RetryDelaySeconds) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			queue,
			logger,
			time.Duration(cfg.Workers.HeartbeatInterval)*time.Second,
			leaseFor,
		),
		lanes: make(map[records.Tier]*laneState),
	}
}

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
// The fast tier runs Recognize alone; the heavy tier runs the four-step
// pipeline in order. Nil handlers leave their lane unconfigured.
type StageSet struct {
	Recognize stage.Handler
	OCR       stage.Handler
	Quality   stage.Handler
	Refine    stage.Handler
	Archive   stage.Handler
}

// pipelineStage pairs a handler with the in-flight status the record holds
// while that handler runs.
type pipelineStage struct {
	name    string
	handler stage.Handler
	status  records.Status
}

type laneState struct {
	tier   records.Tier
	name   string
	stages []pipelineStage
	logger *slog.Logger
}

// ConfigureStages registers the concrete handlers and builds the two lanes.
func (m *Manager) ConfigureStages(set StageSet) {
	fast := &laneState{tier: records.TierFast, name: "fast"}
	if set.Recognize != nil {
		fast.stages = append(fast.stages, pipelineStage{
			name:    "recognize",
			handler: set.Recognize,
			status:  records.StatusProcessing,
		})
	}

	heavy := &laneState{tier: records.TierHeavy, name: "heavy"}
	if set.OCR != nil {
		heavy.stages = append(heavy.stages, pipelineStage{
			name:    "ocr",
			handler: set.OCR,
			status:  records.StatusProcessingOCR,
		})
	}
	if set.Quality != nil {
		heavy.stages = append(heavy.stages, pipelineStage{
			name:    "quality",
			handler: set.Quality,
			status:  records.StatusAssessingQuality,
		})
	}
	if set.Refine != nil {
		heavy.stages = append(heavy.stages, pipelineStage{
			name:    "refine",
			handler: set.Refine,
			status:  records.StatusRefiningText,
		})
	}
	if set.Archive != nil {
		heavy.stages = append(heavy.stages, pipelineStage{
			name:    "archive",
			handler: set.Archive,
			status:  records.StatusSavingResults,
		})
	}

	lanes := make(map[records.Tier]*laneState)
	order := make([]records.Tier, 0, 2)
	if len(fast.stages) > 0 {
		lanes[fast.tier] = fast
		order = append(order, fast.tier)
	}
	if len(heavy.stages) > 0 {
		lanes[heavy.tier] = heavy
		order = append(order, heavy.tier)
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}

func (m *Manager) laneLogger(lane *laneState) *slog.Logger {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	return logging.NewComponentLogger(base, "worker").With(
		logging.String(logging.FieldLane, lane.name),
	)
}
