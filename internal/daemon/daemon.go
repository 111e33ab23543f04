package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"inkwell/internal/api"
	"inkwell/internal/config"
	"inkwell/internal/dispatch"
	"inkwell/internal/editor"
	"inkwell/internal/intake"
	"inkwell/internal/logging"
	"inkwell/internal/notifications"
	"inkwell/internal/preflight"
	"inkwell/internal/reconcile"
	"inkwell/internal/records"
	"inkwell/internal/recycle"
	"inkwell/internal/worker"
	"inkwell/internal/workqueue"
)

// Version is stamped by the build; notifications and the status API carry it.
var Version = "dev"

// Components bundles the wired subsystems the daemon coordinates.
type Components struct {
	Store      *records.Store
	Queue      *workqueue.Store
	Router     *intake.Router
	Dispatcher *dispatch.Dispatcher
	Editor     *editor.Editor
	Recycler   *recycle.Manager
	Worker     *worker.Manager
	Reconciler *reconcile.Reconciler
	Notifier   notifications.Service
}

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	comps  Components
	docs   *api.DocumentService

	lockPath  string
	lock      *flock.Flock
	apiServer *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, comps Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || comps.Store == nil || comps.Queue == nil || logger == nil {
		return nil, errors.New("daemon requires config, stores, and logger")
	}
	if comps.Worker == nil || comps.Reconciler == nil {
		return nil, errors.New("daemon requires worker and reconciler")
	}
	if comps.Notifier == nil {
		comps.Notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "inkwelld.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		comps:    comps,
		docs:     api.NewDocumentService(comps.Store, comps.Queue),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.apiServer = server
	return d, nil
}

// Start acquires the instance lock and launches the worker lanes, the
// reconciler, and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another inkwell daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.comps.Worker.Start(runCtx); err != nil {
		d.releaseLock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start worker: %w", err)
	}
	if err := d.comps.Reconciler.Start(runCtx); err != nil {
		d.comps.Worker.Stop()
		d.releaseLock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start reconciler: %w", err)
	}
	if err := d.apiServer.start(runCtx); err != nil {
		d.comps.Reconciler.Stop()
		d.comps.Worker.Stop()
		d.releaseLock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("inkwell daemon started", logging.String("lock", d.lockPath))
	if err := d.comps.Notifier.NotifyDaemonStarted(runCtx, Version); err != nil {
		d.logger.Debug("daemon start notification failed", logging.Error(err))
	}
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.apiServer.stop()
	d.comps.Reconciler.Stop()
	d.comps.Worker.Stop()
	d.releaseLock()
	d.running.Store(false)
	d.logger.Info("inkwell daemon stopped")
	if err := d.comps.Notifier.NotifyDaemonStopped(context.Background()); err != nil {
		d.logger.Debug("daemon stop notification failed", logging.Error(err))
	}
}

// Close stops the daemon. The stores are owned by the caller that opened
// them and stay open.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// APIAddr returns the bound API listener address, empty before Start.
func (d *Daemon) APIAddr() string {
	return d.apiServer.addr()
}

// Status assembles the daemon status surface served by the API.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	workerStatus := d.comps.Worker.Status(ctx)
	snapshot := d.comps.Reconciler.Snapshot()

	worker := api.WorkerStatus{
		Running:     workerStatus.Running,
		LastError:   workerStatus.LastError,
		Records:     api.FromRecordStats(workerStatus.Records),
		Queue:       api.FromQueueStats(workerStatus.Queue),
		StageHealth: api.FromStageHealth(workerStatus.StageHealth, nil),
	}
	if workerStatus.LastDocument != nil {
		doc := api.FromDocument(workerStatus.LastDocument)
		worker.LastDocument = &doc
	}

	reconciler := api.ReconcilerStatus{
		Running:   snapshot.Running,
		Scanned:   snapshot.LastSwept.Scanned,
		Requeued:  snapshot.LastSwept.Requeued,
		Failed:    snapshot.LastSwept.Failed,
		Skipped:   snapshot.LastSwept.Skipped,
		LastError: snapshot.LastError,
	}
	if !snapshot.LastSweep.IsZero() {
		reconciler.LastSweep = snapshot.LastSweep.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	return api.DaemonStatus{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		RecordsDBPath: d.comps.Store.Path(),
		QueueDBPath:   d.comps.Queue.Path(),
		LockFilePath:  d.lockPath,
		Worker:        worker,
		Reconciler:    reconciler,
	}
}

// Preflight runs the startup checks against the live configuration.
func (d *Daemon) Preflight(ctx context.Context) []preflight.Result {
	return preflight.RunAll(ctx, d.cfg)
}
