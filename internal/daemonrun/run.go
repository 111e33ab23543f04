package daemonrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/daemon"
	"inkwell/internal/dispatch"
	"inkwell/internal/editor"
	"inkwell/internal/intake"
	"inkwell/internal/logging"
	"inkwell/internal/notifications"
	"inkwell/internal/reconcile"
	"inkwell/internal/records"
	"inkwell/internal/recycle"
	"inkwell/internal/storage"
	"inkwell/internal/worker"
	"inkwell/internal/workqueue"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the inkwell daemon runtime loop and blocks until the process
// receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("inkwell-%s.log", runID))

	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update inkwell.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "inkwell-*.log", Exclude: []string{logPath}},
	)

	pidPath := PIDFilePath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := records.Open(cfg)
	if err != nil {
		logger.Error("open records store", logging.Error(err))
		return err
	}
	defer store.Close()

	queue, err := workqueue.Open(cfg)
	if err != nil {
		logger.Error("open work queue store", logging.Error(err))
		return err
	}
	defer queue.Close()

	objects, err := storage.NewS3(signalCtx, cfg.Storage)
	if err != nil {
		logger.Error("init object storage", logging.Error(err))
		return err
	}

	notifier := notifications.NewService(cfg)
	dispatcher := dispatch.New(cfg, store, queue, logger)
	recycler := recycle.NewManager(cfg, store, logger)

	workerManager := worker.NewManagerWithNotifier(cfg, store, queue, objects, logger, notifier)
	workerManager.ConfigureStages(worker.NewStageSet(cfg, objects, logger))

	d, err := daemon.New(cfg, daemon.Components{
		Store:      store,
		Queue:      queue,
		Router:     intake.NewRouter(cfg, store, objects, logger),
		Dispatcher: dispatcher,
		Editor:     editor.New(store, logger),
		Recycler:   recycler,
		Worker:     workerManager,
		Reconciler: reconcile.NewWithNotifier(cfg, store, dispatcher, recycler, logger, notifier),
		Notifier:   notifier,
	}, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check configuration and database access"),
		)
		return err
	}
	logger.Info("api listening", logging.String("addr", d.APIAddr()))

	<-signalCtx.Done()
	logger.Info("inkwell daemon shutting down")
	return nil
}

// PIDFilePath returns where the running daemon records its process id.
func PIDFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "inkwell.pid")
}

// ensureCurrentLogPointer keeps LogDir/inkwell.log pointing at the latest run
// log. Symlinks are preferred; hard links cover filesystems without them.
func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "inkwell.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
