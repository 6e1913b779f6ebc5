package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"lectern/internal/artifacts"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/metrics"
	"lectern/internal/notifications"
	"lectern/internal/preflight"
	"lectern/internal/queue"
	"lectern/internal/services/remotion"
	"lectern/internal/workflow"
)

// Daemon coordinates background processing and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	workflow  *workflow.Manager
	artifacts *artifacts.Store
	renderer  preflight.RenderHealthChecker
	collector *metrics.Collector
	logPath   string

	lockPath string
	lock     *flock.Flock

	api     *apiServer
	watcher *inboxWatcher

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	mu     sync.Mutex
	checks []preflight.Result
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	LogPath      string
	Preflight    []preflight.Result
}

// New constructs a daemon with initialized dependencies. logPath points at the
// current run's log file so the API and IPC layers can tail it.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}
	if strings.TrimSpace(logPath) == "" {
		logPath = filepath.Join(cfg.Paths.LogDir, "lectern.log")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "lecternd.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		workflow:  wf,
		artifacts: artifacts.NewStore(cfg),
		renderer: remotion.NewClient(remotion.Config{
			BaseURL:        cfg.Render.BaseURL,
			TimeoutSeconds: cfg.Render.TimeoutSeconds,
		}),
		logPath:  logPath,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// SetMetrics attaches the Prometheus collector served at /metrics. Call before
// Start.
func (d *Daemon) SetMetrics(collector *metrics.Collector) {
	d.collector = collector
}

// Start acquires the daemon lock, runs preflight checks, and launches the
// workflow manager plus the HTTP API and inbox watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lectern daemon instance is already running")
	}

	// Jobs left in processing by a crashed run go back to pending before any
	// worker starts, so artifact-driven resume picks them up.
	if released, resetErr := d.store.ResetStuckProcessing(ctx); resetErr != nil {
		d.logger.Warn("failed to reset stuck jobs", logging.Error(resetErr))
	} else if released > 0 {
		d.logger.Info("reset stuck jobs from previous run",
			logging.Int64("job_count", released),
			logging.String(logging.FieldEventType, "jobs_reset"))
	}

	checks := preflight.RunAll(ctx, d.cfg, d.store, d.renderer)
	d.mu.Lock()
	d.checks = checks
	d.mu.Unlock()
	logPreflight(d.logger, checks)
	if !preflight.AllRequiredPassed(checks) {
		_ = d.lock.Unlock()
		return errors.New("preflight checks failed; see log for details")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.api = newAPIServer(d.cfg, d, d.logger)
	if err := d.api.start(d.ctx); err != nil {
		d.logger.Warn("api server unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_start_failed"),
			logging.String(logging.FieldErrorHint, "check api.bind for an address conflict"))
		d.api = nil
	}

	d.watcher = newInboxWatcher(d.cfg, d, d.logger)
	if d.watcher != nil {
		if err := d.watcher.Start(d.ctx); err != nil {
			d.logger.Warn("inbox watcher unavailable",
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_watch_failed"),
				logging.String(logging.FieldErrorHint, "check paths.inbox exists and is readable"))
			d.watcher = nil
		}
	}

	d.running.Store(true)
	d.logger.Info("lectern daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing, releases claimed jobs, and drops the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.watcher != nil {
		d.watcher.Stop()
		d.watcher = nil
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()

	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if released, err := d.store.ReleaseProcessing(releaseCtx); err != nil {
		d.logger.Warn("failed to release in-flight jobs", logging.Error(err))
	} else if released > 0 {
		d.logger.Info("released in-flight jobs for next run", logging.Int64("job_count", released))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("lectern daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddr returns the bound HTTP API address, or "" when the API is not
// listening.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	d.mu.Lock()
	checks := make([]preflight.Result, len(d.checks))
	copy(checks, d.checks)
	d.mu.Unlock()
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workflow:     summary,
		QueueDBPath:  queue.DatabasePath(d.cfg),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
		Preflight:    checks,
	}
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("job store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("job store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

func logPreflight(logger *slog.Logger, checks []preflight.Result) {
	if logger == nil {
		return
	}
	for _, check := range checks {
		attrs := []logging.Attr{
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
		}
		if check.Passed {
			logger.Debug("preflight check passed", logging.Args(attrs...)...)
			continue
		}
		if check.Optional {
			logger.Warn("optional preflight check failed", logging.Args(attrs...)...)
			continue
		}
		logger.Error("preflight check failed", logging.Args(attrs...)...)
	}
}
