package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"lectern/internal/config"
	"lectern/internal/fileutil"
	"lectern/internal/logging"
	"lectern/internal/notifications"
)

const failedInboxDirName = "failed"

// inboxWatcher submits PDF documents dropped into the watched inbox
// directory. Successfully imported files are removed from the inbox; files
// that cannot be submitted move to the failed/ subdirectory so a bad document
// is not retried forever.
type inboxWatcher struct {
	dir      string
	logger   *slog.Logger
	daemon   *Daemon
	notifier notifications.Service

	settlePoll    time.Duration
	settleLimit   time.Duration
	sweepInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func newInboxWatcher(cfg *config.Config, d *Daemon, logger *slog.Logger) *inboxWatcher {
	if cfg == nil || d == nil {
		return nil
	}
	dir := strings.TrimSpace(cfg.Paths.InboxDir)
	if dir == "" {
		return nil
	}

	watcherLogger := logger
	if watcherLogger != nil {
		watcherLogger = watcherLogger.With(logging.String(logging.FieldComponent, "inbox-watcher"))
	}

	return &inboxWatcher{
		dir:           dir,
		logger:        watcherLogger,
		daemon:        d,
		notifier:      notifications.NewService(cfg),
		settlePoll:    200 * time.Millisecond,
		settleLimit:   30 * time.Second,
		sweepInterval: 30 * time.Second,
	}
}

func (w *inboxWatcher) Start(ctx context.Context) error {
	if w == nil {
		return errors.New("inbox watcher unavailable")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("inbox watcher already running")
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := notify.Add(w.dir); err != nil {
		_ = notify.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(runCtx, notify)

	w.log().Info("inbox watcher started",
		logging.String("inbox", w.dir),
		logging.String(logging.FieldEventType, "inbox_watch_started"))
	return nil
}

func (w *inboxWatcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *inboxWatcher) loop(ctx context.Context, notify *fsnotify.Watcher) {
	defer w.wg.Done()
	defer notify.Close()

	// Pick up anything dropped while the daemon was down.
	w.sweep(ctx)

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-notify.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if !isInboxPDF(event.Name) {
				continue
			}
			w.ingest(ctx, event.Name)
		case err, ok := <-notify.Errors:
			if !ok {
				return
			}
			w.log().Warn("inbox watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_watch_error"),
				logging.String(logging.FieldErrorHint, "check inbox directory permissions and inotify limits"))
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep catches files whose create events were missed, such as drops that
// raced the watcher registration.
func (w *inboxWatcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log().Warn("inbox sweep failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !isInboxPDF(path) {
			continue
		}
		w.ingest(ctx, path)
	}
}

func (w *inboxWatcher) ingest(ctx context.Context, path string) {
	if !w.waitForSettle(ctx, path) {
		return
	}

	job, err := w.daemon.SubmitFile(ctx, path)
	if err != nil {
		w.log().Error("inbox submission failed",
			logging.Error(err),
			logging.String("source", path),
			logging.String(logging.FieldEventType, "inbox_submit_failed"),
			logging.String(logging.FieldErrorHint, "inspect the document under the inbox failed/ directory"))
		w.moveAside(path)
		if w.notifier != nil {
			if notifyErr := w.notifier.NotifyError(ctx, err, filepath.Base(path)); notifyErr != nil {
				w.log().Warn("failed to send inbox error notification", logging.Error(notifyErr))
			}
		}
		return
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.log().Warn("failed to remove ingested inbox file",
			logging.Error(err),
			logging.String("source", path),
			logging.String(logging.FieldErrorHint, "remove the file manually so it is not submitted again"))
	}
	w.log().Info("inbox file queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source", path),
		logging.String(logging.FieldEventType, "inbox_file_queued"))
}

// waitForSettle waits for the file size to stop changing before submission; a
// drop may still be mid-copy when the create event arrives. Returns false when
// the file vanishes or never settles.
func (w *inboxWatcher) waitForSettle(ctx context.Context, path string) bool {
	deadline := time.Now().Add(w.settleLimit)
	var lastSize int64 = -1
	stable := 0
	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize {
			stable++
			if stable >= 2 {
				return true
			}
		} else {
			stable = 0
			lastSize = info.Size()
		}
		if time.Now().After(deadline) {
			w.log().Warn("inbox file never settled",
				logging.String("source", path),
				logging.String(logging.FieldErrorHint, "check whether the copy into the inbox stalled"))
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.settlePoll):
		}
	}
}

func (w *inboxWatcher) moveAside(path string) {
	target := filepath.Join(w.dir, failedInboxDirName, filepath.Base(path))
	if err := fileutil.MoveFile(path, target); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.log().Warn("failed to move rejected inbox file",
			logging.Error(err),
			logging.String("source", path))
	}
}

func (w *inboxWatcher) log() *slog.Logger {
	if w.logger == nil {
		return logging.NewNop()
	}
	return w.logger
}

func isInboxPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
