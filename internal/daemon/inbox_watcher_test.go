package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/testsupport"
	"lectern/internal/workflow"
)

func newWatcherFixture(t *testing.T) (*inboxWatcher, *queue.Store, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithInboxDir())
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	d, err := New(cfg, store, logger, mgr, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	watcher := newInboxWatcher(cfg, d, logger)
	if watcher == nil {
		t.Fatal("expected watcher for inbox-enabled config")
	}
	watcher.settlePoll = 10 * time.Millisecond
	watcher.settleLimit = 2 * time.Second
	watcher.sweepInterval = 100 * time.Millisecond
	return watcher, store, cfg.Paths.InboxDir
}

func startWatcher(t *testing.T, watcher *inboxWatcher) {
	t.Helper()

	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("watcher.Start: %v", err)
	}
	t.Cleanup(watcher.Stop)
}

func waitFor(t *testing.T, what string, check func() bool) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for !check() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestInboxWatcherDisabledWithoutDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	d, err := New(cfg, store, logger, mgr, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if watcher := newInboxWatcher(cfg, d, logger); watcher != nil {
		t.Fatal("expected no watcher without an inbox directory")
	}
}

func TestInboxWatcherQueuesDroppedPDF(t *testing.T) {
	watcher, store, inboxDir := newWatcherFixture(t)
	startWatcher(t, watcher)

	source := filepath.Join(inboxDir, "Lesson 1.pdf")
	if err := os.WriteFile(source, []byte("%PDF-1.4 lesson"), 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}

	var jobs []*queue.Job
	waitFor(t, "dropped file to be queued", func() bool {
		var err error
		jobs, err = store.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		return len(jobs) == 1
	})
	if jobs[0].OriginalFilename != "Lesson 1.pdf" {
		t.Fatalf("unexpected filename %q", jobs[0].OriginalFilename)
	}
	if jobs[0].Status != queue.StatusPending {
		t.Fatalf("expected pending job, got %q", jobs[0].Status)
	}

	waitFor(t, "source file removal", func() bool {
		_, err := os.Stat(source)
		return os.IsNotExist(err)
	})
	if _, err := os.Stat(jobs[0].PDFPath); err != nil {
		t.Fatalf("expected staged copy at %s: %v", jobs[0].PDFPath, err)
	}
}

func TestInboxWatcherSweepsExistingFiles(t *testing.T) {
	watcher, store, inboxDir := newWatcherFixture(t)

	// Dropped while the daemon was down; only the startup sweep can see it.
	source := filepath.Join(inboxDir, "backlog.pdf")
	if err := os.WriteFile(source, []byte("%PDF-1.4 backlog"), 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}

	startWatcher(t, watcher)

	waitFor(t, "backlog file to be queued", func() bool {
		jobs, err := store.List(context.Background())
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		return len(jobs) == 1
	})
}

func TestInboxWatcherMovesRejectedFiles(t *testing.T) {
	watcher, store, inboxDir := newWatcherFixture(t)
	startWatcher(t, watcher)

	source := filepath.Join(inboxDir, "empty.pdf")
	if err := os.WriteFile(source, nil, 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}

	failedPath := filepath.Join(inboxDir, failedInboxDirName, "empty.pdf")
	waitFor(t, "rejected file to move aside", func() bool {
		_, err := os.Stat(failedPath)
		return err == nil
	})

	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs for rejected file, got %d", len(jobs))
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("expected source to be moved, stat err: %v", err)
	}
}

func TestInboxWatcherIgnoresOtherFiles(t *testing.T) {
	watcher, store, inboxDir := newWatcherFixture(t)
	startWatcher(t, watcher)

	source := filepath.Join(inboxDir, "notes.txt")
	if err := os.WriteFile(source, []byte("not a document"), 0o644); err != nil {
		t.Fatalf("write inbox file: %v", err)
	}

	// Give the watcher an event cycle plus a sweep to prove it stays quiet.
	time.Sleep(300 * time.Millisecond)

	jobs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs for non-PDF file, got %d", len(jobs))
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("expected non-PDF file to stay in place: %v", err)
	}
}
