package preflight

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lectern/internal/testsupport"
)

type stubRenderer struct {
	err error
}

func (s *stubRenderer) HealthCheck(context.Context) error {
	return s.err
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckAPIKey(t *testing.T) {
	if result := CheckAPIKey("Gemini API key", ""); result.Passed {
		t.Fatal("expected failure for empty key")
	}
	if result := CheckAPIKey("Gemini API key", "  "); result.Passed {
		t.Fatal("expected failure for whitespace key")
	}
	result := CheckAPIKey("Gemini API key", "real-key")
	if !result.Passed {
		t.Fatalf("expected pass for present key, got: %s", result.Detail)
	}
}

func TestCheckNotificationsOptional(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckNotifications(cfg)
	if !result.Passed || !result.Optional {
		t.Fatalf("expected disabled notifications to pass as optional, got %#v", result)
	}

	cfg.Notifications.NtfyTopic = "lectern-alerts"
	result = CheckNotifications(cfg)
	if !result.Passed || !result.Optional {
		t.Fatalf("expected configured notifications to pass, got %#v", result)
	}
}

func TestCheckDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	result := CheckDatabase(context.Background(), store)
	if !result.Passed {
		t.Fatalf("expected healthy database to pass, got: %s", result.Detail)
	}
}

func TestCheckRenderer(t *testing.T) {
	ok := CheckRenderer(context.Background(), &stubRenderer{})
	if !ok.Passed {
		t.Fatalf("expected pass for healthy renderer, got: %s", ok.Detail)
	}

	down := CheckRenderer(context.Background(), &stubRenderer{err: errors.New("connection refused")})
	if down.Passed {
		t.Fatal("expected failure for unhealthy renderer")
	}
	if down.Detail != "connection refused" {
		t.Fatalf("unexpected detail: %s", down.Detail)
	}

	timedOut := CheckRenderer(context.Background(), &stubRenderer{err: context.DeadlineExceeded})
	if timedOut.Passed || timedOut.Detail == "" {
		t.Fatalf("expected timeout failure with detail, got %#v", timedOut)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, nil, nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	results := RunAll(context.Background(), cfg, nil, nil)
	// Artifacts dir, log dir, two API keys, notifications.
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if !AllRequiredPassed(results) {
		t.Fatal("expected all required checks to pass")
	}
}

func TestRunAll_IncludesStoreAndRenderer(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInboxDir())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	results := RunAll(context.Background(), cfg, store, &stubRenderer{err: errors.New("boom")})
	names := make(map[string]Result, len(results))
	for _, r := range results {
		names[r.Name] = r
	}

	if _, ok := names["Inbox directory"]; !ok {
		t.Fatal("expected inbox directory check when configured")
	}
	if db, ok := names["Job database"]; !ok || !db.Passed {
		t.Fatalf("expected passing database check, got %#v", db)
	}
	renderer, ok := names["Remotion renderer"]
	if !ok || renderer.Passed {
		t.Fatalf("expected failing renderer check, got %#v", renderer)
	}
	if AllRequiredPassed(results) {
		t.Fatal("expected renderer failure to fail the required set")
	}
}
