package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDaemonStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "daemon", "status")
	if err != nil {
		t.Fatalf("daemon status failed: %v\n%s", err, out)
	}
	requireContains(t, out, "Daemon is not running")

	env.startDaemon(t)

	out, err = runCLI(t, env, "daemon", "status")
	if err != nil {
		t.Fatalf("daemon status failed: %v\n%s", err, out)
	}
	requireContains(t, out, "Daemon running")

	out, err = runCLI(t, env, "daemon", "status", "--json")
	if err != nil {
		t.Fatalf("daemon status --json failed: %v\n%s", err, out)
	}
	var payload struct {
		Running bool `json:"running"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode daemon status output: %v\n%s", err, out)
	}
	if !payload.Running {
		t.Fatalf("expected running daemon in JSON payload:\n%s", out)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.startDaemon(t)

	out, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status failed: %v\n%s", err, out)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "== Queue ==")
	requireContains(t, out, "Queue is empty")
}

func TestLogsCommandTail(t *testing.T) {
	env := setupCLITestEnv(t)

	appendLine(t, env.logPath, "alpha")
	appendLine(t, env.logPath, "beta")
	appendLine(t, env.logPath, "gamma")

	out, err := runCLI(t, env, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs failed: %v\n%s", err, out)
	}
	requireContains(t, out, "beta")
	requireContains(t, out, "gamma")
	if strings.Contains(out, "alpha") {
		t.Fatalf("expected only the last two lines, got:\n%s", out)
	}
}

func TestLogsCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "logs")
	if err != nil {
		t.Fatalf("logs failed: %v\n%s", err, out)
	}
	requireContains(t, out, "No log entries available")
}

func TestLogsCommandFollow(t *testing.T) {
	env := setupCLITestEnv(t)

	appendLine(t, env.logPath, "first")

	followCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	buf := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- executeCLI(followCtx, buf, env, "logs", "--follow", "-n", "1")
	}()

	waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(buf.String(), "first")
	}, "initial log line never streamed")

	appendLine(t, env.logPath, "second")
	waitFor(t, 5*time.Second, func() bool {
		return strings.Contains(buf.String(), "second")
	}, "appended log line never streamed")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow command returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("follow command did not exit after cancel")
	}
}
