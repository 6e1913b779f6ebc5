package preflight

import (
	"context"
	"strings"

	"lectern/internal/config"
	"lectern/internal/queue"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RenderHealthChecker is the slice of the render client preflight needs.
type RenderHealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RunAll executes the preflight checks that apply to the given configuration.
// The store and renderer are optional; the CLI passes nil for both when the
// daemon is not running and only the config-level checks make sense.
func RunAll(ctx context.Context, cfg *config.Config, store *queue.Store, renderer RenderHealthChecker) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Artifacts directory", cfg.Paths.ArtifactsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if strings.TrimSpace(cfg.Paths.InboxDir) != "" {
		results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir))
	}

	results = append(results,
		CheckAPIKey("Gemini API key", cfg.Gemini.APIKey),
		CheckAPIKey("TTS API key", cfg.TTS.APIKey),
		CheckNotifications(cfg),
	)

	if store != nil {
		results = append(results, CheckDatabase(ctx, store))
	}
	if renderer != nil {
		results = append(results, CheckRenderer(ctx, renderer))
	}
	return results
}

// AllRequiredPassed reports whether every non-optional check passed.
func AllRequiredPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed && !result.Optional {
			return false
		}
	}
	return true
}
