// Package generation implements the pipeline stage that turns extracted
// document text into a validated lesson timeline.
package generation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"log/slog"

	"lectern/internal/artifacts"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/services/gemini"
	"lectern/internal/stage"
	"lectern/internal/timeline"
)

// TimelineSource produces timeline JSON from extracted document text.
type TimelineSource interface {
	GenerateTimeline(ctx context.Context, filename, documentText string) ([]byte, error)
}

// Generator drives the content model and persists the validated timeline.
type Generator struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	artifacts *artifacts.Store
	source    TimelineSource
}

// NewGenerator constructs the generation stage handler using default dependencies.
func NewGenerator(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Generator {
	client := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		ImageModel:     cfg.Gemini.ImageModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
		MaxConcurrent:  cfg.Gemini.MaxConcurrentRequests,
	})
	return NewGeneratorWithDependencies(cfg, store, logger, artifacts.NewStore(cfg), client)
}

// NewGeneratorWithDependencies allows injecting collaborators (used in tests).
func NewGeneratorWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, artifactStore *artifacts.Store, source TimelineSource) *Generator {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "generation"))
	}
	return &Generator{store: store, cfg: cfg, logger: stageLogger, artifacts: artifactStore, source: source}
}

// SetLogger swaps the stage logger, used to bind job-scoped loggers.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	g.logger = logger.With(logging.String("component", "generation"))
}

func (g *Generator) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, g.logger)
	job.InitProgress("Preparing timeline generation")
	logger.Info(
		"starting generation preparation",
		logging.String("original_filename", strings.TrimSpace(job.OriginalFilename)),
		logging.String("text_path", strings.TrimSpace(job.TextPath)),
	)
	return nil
}

func (g *Generator) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, g.logger)
	if strings.TrimSpace(job.TextPath) == "" {
		return services.Wrap(
			services.ErrValidation,
			"generate",
			"validate inputs",
			"No extracted text recorded for this job; extraction must run first",
			nil,
		)
	}
	data, err := os.ReadFile(job.TextPath)
	if err != nil {
		return services.Wrap(
			services.ErrValidation,
			"generate",
			"read extracted text",
			"Extracted text is no longer on disk; submit the document again",
			err,
		)
	}
	documentText := string(data)

	g.updateProgress(ctx, job, "Generating lesson timeline", 15)
	raw, err := g.source.GenerateTimeline(ctx, job.OriginalFilename, documentText)
	if err != nil {
		return services.Wrap(
			serviceMarker(err),
			"generate",
			"generate timeline",
			"Timeline generation request failed",
			err,
		)
	}

	g.updateProgress(ctx, job, "Validating timeline", 70)
	tl, warnings, err := timeline.Evaluate(raw)
	for _, warning := range warnings {
		logger.Warn("timeline quality warning", logging.String("detail", warning))
	}
	if err != nil {
		return services.Wrap(
			services.ErrValidation,
			"generate",
			"validate timeline",
			"Generated timeline failed validation; resubmit the document to regenerate",
			err,
		)
	}

	canonical, err := tl.Marshal()
	if err != nil {
		return services.Wrap(services.ErrTransient, "generate", "encode timeline", "Failed to encode validated timeline", err)
	}
	timelinePath, err := g.artifacts.WriteTimeline(job.ID, canonical)
	if err != nil {
		return services.Wrap(services.ErrTransient, "generate", "store timeline", "Failed to write timeline", err)
	}
	job.TimelinePath = timelinePath
	job.SlideCount = len(tl.Segments)

	job.SetProgress(fmt.Sprintf("Generated %d segments covering %.0f seconds", len(tl.Segments), tl.TotalDurationSeconds), 100)
	logger.Info(
		"generation completed",
		logging.String("timeline_path", timelinePath),
		logging.Int("segments", len(tl.Segments)),
		logging.Float64("total_duration_seconds", tl.TotalDurationSeconds),
		logging.String("title", strings.TrimSpace(tl.Title)),
	)
	return nil
}

// HealthCheck verifies generation prerequisites without touching the API.
func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	const name = "generate"
	if g.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(g.cfg.Gemini.APIKey) == "" {
		return stage.Unhealthy(name, "gemini api key not configured")
	}
	if g.source == nil {
		return stage.Unhealthy(name, "timeline source unavailable")
	}
	if g.artifacts == nil {
		return stage.Unhealthy(name, "artifact store unavailable")
	}
	return stage.Healthy(name)
}

func (g *Generator) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(message, percent)
	if g.store == nil {
		return
	}
	if err := g.store.SetProgress(ctx, job.ID, message, percent); err != nil {
		logging.WithContext(ctx, g.logger).Warn("failed to persist generation progress", logging.Error(err))
	}
}

// serviceMarker classifies a model request failure. Statuses the client would
// retry are transient; anything else is a permanent collaborator failure.
func serviceMarker(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.ErrTimeout
	}
	var statusErr *gemini.StatusError
	if errors.As(err, &statusErr) && !gemini.RetryableStatus(statusErr.StatusCode) {
		return services.ErrExternalService
	}
	return services.ErrTransient
}
