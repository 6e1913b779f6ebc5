// Package rendering implements the final pipeline stage that assembles slide
// images and narration clips into the finished video.
package rendering

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
	"lectern/internal/services/remotion"
	"lectern/internal/stage"
	"lectern/internal/timeline"
)

// VideoRenderer submits a composition to the render service.
type VideoRenderer interface {
	Render(ctx context.Context, request remotion.RenderRequest) (*remotion.RenderResult, error)
	HealthCheck(ctx context.Context) error
}

// Renderer assembles the final video from the stored timeline and per-segment
// assets.
type Renderer struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	artifacts *artifacts.Store
	renderer  VideoRenderer
}

// NewRenderer constructs the rendering stage handler using default dependencies.
func NewRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Renderer {
	client := remotion.NewClient(remotion.Config{
		BaseURL:        cfg.Render.BaseURL,
		TimeoutSeconds: cfg.Render.TimeoutSeconds,
		FPS:            cfg.Render.FPS,
		Width:          cfg.Render.Width,
		Height:         cfg.Render.Height,
	})
	return NewRendererWithDependencies(cfg, store, logger, artifacts.NewStore(cfg), client)
}

// NewRendererWithDependencies allows injecting collaborators (used in tests).
func NewRendererWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, artifactStore *artifacts.Store, renderer VideoRenderer) *Renderer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "rendering"))
	}
	return &Renderer{store: store, cfg: cfg, logger: stageLogger, artifacts: artifactStore, renderer: renderer}
}

// SetLogger swaps the stage logger, used to bind job-scoped loggers.
func (r *Renderer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.logger = logger.With(logging.String("component", "rendering"))
}

func (r *Renderer) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	job.InitProgress("Preparing video render")
	logger.Info(
		"starting render preparation",
		logging.String("timeline_path", strings.TrimSpace(job.TimelinePath)),
		logging.String("images_dir", strings.TrimSpace(job.ImagesDir)),
		logging.String("audio_dir", strings.TrimSpace(job.AudioDir)),
	)
	return nil
}

func (r *Renderer) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, r.logger)
	tl, err := stage.LoadTimeline(r.artifacts, "render", job)
	if err != nil {
		return err
	}

	r.updateProgress(ctx, job, "Checking render assets", 5)
	if err := r.checkAssets(job, tl); err != nil {
		return err
	}
	if _, err := r.artifacts.EnsureVideoDir(job.ID); err != nil {
		return services.Wrap(services.ErrTransient, "render", "prepare directory", "Failed to create videos directory", err)
	}
	outputPath := r.artifacts.VideoPath(job.ID)

	request := remotion.RenderRequest{
		JobID:                job.ID,
		OutputPath:           outputPath,
		Title:                tl.Title,
		TotalDurationSeconds: tl.TotalDurationSeconds,
		Segments:             r.renderSegments(job.ID, tl),
	}

	r.updateProgress(ctx, job, "Rendering video (this can take several minutes)", 15)
	result, err := r.renderer.Render(ctx, request)
	if err != nil {
		return services.Wrap(
			serviceMarker(err),
			"render",
			"render video",
			"Video render failed",
			err,
		)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return services.Wrap(
			services.ErrExternalService,
			"render",
			"verify output",
			"Render service reported success but produced no video file",
			err,
		)
	}

	duration := result.DurationSeconds
	if duration <= 0 {
		duration = tl.TotalDurationSeconds
	}
	job.VideoPath = outputPath
	job.VideoDurationSeconds = duration

	job.SetProgress(fmt.Sprintf("Rendered %.0f second video", duration), 100)
	logger.Info(
		"render completed",
		logging.String("video_path", outputPath),
		logging.Float64("video_duration_seconds", duration),
		logging.Float64("render_time_seconds", result.RenderTimeSeconds),
		logging.Int64("output_size_bytes", result.OutputSizeBytes),
	)
	return nil
}

// checkAssets verifies every segment has both its slide image and narration
// clip before the render is submitted.
func (r *Renderer) checkAssets(job *queue.Job, tl *timeline.Timeline) error {
	if strings.TrimSpace(job.ImagesDir) == "" {
		return services.Wrap(services.ErrValidation, "render", "check assets",
			"No slide images recorded for this job; image generation must run first", nil)
	}
	if strings.TrimSpace(job.AudioDir) == "" {
		return services.Wrap(services.ErrValidation, "render", "check assets",
			"No narration recorded for this job; narration synthesis must run first", nil)
	}
	for i := range tl.Segments {
		if _, err := os.Stat(r.artifacts.ImagePath(job.ID, i)); err != nil {
			return services.Wrap(services.ErrValidation, "render", "check assets",
				fmt.Sprintf("Missing slide image for segment %d", i+1), err)
		}
		if _, err := os.Stat(r.artifacts.AudioPath(job.ID, i)); err != nil {
			return services.Wrap(services.ErrValidation, "render", "check assets",
				fmt.Sprintf("Missing narration clip for segment %d", i+1), err)
		}
	}
	return nil
}

func (r *Renderer) renderSegments(jobID string, tl *timeline.Timeline) []remotion.Segment {
	segments := make([]remotion.Segment, len(tl.Segments))
	for i, seg := range tl.Segments {
		segments[i] = remotion.Segment{
			SegmentID:        seg.SegmentID,
			StartTimeSeconds: seg.StartTimeSeconds,
			DurationSeconds:  seg.DurationSeconds,
			Slide: remotion.Slide{
				Title:        seg.Slide.Title,
				Bullets:      seg.Slide.Bullets,
				VisualPrompt: seg.Slide.VisualPrompt,
			},
			NarrationText: seg.NarrationText,
			AudioPath:     remotion.FileURL(r.artifacts.AudioPath(jobID, i)),
			ImagePath:     remotion.FileURL(r.artifacts.ImagePath(jobID, i)),
		}
	}
	return segments
}

// HealthCheck pings the render service; it runs on the same host and answers
// in bounded time, so readiness includes a live probe.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	const name = "render"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if r.renderer == nil {
		return stage.Unhealthy(name, "render client unavailable")
	}
	if r.artifacts == nil {
		return stage.Unhealthy(name, "artifact store unavailable")
	}
	if err := r.renderer.HealthCheck(ctx); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("render service unreachable: %v", err))
	}
	return stage.Healthy(name)
}

func (r *Renderer) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(message, percent)
	if r.store == nil {
		return
	}
	if err := r.store.SetProgress(ctx, job.ID, message, percent); err != nil {
		logging.WithContext(ctx, r.logger).Warn("failed to persist render progress", logging.Error(err))
	}
}

// serviceMarker classifies a render failure. Transport problems and upstream
// outages are transient; a failed composition will fail the same way again.
func serviceMarker(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.ErrTimeout
	}
	var failure *remotion.RenderFailure
	if errors.As(err, &failure) {
		return services.ErrExternalService
	}
	var statusErr *remotion.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
		return services.ErrExternalService
	}
	return services.ErrTransient
}
