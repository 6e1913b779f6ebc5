// Package narration implements the pipeline stage that synthesizes one
// narration clip per timeline segment.
package narration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"log/slog"

	"lectern/internal/artifacts"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/media/audio"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/services/googletts"
	"lectern/internal/stage"
	"lectern/internal/timeline"
)

// overrunToleranceSeconds absorbs codec frame padding when comparing measured
// clip length against the segment budget. Timeline durations stay
// authoritative; only clearly overlong narration is rejected.
const overrunToleranceSeconds = 0.5

// SpeechSource synthesizes narration audio from text.
type SpeechSource interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Narrator synthesizes narration for every segment of the stored timeline.
type Narrator struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	artifacts *artifacts.Store
	source    SpeechSource
	sampler   *logging.ProgressSampler
}

// NewNarrator constructs the narration stage handler using default dependencies.
func NewNarrator(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Narrator {
	client := googletts.NewClient(googletts.Config{
		APIKey:         cfg.TTS.APIKey,
		BaseURL:        cfg.TTS.BaseURL,
		Voice:          cfg.TTS.Voice,
		LanguageCode:   cfg.TTS.LanguageCode,
		SpeakingRate:   cfg.TTS.SpeakingRate,
		TimeoutSeconds: cfg.TTS.TimeoutSeconds,
	})
	return NewNarratorWithDependencies(cfg, store, logger, artifacts.NewStore(cfg), client)
}

// NewNarratorWithDependencies allows injecting collaborators (used in tests).
func NewNarratorWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, artifactStore *artifacts.Store, source SpeechSource) *Narrator {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "narration"))
	}
	return &Narrator{
		store:     store,
		cfg:       cfg,
		logger:    stageLogger,
		artifacts: artifactStore,
		source:    source,
		sampler:   logging.NewProgressSampler(0),
	}
}

// SetLogger swaps the stage logger, used to bind job-scoped loggers.
func (n *Narrator) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	n.logger = logger.With(logging.String("component", "narration"))
}

func (n *Narrator) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, n.logger)
	n.sampler.Reset()
	job.InitProgress("Preparing narration synthesis")
	logger.Info(
		"starting narration preparation",
		logging.String("timeline_path", strings.TrimSpace(job.TimelinePath)),
		logging.Int("slide_count", job.SlideCount),
	)
	return nil
}

func (n *Narrator) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, n.logger)
	tl, err := stage.LoadTimeline(n.artifacts, "tts", job)
	if err != nil {
		return err
	}
	audioDir, err := n.artifacts.EnsureAudioDir(job.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tts", "prepare directory", "Failed to create audio directory", err)
	}

	total := len(tl.Segments)
	var narratedSeconds float64
	for i := range tl.Segments {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrTransient, "tts", "synthesize narration", "Narration interrupted", err)
		}
		seg := tl.Segments[i]
		n.updateProgress(ctx, job, fmt.Sprintf("Synthesizing narration %d of %d", i+1, total), 100*float64(i)/float64(total))

		clip, err := n.source.Synthesize(ctx, seg.NarrationText)
		if err != nil {
			return services.Wrap(
				serviceMarker(err),
				"tts",
				"synthesize narration",
				fmt.Sprintf("Narration synthesis failed for segment %d", i+1),
				err,
			)
		}
		clipPath := n.artifacts.AudioPath(job.ID, i)
		if err := os.WriteFile(clipPath, clip, 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "tts", "store narration",
				fmt.Sprintf("Failed to write narration clip for segment %d", i+1), err)
		}

		seconds, err := audio.FileDuration(clipPath)
		if err != nil {
			logger.Warn(
				"could not measure narration clip",
				logging.String("clip", clipPath),
				logging.Error(err),
			)
			continue
		}
		narratedSeconds += seconds
		if overrun := seconds - seg.DurationSeconds; overrun > overrunToleranceSeconds {
			return services.Wrap(
				services.ErrValidation,
				"tts",
				"check segment fit",
				fmt.Sprintf("Narration for segment %d runs %.1fs but the segment allows %.1fs; shorten the narration by regenerating the timeline",
					i+1, seconds, seg.DurationSeconds),
				nil,
			)
		}
		logSegmentFit(logger, seg, seconds)
	}

	job.AudioDir = audioDir
	job.SetProgress(fmt.Sprintf("Narrated %d segments (%.0f seconds of audio)", total, narratedSeconds), 100)
	logger.Info(
		"narration completed",
		logging.String("audio_dir", audioDir),
		logging.Int("segments", total),
		logging.Float64("narrated_seconds", narratedSeconds),
	)
	return nil
}

// HealthCheck verifies narration prerequisites without touching the API.
func (n *Narrator) HealthCheck(ctx context.Context) stage.Health {
	const name = "tts"
	if n.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(n.cfg.TTS.APIKey) == "" {
		return stage.Unhealthy(name, "tts api key not configured")
	}
	if n.source == nil {
		return stage.Unhealthy(name, "speech source unavailable")
	}
	if n.artifacts == nil {
		return stage.Unhealthy(name, "artifact store unavailable")
	}
	return stage.Healthy(name)
}

func (n *Narrator) updateProgress(ctx context.Context, job *queue.Job, message string, percent float64) {
	job.SetProgress(message, percent)
	if n.sampler.ShouldLog(percent, "tts") {
		logging.WithContext(ctx, n.logger).Info(
			"narration progress",
			logging.String("progress_message", message),
			logging.Float64("progress_percent", percent),
		)
	}
	if n.store == nil {
		return
	}
	if err := n.store.SetProgress(ctx, job.ID, message, percent); err != nil {
		logging.WithContext(ctx, n.logger).Warn("failed to persist narration progress", logging.Error(err))
	}
}

// logSegmentFit records how much of the segment budget the clip uses. Clips
// are expected to land under budget; the renderer holds the slide for the
// remainder.
func logSegmentFit(logger *slog.Logger, seg timeline.Segment, measuredSeconds float64) {
	logger.Debug(
		"narration clip measured",
		logging.String("segment_id", seg.SegmentID),
		logging.Float64("clip_seconds", measuredSeconds),
		logging.Float64("segment_seconds", seg.DurationSeconds),
	)
}

// serviceMarker classifies a synthesis failure. Rate limits and upstream
// outages are transient; other API rejections are permanent.
func serviceMarker(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.ErrTimeout
	}
	var statusErr *googletts.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return services.ErrTransient
		default:
			return services.ErrExternalService
		}
	}
	return services.ErrTransient
}
