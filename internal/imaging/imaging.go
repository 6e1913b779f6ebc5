// Package imaging implements the pipeline stage that renders one slide image
// per timeline segment.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"log/slog"

	"lectern/internal/artifacts"
	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/services/gemini"
	"lectern/internal/stage"
)

// ImageSource produces slide background images from slide content.
type ImageSource interface {
	GenerateImage(ctx context.Context, slideTitle, visualPrompt string) (*gemini.GeneratedImage, error)
}

// Imager generates slide images for every segment of the stored timeline.
// Image generation failures never fail the stage: affected segments fall back
// to a neutral placeholder so narration and rendering can proceed.
type Imager struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	artifacts *artifacts.Store
	source    ImageSource
	sampler   *logging.ProgressSampler
}

// NewImager constructs the imaging stage handler using default dependencies.
func NewImager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Imager {
	client := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		ImageModel:     cfg.Gemini.ImageModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
		MaxConcurrent:  cfg.Gemini.MaxConcurrentRequests,
	})
	return NewImagerWithDependencies(cfg, store, logger, artifacts.NewStore(cfg), client)
}

// NewImagerWithDependencies allows injecting collaborators (used in tests).
func NewImagerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, artifactStore *artifacts.Store, source ImageSource) *Imager {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "imaging"))
	}
	return &Imager{
		store:     store,
		cfg:       cfg,
		logger:    stageLogger,
		artifacts: artifactStore,
		source:    source,
		sampler:   logging.NewProgressSampler(0),
	}
}

// SetLogger swaps the stage logger, used to bind job-scoped loggers.
func (m *Imager) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	m.logger = logger.With(logging.String("component", "imaging"))
}

func (m *Imager) Prepare(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, m.logger)
	m.sampler.Reset()
	job.InitProgress("Preparing slide image generation")
	logger.Info(
		"starting imaging preparation",
		logging.String("timeline_path", strings.TrimSpace(job.TimelinePath)),
		logging.Int("slide_count", job.SlideCount),
	)
	return nil
}

func (m *Imager) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, m.logger)
	tl, err := stage.LoadTimeline(m.artifacts, "images", job)
	if err != nil {
		return err
	}
	imagesDir, err := m.artifacts.EnsureImagesDir(job.ID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "images", "prepare directory", "Failed to create images directory", err)
	}

	total := len(tl.Segments)
	m.persistProgress(ctx, job.ID, fmt.Sprintf("Generating %d slide images", total), 5)

	type result struct {
		placeholder bool
		err         error
	}
	results := make([]result, total)
	var done atomic.Int64
	var wg sync.WaitGroup
	for i := range tl.Segments {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			seg := tl.Segments[index]
			data, usedPlaceholder, genErr := m.segmentImage(ctx, seg.Slide.Title, seg.Slide.VisualPrompt)
			if genErr == nil {
				genErr = os.WriteFile(m.artifacts.ImagePath(job.ID, index), data, 0o644)
			}
			results[index] = result{placeholder: usedPlaceholder, err: genErr}
			completed := done.Add(1)
			percent := 5 + 90*float64(completed)/float64(total)
			m.persistProgress(ctx, job.ID, fmt.Sprintf("Generated slide image %d of %d", completed, total), percent)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrTransient, "images", "generate images", "Image generation interrupted", err)
	}
	placeholders := 0
	for index, res := range results {
		if res.err != nil {
			return services.Wrap(services.ErrTransient, "images", "store image",
				fmt.Sprintf("Failed to write slide image for segment %d", index+1), res.err)
		}
		if res.placeholder {
			placeholders++
			logger.Warn("slide image fell back to placeholder", logging.Int("segment", index+1))
		}
	}

	job.ImagesDir = imagesDir
	message := fmt.Sprintf("Generated %d slide images", total)
	if placeholders > 0 {
		message = fmt.Sprintf("Generated %d slide images (%d placeholders)", total, placeholders)
	}
	job.SetProgress(message, 100)
	logger.Info(
		"imaging completed",
		logging.String("images_dir", imagesDir),
		logging.Int("segments", total),
		logging.Int("placeholders", placeholders),
	)
	return nil
}

// segmentImage returns the image bytes for one slide, falling back to the
// placeholder when the model fails or returns no usable image.
func (m *Imager) segmentImage(ctx context.Context, slideTitle, visualPrompt string) ([]byte, bool, error) {
	generated, err := m.source.GenerateImage(ctx, slideTitle, visualPrompt)
	if err == nil && generated != nil && len(generated.Data) > 0 {
		return generated.Data, false, nil
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	if err != nil {
		logging.WithContext(ctx, m.logger).Warn(
			"slide image generation failed",
			logging.String("slide_title", strings.TrimSpace(slideTitle)),
			logging.Error(err),
		)
	}
	return placeholderPNG(), true, nil
}

// HealthCheck verifies imaging prerequisites without touching the API.
func (m *Imager) HealthCheck(ctx context.Context) stage.Health {
	const name = "images"
	if m.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(m.cfg.Gemini.APIKey) == "" {
		return stage.Unhealthy(name, "gemini api key not configured")
	}
	if m.source == nil {
		return stage.Unhealthy(name, "image source unavailable")
	}
	if m.artifacts == nil {
		return stage.Unhealthy(name, "artifact store unavailable")
	}
	return stage.Healthy(name)
}

func (m *Imager) persistProgress(ctx context.Context, jobID, message string, percent float64) {
	if m.sampler.ShouldLog(percent, "images") {
		logging.WithContext(ctx, m.logger).Info(
			"imaging progress",
			logging.String("progress_message", message),
			logging.Float64("progress_percent", percent),
		)
	}
	if m.store == nil {
		return
	}
	if err := m.store.SetProgress(ctx, jobID, message, percent); err != nil {
		logging.WithContext(ctx, m.logger).Warn("failed to persist imaging progress", logging.Error(err))
	}
}

var (
	placeholderOnce  sync.Once
	placeholderBytes []byte
)

// placeholderPNG returns a single gray pixel PNG used when image generation
// fails. The renderer scales it to fill the slide background.
func placeholderPNG() []byte {
	placeholderOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff})
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return
		}
		placeholderBytes = buf.Bytes()
	})
	return placeholderBytes
}
