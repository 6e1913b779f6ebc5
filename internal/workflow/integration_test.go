package workflow_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"lectern/internal/artifacts"
	"lectern/internal/extraction"
	"lectern/internal/generation"
	"lectern/internal/imaging"
	"lectern/internal/logging"
	"lectern/internal/narration"
	"lectern/internal/queue"
	"lectern/internal/rendering"
	"lectern/internal/services/gemini"
	"lectern/internal/services/remotion"
	"lectern/internal/testsupport"
	"lectern/internal/workflow"
)

type fakeTimelineSource struct {
	mu    sync.Mutex
	calls int
	data  []byte
}

func (f *fakeTimelineSource) GenerateTimeline(context.Context, string, string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.data, nil
}

type fakeImageSource struct {
	mu    sync.Mutex
	calls int
	data  []byte
}

func (f *fakeImageSource) GenerateImage(context.Context, string, string) (*gemini.GeneratedImage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &gemini.GeneratedImage{MimeType: "image/png", Data: f.data}, nil
}

type fakeSpeechSource struct {
	mu    sync.Mutex
	calls int
	clip  []byte
}

func (f *fakeSpeechSource) Synthesize(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.clip, nil
}

type fakeRenderClient struct {
	mu      sync.Mutex
	calls   int
	request remotion.RenderRequest
}

func (f *fakeRenderClient) Render(_ context.Context, request remotion.RenderRequest) (*remotion.RenderResult, error) {
	f.mu.Lock()
	f.calls++
	f.request = request
	f.mu.Unlock()

	payload := []byte("rendered video bytes")
	if err := os.WriteFile(request.OutputPath, payload, 0o644); err != nil {
		return nil, err
	}
	return &remotion.RenderResult{
		DurationSeconds:   118.7,
		RenderTimeSeconds: 4.2,
		OutputSizeBytes:   int64(len(payload)),
	}, nil
}

func (f *fakeRenderClient) HealthCheck(context.Context) error { return nil }

func (f *fakeRenderClient) lastRequest() remotion.RenderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.request
}

func slidePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x40, B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode slide png: %v", err)
	}
	return buf.Bytes()
}

func lessonPDFLines() []string {
	lines := make([]string, 0, 18)
	for i := 1; i <= 18; i++ {
		lines = append(lines, fmt.Sprintf(
			"Chapter %d covers worked examples, guided practice, and quick checks for understanding.", i))
	}
	return lines
}

func TestWorkflowIntegrationEndToEnd(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	pdfPath := filepath.Join(testsupport.BaseDir(cfg), "uploads", "lesson-planning.pdf")
	testsupport.WritePDF(t, pdfPath, lessonPDFLines()...)

	logger := logging.NewNop()
	notifier := &managerNotifier{}
	artifactStore := artifacts.NewStore(cfg)

	timelineSource := &fakeTimelineSource{data: testsupport.TimelineJSON(t, 2)}
	imageSource := &fakeImageSource{data: slidePNG(t)}
	speechSource := &fakeSpeechSource{clip: testsupport.MP3Bytes(t, 40)}
	renderClient := &fakeRenderClient{}

	extractor := extraction.NewExtractorWithDependencies(cfg, store, logger, artifactStore)
	generator := generation.NewGeneratorWithDependencies(cfg, store, logger, artifactStore, timelineSource)
	imager := imaging.NewImagerWithDependencies(cfg, store, logger, artifactStore, imageSource)
	narrator := narration.NewNarratorWithDependencies(cfg, store, logger, artifactStore, speechSource)
	renderer := rendering.NewRendererWithDependencies(cfg, store, logger, artifactStore, renderClient)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logger, notifier)
	mgr.ConfigureStages(workflow.StageSet{
		Extractor: extractor,
		Generator: generator,
		Imager:    imager,
		Narrator:  narrator,
		Renderer:  renderer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("manager.Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	job := testsupport.NewJob(t, store, "lesson-planning.pdf", pdfPath)
	final := waitForStatus(t, store, job.ID, queue.StatusCompleted, 120*time.Second)

	if final.TextPath == "" || final.TimelinePath == "" || final.ImagesDir == "" || final.AudioDir == "" || final.VideoPath == "" {
		t.Fatalf("expected every artifact reference populated, got %+v", final)
	}
	text, err := os.ReadFile(final.TextPath)
	if err != nil {
		t.Fatalf("extracted text missing: %v", err)
	}
	if !strings.Contains(string(text), "Chapter 1") {
		t.Fatalf("expected extracted text to contain document content, got %q", string(text))
	}
	if final.SlideCount != 2 {
		t.Fatalf("expected two timeline segments, got %d", final.SlideCount)
	}
	for i := 0; i < 2; i++ {
		if _, err := os.Stat(artifactStore.ImagePath(job.ID, i)); err != nil {
			t.Fatalf("slide image %d missing: %v", i, err)
		}
		if _, err := os.Stat(artifactStore.AudioPath(job.ID, i)); err != nil {
			t.Fatalf("narration clip %d missing: %v", i, err)
		}
	}
	if _, err := os.Stat(final.VideoPath); err != nil {
		t.Fatalf("final video missing: %v", err)
	}
	if final.VideoDurationSeconds != 118.7 {
		t.Fatalf("expected reported render duration, got %f", final.VideoDurationSeconds)
	}

	if got := timelineSource.calls; got != 1 {
		t.Fatalf("expected one timeline generation call, got %d", got)
	}
	if got := imageSource.calls; got != 2 {
		t.Fatalf("expected one image call per segment, got %d", got)
	}
	if got := speechSource.calls; got != 2 {
		t.Fatalf("expected one synthesis call per segment, got %d", got)
	}
	if got := renderClient.calls; got != 1 {
		t.Fatalf("expected one render call, got %d", got)
	}

	request := renderClient.lastRequest()
	if len(request.Segments) != 2 {
		t.Fatalf("expected render request with two segments, got %d", len(request.Segments))
	}
	if request.Title != "Structuring Effective Lessons" {
		t.Fatalf("unexpected render title %q", request.Title)
	}
	for _, segment := range request.Segments {
		if !strings.HasPrefix(segment.AudioPath, "file://") || !strings.HasPrefix(segment.ImagePath, "file://") {
			t.Fatalf("expected file URLs for segment assets, got %q and %q", segment.AudioPath, segment.ImagePath)
		}
	}

	durations := final.StageDurations()
	for _, stageName := range queue.Stages() {
		if _, ok := durations[stageName]; !ok {
			t.Fatalf("expected duration recorded for %s, got %v", stageName, durations)
		}
	}
	if notifier.jobCompleteCount() != 1 {
		t.Fatalf("expected one completion notification, got %d", notifier.jobCompleteCount())
	}
}
