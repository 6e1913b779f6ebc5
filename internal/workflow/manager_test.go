package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
	"lectern/internal/stage"
	"lectern/internal/testsupport"
	"lectern/internal/workflow"
)

type stubStage struct {
	name   queue.Stage
	health stage.Health

	mu           sync.Mutex
	prepareCalls int
	executeCalls int

	prepareErr  error
	executeHook func(call int, job *queue.Job) error
}

func newStubStage(name queue.Stage) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(string(name))}
}

func (s *stubStage) Prepare(_ context.Context, _ *queue.Job) error {
	s.mu.Lock()
	s.prepareCalls++
	s.mu.Unlock()
	return s.prepareErr
}

func (s *stubStage) Execute(_ context.Context, job *queue.Job) error {
	s.mu.Lock()
	s.executeCalls++
	call := s.executeCalls
	s.mu.Unlock()
	if s.executeHook != nil {
		return s.executeHook(call, job)
	}
	return nil
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func (s *stubStage) executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executeCalls
}

// artifactHook records the stage in order and sets the artifact reference the
// pipeline uses to advance.
func artifactHook(order *runLog, name queue.Stage, apply func(*queue.Job)) func(int, *queue.Job) error {
	return func(_ int, job *queue.Job) error {
		order.append(string(name))
		apply(job)
		return nil
	}
}

type runLog struct {
	mu      sync.Mutex
	entries []string
}

func (r *runLog) append(entry string) {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
}

func (r *runLog) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func pipelineStubs(order *runLog) (extractor, generator, imager, narrator, renderer *stubStage) {
	extractor = newStubStage(queue.StageExtract)
	extractor.executeHook = artifactHook(order, queue.StageExtract, func(job *queue.Job) {
		job.TextPath = filepath.Join("text", job.ID+".txt")
	})
	generator = newStubStage(queue.StageGenerate)
	generator.executeHook = artifactHook(order, queue.StageGenerate, func(job *queue.Job) {
		job.TimelinePath = filepath.Join("timelines", job.ID+".json")
		job.SlideCount = 4
	})
	imager = newStubStage(queue.StageImages)
	imager.executeHook = artifactHook(order, queue.StageImages, func(job *queue.Job) {
		job.ImagesDir = filepath.Join("images", job.ID)
	})
	narrator = newStubStage(queue.StageTTS)
	narrator.executeHook = artifactHook(order, queue.StageTTS, func(job *queue.Job) {
		job.AudioDir = filepath.Join("audio", job.ID)
	})
	renderer = newStubStage(queue.StageRender)
	renderer.executeHook = artifactHook(order, queue.StageRender, func(job *queue.Job) {
		job.VideoPath = filepath.Join("video", job.ID+".mp4")
		job.VideoDurationSeconds = 182.5
	})
	return extractor, generator, imager, narrator, renderer
}

func workflowConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Workflow.QueuePollInterval = 0
	cfg.Workflow.MaxConcurrentJobs = 1
	return cfg
}

func startManager(t *testing.T, cfg *config.Config, store *queue.Store, notifier *managerNotifier, set workflow.StageSet) *workflow.Manager {
	t.Helper()
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(set)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(mgr.Stop)
	return mgr
}

func waitForStatus(t *testing.T, store *queue.Store, jobID string, want queue.Status, timeout time.Duration) *queue.Job {
	t.Helper()
	ctx := context.Background()
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			current, _ := store.GetByID(ctx, jobID)
			if current != nil {
				t.Fatalf("timed out waiting for %s; job is %s/%s (%s)", want, current.Status, current.CurrentStage, current.ErrorMessage)
			}
			t.Fatalf("timed out waiting for %s", want)
		default:
		}
		updated, err := store.GetByID(ctx, jobID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status == want {
			return updated
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesJobThroughPipeline(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	order := &runLog{}
	extractor, generator, imager, narrator, renderer := pipelineStubs(order)
	notifier := &managerNotifier{}

	startManager(t, cfg, store, notifier, workflow.StageSet{
		Extractor: extractor,
		Generator: generator,
		Imager:    imager,
		Narrator:  narrator,
		Renderer:  renderer,
	})

	job := testsupport.NewJob(t, store, "algebra-basics.pdf", "/inbox/algebra-basics.pdf")
	final := waitForStatus(t, store, job.ID, queue.StatusCompleted, 60*time.Second)

	wantOrder := []string{"extract", "generate", "images", "tts", "render"}
	gotOrder := order.snapshot()
	if len(gotOrder) != len(wantOrder) {
		t.Fatalf("expected %d stage executions, got %v", len(wantOrder), gotOrder)
	}
	for i, name := range wantOrder {
		if gotOrder[i] != name {
			t.Fatalf("expected stage order %v, got %v", wantOrder, gotOrder)
		}
	}

	if final.TextPath == "" || final.TimelinePath == "" || final.ImagesDir == "" || final.AudioDir == "" || final.VideoPath == "" {
		t.Fatalf("expected all artifact references recorded, got %+v", final)
	}
	if final.VideoDurationSeconds != 182.5 {
		t.Fatalf("expected video duration persisted, got %f", final.VideoDurationSeconds)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
	if final.ProgressPercent != 100 {
		t.Fatalf("expected 100%% progress, got %f", final.ProgressPercent)
	}
	if final.CurrentStage != "" {
		t.Fatalf("expected no current stage on completed job, got %s", final.CurrentStage)
	}
	durations := final.StageDurations()
	for _, stageName := range queue.Stages() {
		if _, ok := durations[stageName]; !ok {
			t.Fatalf("expected duration recorded for %s, got %v", stageName, durations)
		}
	}

	if starts := notifier.queueStartCount(); starts != 1 {
		t.Fatalf("expected one queue start notification, got %d", starts)
	}
	if completes := notifier.jobCompleteCount(); completes != 1 {
		t.Fatalf("expected one job completion notification, got %d", completes)
	}

	deadline := time.After(10 * time.Second)
	for notifier.queueCompleteCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected queue completion notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	processed, failed := notifier.lastQueueComplete()
	if processed != 1 || failed != 0 {
		t.Fatalf("expected queue completion with 1 processed and 0 failed, got %d/%d", processed, failed)
	}
}

func TestManagerRetriesTransientNarrationFailures(t *testing.T) {
	cfg := workflowConfig(t, testsupport.WithRetryLimit(3))
	store := testsupport.MustOpenStore(t, cfg)

	order := &runLog{}
	extractor, generator, imager, narrator, renderer := pipelineStubs(order)
	narrationHook := narrator.executeHook
	narrator.executeHook = func(call int, job *queue.Job) error {
		if call <= 2 {
			return services.Wrap(services.ErrTransient, "tts", "synthesize narration", "Narration synthesis failed for segment 1", errors.New("connection reset"))
		}
		return narrationHook(call, job)
	}

	notifier := &managerNotifier{}
	startManager(t, cfg, store, notifier, workflow.StageSet{
		Extractor: extractor,
		Generator: generator,
		Imager:    imager,
		Narrator:  narrator,
		Renderer:  renderer,
	})

	job := testsupport.NewJob(t, store, "retry.pdf", "/inbox/retry.pdf")
	final := waitForStatus(t, store, job.ID, queue.StatusCompleted, 60*time.Second)

	if got := narrator.executions(); got != 3 {
		t.Fatalf("expected narration to run three times, got %d", got)
	}
	if final.RetryCount != 2 {
		t.Fatalf("expected two consumed retries, got %d", final.RetryCount)
	}
	if got := renderer.executions(); got != 1 {
		t.Fatalf("expected render to run once after retries, got %d", got)
	}
	if final.ErrorMessage != "" || final.ErrorStage != "" || final.ErrorKind != "" {
		t.Fatalf("expected error fields cleared on success, got %q/%q/%q", final.ErrorMessage, final.ErrorStage, final.ErrorKind)
	}
}

func TestManagerFailsTimelineValidationWithoutRetry(t *testing.T) {
	cfg := workflowConfig(t, testsupport.WithRetryLimit(3))
	store := testsupport.MustOpenStore(t, cfg)

	order := &runLog{}
	extractor, generator, _, _, _ := pipelineStubs(order)
	generator.executeHook = func(_ int, _ *queue.Job) error {
		return services.Wrap(services.ErrValidation, "generate", "validate timeline", "Generated timeline failed validation; resubmit the document to regenerate", nil)
	}

	notifier := &managerNotifier{}
	startManager(t, cfg, store, notifier, workflow.StageSet{
		Extractor: extractor,
		Generator: generator,
	})

	job := testsupport.NewJob(t, store, "invalid.pdf", "/inbox/invalid.pdf")
	final := waitForStatus(t, store, job.ID, queue.StatusFailed, 30*time.Second)

	if got := generator.executions(); got != 1 {
		t.Fatalf("expected a single generation attempt, got %d", got)
	}
	if final.RetryCount != 0 {
		t.Fatalf("expected no retries for validation failure, got %d", final.RetryCount)
	}
	if final.ErrorStage != queue.StageGenerate {
		t.Fatalf("expected error stage generate, got %s", final.ErrorStage)
	}
	if final.ErrorKind != queue.ErrorKindValidation {
		t.Fatalf("expected validation error kind, got %s", final.ErrorKind)
	}
	if final.TimelinePath != "" {
		t.Fatalf("expected no timeline reference on validation failure, got %s", final.TimelinePath)
	}
	if err := queue.CanRetry(final); !errors.Is(err, queue.ErrRetryNotAllowed) {
		t.Fatalf("expected retry to be disallowed, got %v", err)
	}

	deadline := time.After(10 * time.Second)
	for notifier.jobFailCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected job failure notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	filename, stageLabel := notifier.lastJobFail()
	if filename != "invalid.pdf" {
		t.Fatalf("expected failure notification for invalid.pdf, got %s", filename)
	}
	if stageLabel != "timeline generation" {
		t.Fatalf("expected timeline generation stage label, got %s", stageLabel)
	}
}

func TestManagerStopsRetryingAtCeiling(t *testing.T) {
	cfg := workflowConfig(t, testsupport.WithRetryLimit(1))
	store := testsupport.MustOpenStore(t, cfg)

	extractor := newStubStage(queue.StageExtract)
	extractor.executeHook = func(_ int, _ *queue.Job) error {
		return services.Wrap(services.ErrTransient, "extract", "read pdf", "Could not read the PDF", errors.New("device busy"))
	}

	notifier := &managerNotifier{}
	startManager(t, cfg, store, notifier, workflow.StageSet{Extractor: extractor})

	job := testsupport.NewJob(t, store, "busy.pdf", "/inbox/busy.pdf")
	final := waitForStatus(t, store, job.ID, queue.StatusFailed, 30*time.Second)

	if got := extractor.executions(); got != 2 {
		t.Fatalf("expected initial attempt plus one retry, got %d", got)
	}
	if final.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", final.RetryCount)
	}
	if final.ErrorStage != queue.StageExtract {
		t.Fatalf("expected error stage extract, got %s", final.ErrorStage)
	}
	if final.ErrorKind != "transient" {
		t.Fatalf("expected transient error kind, got %s", final.ErrorKind)
	}
}

func TestManagerCancelsJobBeforeNextStage(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	order := &runLog{}
	extractor, generator, imager, narrator, renderer := pipelineStubs(order)

	job := testsupport.NewJob(t, store, "cancelled.pdf", "/inbox/cancelled.pdf")
	if _, err := store.RequestCancel(context.Background(), job.ID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}

	notifier := &managerNotifier{}
	startManager(t, cfg, store, notifier, workflow.StageSet{
		Extractor: extractor,
		Generator: generator,
		Imager:    imager,
		Narrator:  narrator,
		Renderer:  renderer,
	})

	final := waitForStatus(t, store, job.ID, queue.StatusCancelled, 30*time.Second)

	if got := extractor.executions(); got != 0 {
		t.Fatalf("expected no stage executions for cancelled job, got %d", got)
	}
	if final.ErrorMessage != queue.UserStopReason {
		t.Fatalf("expected user stop reason, got %q", final.ErrorMessage)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected terminal timestamp on cancelled job")
	}
}

func TestManagerObservesMidStageCancellation(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	order := &runLog{}
	extractor, generator, imager, narrator, renderer := pipelineStubs(order)
	extractHook := extractor.executeHook
	extractor.executeHook = func(call int, job *queue.Job) error {
		if err := extractHook(call, job); err != nil {
			return err
		}
		_, err := store.RequestCancel(context.Background(), job.ID)
		return err
	}

	notifier := &managerNotifier{}
	startManager(t, cfg, store, notifier, workflow.StageSet{
		Extractor: extractor,
		Generator: generator,
		Imager:    imager,
		Narrator:  narrator,
		Renderer:  renderer,
	})

	job := testsupport.NewJob(t, store, "stopped.pdf", "/inbox/stopped.pdf")
	final := waitForStatus(t, store, job.ID, queue.StatusCancelled, 30*time.Second)

	if final.TextPath == "" {
		t.Fatal("expected completed stage artifact to survive cancellation")
	}
	if got := generator.executions(); got != 0 {
		t.Fatalf("expected no further stages after cancellation, got %d", got)
	}
	if final.ErrorMessage != queue.UserStopReason {
		t.Fatalf("expected user stop reason, got %q", final.ErrorMessage)
	}
}

func TestManagerCompletesRecoveredJob(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	order := &runLog{}
	extractor, generator, imager, narrator, renderer := pipelineStubs(order)

	job := testsupport.NewJob(t, store, "recovered.pdf", "/inbox/recovered.pdf")
	job.TextPath = "text/recovered.txt"
	job.TimelinePath = "timelines/recovered.json"
	job.ImagesDir = "images/recovered"
	job.AudioDir = "audio/recovered"
	job.VideoPath = "video/recovered.mp4"
	job.VideoDurationSeconds = 240
	if err := store.UpdateTransition(context.Background(), job, queue.StatusPending, ""); err != nil {
		t.Fatalf("UpdateTransition failed: %v", err)
	}

	notifier := &managerNotifier{}
	startManager(t, cfg, store, notifier, workflow.StageSet{
		Extractor: extractor,
		Generator: generator,
		Imager:    imager,
		Narrator:  narrator,
		Renderer:  renderer,
	})

	final := waitForStatus(t, store, job.ID, queue.StatusCompleted, 30*time.Second)

	if entries := order.snapshot(); len(entries) != 0 {
		t.Fatalf("expected no stage executions for recovered job, got %v", entries)
	}
	if final.ProgressPercent != 100 {
		t.Fatalf("expected 100%% progress, got %f", final.ProgressPercent)
	}
	if notifier.jobCompleteCount() != 1 {
		t.Fatalf("expected completion notification for recovered job, got %d", notifier.jobCompleteCount())
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	narrator := newStubStage(queue.StageTTS)
	narrator.health = stage.Unhealthy("tts", "speech API key missing")

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &managerNotifier{})
	mgr.ConfigureStages(workflow.StageSet{Narrator: narrator})

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("expected stopped manager")
	}
	health, ok := status.StageHealth[queue.StageTTS]
	if !ok {
		t.Fatalf("expected stage health entry for tts, got %v", status.StageHealth)
	}
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if health.Detail != "speech API key missing" {
		t.Fatalf("unexpected health detail %q", health.Detail)
	}
	if status.QueueStats == nil {
		t.Fatal("expected queue stats in status summary")
	}
}

func TestManagerStartRequiresConfiguredStages(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &managerNotifier{})
	if err := mgr.Start(context.Background()); err == nil {
		mgr.Stop()
		t.Fatal("expected Start to fail without configured stages")
	}
}

type managerNotifier struct {
	mu             sync.Mutex
	jobCompletes   []string
	jobFails       []jobFailRecord
	queueStarts    []int
	queueCompletes []queueCompleteRecord
	errors         []string
}

type jobFailRecord struct {
	filename   string
	stageLabel string
	reason     string
}

type queueCompleteRecord struct {
	processed int
	failed    int
}

func (m *managerNotifier) NotifyJobCompleted(_ context.Context, filename string, _ time.Duration) error {
	m.mu.Lock()
	m.jobCompletes = append(m.jobCompletes, filename)
	m.mu.Unlock()
	return nil
}

func (m *managerNotifier) NotifyJobFailed(_ context.Context, filename, stageLabel, reason string) error {
	m.mu.Lock()
	m.jobFails = append(m.jobFails, jobFailRecord{filename: filename, stageLabel: stageLabel, reason: reason})
	m.mu.Unlock()
	return nil
}

func (m *managerNotifier) NotifyQueueStarted(_ context.Context, count int) error {
	m.mu.Lock()
	m.queueStarts = append(m.queueStarts, count)
	m.mu.Unlock()
	return nil
}

func (m *managerNotifier) NotifyQueueCompleted(_ context.Context, processed, failed int, _ time.Duration) error {
	m.mu.Lock()
	m.queueCompletes = append(m.queueCompletes, queueCompleteRecord{processed: processed, failed: failed})
	m.mu.Unlock()
	return nil
}

func (m *managerNotifier) NotifyError(_ context.Context, err error, _ string) error {
	m.mu.Lock()
	if err != nil {
		m.errors = append(m.errors, err.Error())
	}
	m.mu.Unlock()
	return nil
}

func (m *managerNotifier) TestNotification(context.Context) error { return nil }

func (m *managerNotifier) queueStartCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queueStarts)
}

func (m *managerNotifier) queueCompleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queueCompletes)
}

func (m *managerNotifier) lastQueueComplete() (processed, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queueCompletes) == 0 {
		return 0, 0
	}
	last := m.queueCompletes[len(m.queueCompletes)-1]
	return last.processed, last.failed
}

func (m *managerNotifier) jobCompleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobCompletes)
}

func (m *managerNotifier) jobFailCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobFails)
}

func (m *managerNotifier) lastJobFail() (filename, stageLabel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.jobFails) == 0 {
		return "", ""
	}
	last := m.jobFails[len(m.jobFails)-1]
	return last.filename, last.stageLabel
}
