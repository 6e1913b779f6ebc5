package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"lectern/internal/queue"
	"lectern/internal/testsupport"
)

func claimJob(t *testing.T, store *queue.Store, job *queue.Job, stage queue.Stage) *queue.Job {
	t.Helper()

	snapshot := *job
	now := time.Now().UTC()
	snapshot.Status = queue.StatusProcessing
	snapshot.CurrentStage = stage
	snapshot.StageStartedAt = &now
	snapshot.LastHeartbeat = &now
	if err := store.UpdateTransition(context.Background(), &snapshot, queue.StatusPending, ""); err != nil {
		t.Fatalf("claim transition: %v", err)
	}
	return &snapshot
}

func failJob(t *testing.T, store *queue.Store, job *queue.Job, stage queue.Stage, kind string) *queue.Job {
	t.Helper()

	claimed := claimJob(t, store, job, stage)
	snapshot := *claimed
	snapshot.Status = queue.StatusFailed
	snapshot.CurrentStage = ""
	snapshot.ErrorMessage = "stage failed"
	snapshot.ErrorStage = stage
	snapshot.ErrorKind = kind
	snapshot.StageStartedAt = nil
	snapshot.LastHeartbeat = nil
	if err := store.UpdateTransition(context.Background(), &snapshot, queue.StatusProcessing, stage); err != nil {
		t.Fatalf("fail transition: %v", err)
	}
	return &snapshot
}

func TestOpenInitializesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.NewJob(ctx, "algebra.pdf", "/tmp/algebra.pdf")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %q", job.Status)
	}
	if job.CurrentStage != "" {
		t.Fatalf("expected no current stage, got %q", job.CurrentStage)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.OriginalFilename != "algebra.pdf" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}

	missing, err := store.GetByID(ctx, "no-such-job")
	if err != nil {
		t.Fatalf("GetByID for missing job failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing job, got %#v", missing)
	}
}

func TestNewJobRequiresFilename(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewJob(context.Background(), "", "/tmp/doc.pdf"); err == nil {
		t.Fatal("expected error when filename missing")
	}
}

func TestUpdateTransitionPersistsTargetState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "physics.pdf", "/tmp/physics.pdf")

	claimed := claimJob(t, store, job, queue.StageExtract)

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusProcessing {
		t.Fatalf("expected processing, got %q", fetched.Status)
	}
	if fetched.CurrentStage != queue.StageExtract {
		t.Fatalf("expected extract stage, got %q", fetched.CurrentStage)
	}
	if fetched.StageStartedAt == nil || fetched.LastHeartbeat == nil {
		t.Fatal("expected stage start and heartbeat timestamps")
	}

	done := *claimed
	done.Status = queue.StatusPending
	done.CurrentStage = ""
	done.TextPath = "text/physics.txt"
	done.StageStartedAt = nil
	done.LastHeartbeat = nil
	done.RecordStageDuration(queue.StageExtract, 1.2)
	if err := store.UpdateTransition(ctx, &done, queue.StatusProcessing, queue.StageExtract); err != nil {
		t.Fatalf("stage-complete transition: %v", err)
	}

	fetched, err = store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending || fetched.CurrentStage != "" {
		t.Fatalf("expected pending with no stage, got %q/%q", fetched.Status, fetched.CurrentStage)
	}
	if fetched.TextPath != "text/physics.txt" {
		t.Fatalf("expected text artifact recorded, got %q", fetched.TextPath)
	}
	if durations := fetched.StageDurations(); durations[queue.StageExtract] != 1.2 {
		t.Fatalf("expected extract duration persisted, got %v", durations)
	}
}

func TestUpdateTransitionDetectsConflict(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "chemistry.pdf", "/tmp/chemistry.pdf")

	first := *job
	now := time.Now().UTC()
	first.Status = queue.StatusProcessing
	first.CurrentStage = queue.StageExtract
	first.StageStartedAt = &now
	if err := store.UpdateTransition(ctx, &first, queue.StatusPending, ""); err != nil {
		t.Fatalf("first claim should win: %v", err)
	}

	second := *job
	second.Status = queue.StatusProcessing
	second.CurrentStage = queue.StageExtract
	err := store.UpdateTransition(ctx, &second, queue.StatusPending, "")
	if !errors.Is(err, queue.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusProcessing || fetched.CurrentStage != queue.StageExtract {
		t.Fatalf("conflict must not clobber state, got %q/%q", fetched.Status, fetched.CurrentStage)
	}
}

func TestUpdateTransitionMissingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ghost := &queue.Job{ID: "missing", Status: queue.StatusProcessing, CurrentStage: queue.StageExtract}
	err := store.UpdateTransition(context.Background(), ghost, queue.StatusPending, "")
	if !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNextPendingHonorsBackoffWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "biology.pdf", "/tmp/biology.pdf")

	claimed := claimJob(t, store, job, queue.StageTTS)
	retryAt := time.Now().UTC().Add(30 * time.Second)
	delayed := *claimed
	delayed.Status = queue.StatusPending
	delayed.CurrentStage = ""
	delayed.RetryCount = 1
	delayed.NextAttemptAt = &retryAt
	delayed.StageStartedAt = nil
	delayed.LastHeartbeat = nil
	if err := store.UpdateTransition(ctx, &delayed, queue.StatusProcessing, queue.StageTTS); err != nil {
		t.Fatalf("backoff transition: %v", err)
	}

	next, err := store.NextPending(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected no claimable job inside backoff window, got %s", next.ID)
	}

	next, err = store.NextPending(ctx, retryAt.Add(time.Second))
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.ID != job.ID {
		t.Fatalf("expected job claimable after backoff, got %#v", next)
	}
	if next.RetryCount != 1 {
		t.Fatalf("expected retry count preserved, got %d", next.RetryCount)
	}
}

func TestRequestCancelOnlyActiveJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "history.pdf", "/tmp/history.pdf")

	changed, err := store.RequestCancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if !changed {
		t.Fatal("expected cancel flag to be set on pending job")
	}

	changed, err = store.RequestCancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if changed {
		t.Fatal("expected second cancel request to be a no-op")
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !fetched.CancelRequested {
		t.Fatal("expected cancel_requested persisted")
	}

	terminal := testsupport.NewJob(t, store, "geometry.pdf", "/tmp/geometry.pdf")
	completed := failJob(t, store, terminal, queue.StageExtract, "transient")
	changed, err = store.RequestCancel(ctx, completed.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if changed {
		t.Fatal("expected cancel request on failed job to be rejected")
	}
}

func TestRemoveRefusesProcessingJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "biology.pdf", "/tmp/biology.pdf")
	claimJob(t, store, job, queue.StageExtract)

	removed, err := store.Remove(ctx, job.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected processing job to survive removal")
	}

	idle := testsupport.NewJob(t, store, "chemistry.pdf", "/tmp/chemistry.pdf")
	removed, err = store.Remove(ctx, idle.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected pending job to be removed")
	}

	gone, err := store.GetByID(ctx, idle.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected removed job to be gone, got %#v", gone)
	}

	removed, err = store.Remove(ctx, idle.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed {
		t.Fatal("expected second removal to be a no-op")
	}
}

func TestRetryFailedSkipsGenerateValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	retryable := testsupport.NewJob(t, store, "music.pdf", "/tmp/music.pdf")
	failJob(t, store, retryable, queue.StageTTS, "external")

	rejected := testsupport.NewJob(t, store, "art.pdf", "/tmp/art.pdf")
	failJob(t, store, rejected, queue.StageGenerate, queue.ErrorKindValidation)

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one retried job, got %d", count)
	}

	fetched, err := store.GetByID(ctx, retryable.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected retried job pending, got %q", fetched.Status)
	}
	if fetched.ErrorMessage != "" || fetched.ErrorStage != "" || fetched.ErrorKind != "" {
		t.Fatalf("expected error fields cleared, got %#v", fetched)
	}
	if fetched.RetryCount != 0 {
		t.Fatalf("expected retry counter reset, got %d", fetched.RetryCount)
	}

	still, err := store.GetByID(ctx, rejected.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if still.Status != queue.StatusFailed {
		t.Fatalf("expected validation failure to stay failed, got %q", still.Status)
	}
}

func TestCanRetry(t *testing.T) {
	pending := &queue.Job{ID: "a", Status: queue.StatusPending}
	if err := queue.CanRetry(pending); err == nil {
		t.Fatal("expected error for non-failed job")
	}

	validation := &queue.Job{
		ID:         "b",
		Status:     queue.StatusFailed,
		ErrorStage: queue.StageGenerate,
		ErrorKind:  queue.ErrorKindValidation,
	}
	if err := queue.CanRetry(validation); !errors.Is(err, queue.ErrRetryNotAllowed) {
		t.Fatalf("expected ErrRetryNotAllowed, got %v", err)
	}

	transient := &queue.Job{
		ID:         "c",
		Status:     queue.StatusFailed,
		ErrorStage: queue.StageTTS,
		ErrorKind:  "transient",
	}
	if err := queue.CanRetry(transient); err != nil {
		t.Fatalf("expected transient tts failure retryable, got %v", err)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	stale := testsupport.NewJob(t, store, "stale.pdf", "/tmp/stale.pdf")
	staleClaim := *stale
	staleBeat := time.Now().UTC().Add(-20 * time.Minute)
	staleClaim.Status = queue.StatusProcessing
	staleClaim.CurrentStage = queue.StageImages
	staleClaim.ImagesDir = ""
	staleClaim.TextPath = "text/stale.txt"
	staleClaim.TimelinePath = "timelines/stale.json"
	staleClaim.LastHeartbeat = &staleBeat
	if err := store.UpdateTransition(ctx, &staleClaim, queue.StatusPending, ""); err != nil {
		t.Fatalf("stale claim: %v", err)
	}

	fresh := testsupport.NewJob(t, store, "fresh.pdf", "/tmp/fresh.pdf")
	claimJob(t, store, fresh, queue.StageExtract)

	count, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one reclaimed job, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reclaimed.Status != queue.StatusPending || reclaimed.CurrentStage != "" {
		t.Fatalf("expected reclaimed job pending, got %q/%q", reclaimed.Status, reclaimed.CurrentStage)
	}
	if reclaimed.TimelinePath != "timelines/stale.json" {
		t.Fatal("expected artifacts to survive reclaim")
	}
	if stage, ok := reclaimed.NextStage(); !ok || stage != queue.StageImages {
		t.Fatalf("expected resume at images, got %q/%v", stage, ok)
	}

	untouched, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if untouched.Status != queue.StatusProcessing {
		t.Fatalf("expected fresh job untouched, got %q", untouched.Status)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "stuck.pdf", "/tmp/stuck.pdf")
	claimJob(t, store, job, queue.StageRender)

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one reset job, got %d", count)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending || fetched.CurrentStage != "" {
		t.Fatalf("expected pending with no stage, got %q/%q", fetched.Status, fetched.CurrentStage)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}
}

func TestSetProgressGuardedByProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "progress.pdf", "/tmp/progress.pdf")

	if err := store.SetProgress(ctx, job.ID, "should not apply", 50); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.ProgressPercent != 0 || fetched.ProgressMessage != "" {
		t.Fatalf("expected progress ignored for pending job, got %v/%q", fetched.ProgressPercent, fetched.ProgressMessage)
	}

	claimed := claimJob(t, store, job, queue.StageImages)
	if err := store.SetProgress(ctx, job.ID, "rendering segment 2", 40); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	fetched, err = store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.ProgressPercent != 40 || fetched.ProgressMessage != "rendering segment 2" {
		t.Fatalf("expected progress recorded, got %v/%q", fetched.ProgressPercent, fetched.ProgressMessage)
	}
	if fetched.LastHeartbeat == nil || !fetched.LastHeartbeat.Equal(*claimed.LastHeartbeat) {
		t.Fatal("expected SetProgress to preserve heartbeat")
	}
}

func TestUpdateHeartbeatGuardedByProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "beat.pdf", "/tmp/beat.pdf")

	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatal("expected heartbeat ignored for pending job")
	}

	claimJob(t, store, job, queue.StageTTS)
	if err := store.UpdateHeartbeat(ctx, job.ID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}
	fetched, err = store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.LastHeartbeat == nil {
		t.Fatal("expected heartbeat recorded for processing job")
	}
}

func TestListPagePaginatesNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	var ids []string
	for _, name := range []string{"one.pdf", "two.pdf", "three.pdf"} {
		job := testsupport.NewJob(t, store, name, "/tmp/"+name)
		ids = append(ids, job.ID)
		time.Sleep(2 * time.Millisecond)
	}

	page, total, err := store.ListPage(ctx, "", 0, 2)
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 jobs on first page, got %d", len(page))
	}
	if page[0].ID != ids[2] || page[1].ID != ids[1] {
		t.Fatalf("expected newest first ordering, got %s, %s", page[0].ID, page[1].ID)
	}

	page, total, err = store.ListPage(ctx, "", 2, 2)
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}
	if total != 3 || len(page) != 1 {
		t.Fatalf("expected final page of 1, got %d (total %d)", len(page), total)
	}
	if page[0].ID != ids[0] {
		t.Fatalf("expected oldest job on final page, got %s", page[0].ID)
	}

	pending, _, err := store.ListPage(ctx, queue.StatusPending, 0, 10)
	if err != nil {
		t.Fatalf("ListPage by status failed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending jobs, got %d", len(pending))
	}
}

func TestStatsAndHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "p1.pdf", "/tmp/p1.pdf")
	processing := testsupport.NewJob(t, store, "p2.pdf", "/tmp/p2.pdf")
	claimJob(t, store, processing, queue.StageExtract)
	failed := testsupport.NewJob(t, store, "p3.pdf", "/tmp/p3.pdf")
	failJob(t, store, failed, queue.StageGenerate, "external")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusProcessing] != 1 || stats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Processing != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}

	dbHealth, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !dbHealth.DatabaseExists || !dbHealth.DatabaseReadable || !dbHealth.TableExists {
		t.Fatalf("unexpected database health: %+v", dbHealth)
	}
	if len(dbHealth.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", dbHealth.MissingColumns)
	}
	if !dbHealth.IntegrityCheck {
		t.Fatal("expected integrity check to pass")
	}
}

func TestOpenReadOnlyServesReads(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "ro.pdf", "/tmp/ro.pdf")

	ro, err := queue.OpenReadOnly(cfg)
	if err != nil {
		t.Fatalf("OpenReadOnly failed: %v", err)
	}
	defer ro.Close()

	fetched, err := ro.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetByID via read-only store failed: %v", err)
	}
	if fetched == nil || fetched.ID != job.ID {
		t.Fatalf("unexpected job from read-only store: %#v", fetched)
	}

	if _, err := ro.NewJob(context.Background(), "nope.pdf", ""); err == nil {
		t.Fatal("expected write through read-only store to fail")
	}
}
