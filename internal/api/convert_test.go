package api

import (
	"testing"
	"time"

	"lectern/internal/preflight"
	"lectern/internal/queue"
	"lectern/internal/stage"
	"lectern/internal/workflow"
)

func TestFromJobMapsFields(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	updated := created.Add(90 * time.Second)

	job := &queue.Job{
		ID:               "a1",
		OriginalFilename: "lesson-planning.pdf",
		PDFPath:          "/data/jobs/a1/lesson-planning.pdf",
		Status:           queue.StatusProcessing,
		CurrentStage:     queue.StageTTS,
		ProgressPercent:  62.5,
		ProgressMessage:  "Synthesizing narration",
		TextPath:         "/data/jobs/a1/text/lesson-planning.txt",
		TimelinePath:     "/data/jobs/a1/timeline.json",
		ImagesDir:        "/data/jobs/a1/images",
		SlideCount:       4,
		RetryCount:       1,
		CancelRequested:  true,
		CreatedAt:        created,
		UpdatedAt:        updated,
	}
	job.RecordStageDuration(queue.StageExtract, 1.5)
	job.RecordStageDuration(queue.StageGenerate, 20.25)

	dto := FromJob(job)

	if dto.ID != "a1" || dto.OriginalFilename != "lesson-planning.pdf" {
		t.Fatalf("unexpected identity fields: %#v", dto)
	}
	if dto.Status != string(queue.StatusProcessing) {
		t.Fatalf("unexpected status: %q", dto.Status)
	}
	if dto.Progress.Stage != string(queue.StageTTS) || dto.Progress.Percent != 62.5 {
		t.Fatalf("unexpected progress: %#v", dto.Progress)
	}
	if dto.Progress.Message != "Synthesizing narration" {
		t.Fatalf("unexpected progress message: %q", dto.Progress.Message)
	}
	if !dto.CancelRequested || dto.RetryCount != 1 {
		t.Fatalf("unexpected retry state: %#v", dto)
	}
	if dto.Artifacts == nil {
		t.Fatal("expected artifacts to be populated")
	}
	if dto.Artifacts.TextPath != job.TextPath || dto.Artifacts.TimelinePath != job.TimelinePath {
		t.Fatalf("unexpected artifacts: %#v", dto.Artifacts)
	}
	if dto.Artifacts.ImagesDir != job.ImagesDir || dto.Artifacts.AudioDir != "" || dto.Artifacts.VideoPath != "" {
		t.Fatalf("unexpected artifacts: %#v", dto.Artifacts)
	}
	if dto.SlideCount != 4 {
		t.Fatalf("unexpected slide count: %d", dto.SlideCount)
	}
	if dto.StageDurations[string(queue.StageExtract)] != 1.5 || dto.StageDurations[string(queue.StageGenerate)] != 20.25 {
		t.Fatalf("unexpected stage durations: %#v", dto.StageDurations)
	}
	if dto.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected createdAt: %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "2026-03-14T09:28:23.000Z" {
		t.Fatalf("unexpected updatedAt: %q", dto.UpdatedAt)
	}
	if dto.CompletedAt != "" || dto.NextAttemptAt != "" {
		t.Fatalf("expected no completion timestamps, got %q / %q", dto.CompletedAt, dto.NextAttemptAt)
	}
}

func TestFromJobFailedRetryState(t *testing.T) {
	next := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	job := &queue.Job{
		ID:               "b2",
		OriginalFilename: "algebra.pdf",
		Status:           queue.StatusFailed,
		ErrorMessage:     "Narration synthesis failed for segment 1",
		ErrorStage:       queue.StageTTS,
		ErrorKind:        "transient",
		RetryCount:       2,
		NextAttemptAt:    &next,
	}

	dto := FromJob(job)

	if dto.ErrorMessage != job.ErrorMessage {
		t.Fatalf("unexpected error message: %q", dto.ErrorMessage)
	}
	if dto.ErrorStage != string(queue.StageTTS) || dto.ErrorKind != "transient" {
		t.Fatalf("unexpected error fields: %#v", dto)
	}
	if dto.NextAttemptAt != "2026-03-14T09:30:00.000Z" {
		t.Fatalf("unexpected nextAttemptAt: %q", dto.NextAttemptAt)
	}
	if dto.Artifacts != nil {
		t.Fatalf("expected no artifacts, got %#v", dto.Artifacts)
	}
	if dto.StageDurations != nil {
		t.Fatalf("expected no stage durations, got %#v", dto.StageDurations)
	}
}

func TestFromJobNil(t *testing.T) {
	if dto := FromJob(nil); dto.ID != "" || dto.Artifacts != nil {
		t.Fatalf("expected zero DTO for nil job, got %#v", dto)
	}
	if out := FromJobs(nil); out != nil {
		t.Fatalf("expected nil slice, got %#v", out)
	}
}

func TestFromStatusSummary(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:   true,
		LastError: "queue poll failed",
		LastJob:   &queue.Job{ID: "a1", OriginalFilename: "algebra.pdf", Status: queue.StatusCompleted},
		QueueStats: map[queue.Status]int{
			queue.StatusPending:   2,
			queue.StatusCompleted: 5,
		},
		StageHealth: map[queue.Stage]stage.Health{
			queue.StageRender:  stage.Unhealthy("render", "remotion unreachable"),
			queue.StageExtract: stage.Healthy("extract"),
		},
	}

	wf := FromStatusSummary(summary)

	if !wf.Running || wf.LastError != "queue poll failed" {
		t.Fatalf("unexpected workflow state: %#v", wf)
	}
	if wf.QueueStats[string(queue.StatusPending)] != 2 || wf.QueueStats[string(queue.StatusCompleted)] != 5 {
		t.Fatalf("unexpected queue stats: %#v", wf.QueueStats)
	}
	if wf.LastJob == nil || wf.LastJob.ID != "a1" {
		t.Fatalf("unexpected last job: %#v", wf.LastJob)
	}
	if len(wf.StageHealth) != 2 {
		t.Fatalf("unexpected stage health count: %d", len(wf.StageHealth))
	}
	if wf.StageHealth[0].Name != "extract" || !wf.StageHealth[0].Ready {
		t.Fatalf("expected extract health first, got %#v", wf.StageHealth[0])
	}
	if wf.StageHealth[1].Name != "render" || wf.StageHealth[1].Ready {
		t.Fatalf("expected unready render health second, got %#v", wf.StageHealth[1])
	}
	if wf.StageHealth[1].Detail != "remotion unreachable" {
		t.Fatalf("unexpected health detail: %q", wf.StageHealth[1].Detail)
	}
}

func TestStageHealthSlicePipelineOrder(t *testing.T) {
	health := map[queue.Stage]stage.Health{
		queue.StageTTS:     stage.Healthy("tts"),
		queue.StageExtract: stage.Healthy("extract"),
		"publish":          stage.Unhealthy("publish", "unknown stage"),
		queue.StageImages:  stage.Healthy("images"),
	}

	out := StageHealthSlice(health)

	names := make([]string, 0, len(out))
	for _, h := range out {
		names = append(names, h.Name)
	}
	want := []string{"extract", "images", "tts", "publish"}
	if len(names) != len(want) {
		t.Fatalf("unexpected names: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, names)
		}
	}

	if StageHealthSlice(nil) != nil {
		t.Fatal("expected nil slice for empty map")
	}
}

func TestFromPreflightResults(t *testing.T) {
	results := []preflight.Result{
		{Name: "Artifacts directory", Passed: true, Detail: "/data (read/write ok)"},
		{Name: "Notifications", Passed: true, Optional: true, Detail: "Disabled"},
		{Name: "Remotion renderer", Detail: "connection refused"},
	}

	out := FromPreflightResults(results)

	if len(out) != 3 {
		t.Fatalf("unexpected check count: %d", len(out))
	}
	if !out[0].Ready || out[0].Optional {
		t.Fatalf("unexpected first check: %#v", out[0])
	}
	if !out[1].Optional {
		t.Fatalf("expected optional notifications check, got %#v", out[1])
	}
	if out[2].Ready || out[2].Detail != "connection refused" {
		t.Fatalf("unexpected renderer check: %#v", out[2])
	}

	if FromPreflightResults(nil) != nil {
		t.Fatal("expected nil for empty results")
	}
}

func TestFormatTime(t *testing.T) {
	if FormatTime(time.Time{}) != "" {
		t.Fatal("expected empty string for zero time")
	}
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 600000000, time.UTC)
	if got := FormatTime(stamp); got != "2026-01-02T03:04:05.600Z" {
		t.Fatalf("unexpected formatted time: %q", got)
	}
}
