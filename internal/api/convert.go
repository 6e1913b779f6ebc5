package api

import (
	"slices"
	"time"

	"lectern/internal/preflight"
	"lectern/internal/queue"
	"lectern/internal/stage"
	"lectern/internal/workflow"
)

// FromJob converts a queue record to its API representation.
func FromJob(job *queue.Job) Job {
	if job == nil {
		return Job{}
	}

	dto := Job{
		ID:               job.ID,
		OriginalFilename: job.OriginalFilename,
		PDFPath:          job.PDFPath,
		Status:           string(job.Status),
		Progress: JobProgress{
			Stage:   string(job.CurrentStage),
			Percent: job.ProgressPercent,
			Message: job.ProgressMessage,
		},
		ErrorMessage:         job.ErrorMessage,
		ErrorStage:           string(job.ErrorStage),
		ErrorKind:            job.ErrorKind,
		RetryCount:           job.RetryCount,
		CancelRequested:      job.CancelRequested,
		VideoDurationSeconds: job.VideoDurationSeconds,
		SlideCount:           job.SlideCount,
	}

	artifacts := JobArtifacts{
		TextPath:     job.TextPath,
		TimelinePath: job.TimelinePath,
		ImagesDir:    job.ImagesDir,
		AudioDir:     job.AudioDir,
		VideoPath:    job.VideoPath,
	}
	if artifacts != (JobArtifacts{}) {
		dto.Artifacts = &artifacts
	}

	if durations := job.StageDurations(); len(durations) > 0 {
		dto.StageDurations = make(map[string]float64, len(durations))
		for name, seconds := range durations {
			dto.StageDurations[string(name)] = seconds
		}
	}

	dto.CreatedAt = FormatTime(job.CreatedAt)
	dto.UpdatedAt = FormatTime(job.UpdatedAt)
	if job.NextAttemptAt != nil {
		dto.NextAttemptAt = FormatTime(*job.NextAttemptAt)
	}
	if job.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*job.CompletedAt)
	}
	return dto
}

// FromJobs converts a slice of queue records into API DTOs.
func FromJobs(jobs []*queue.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, FromJob(job))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastJob != nil {
		last := FromJob(summary.LastJob)
		wf.LastJob = &last
	}
	return wf
}

// MergeQueueStats produces a string-keyed representation of queue stats.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// StageHealthSlice converts a stage health map into a deterministic slice.
// Known stages come out in pipeline order; anything unrecognized follows,
// sorted by name.
func StageHealthSlice(health map[queue.Stage]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}

	out := make([]StageHealth, 0, len(health))
	seen := make(map[queue.Stage]struct{}, len(health))
	for _, name := range queue.Stages() {
		h, ok := health[name]
		if !ok {
			continue
		}
		out = append(out, StageHealth{Name: string(name), Ready: h.Ready, Detail: h.Detail})
		seen[name] = struct{}{}
	}

	rest := make([]string, 0, len(health)-len(seen))
	for name := range health {
		if _, ok := seen[name]; !ok {
			rest = append(rest, string(name))
		}
	}
	slices.Sort(rest)
	for _, name := range rest {
		h := health[queue.Stage(name)]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromPreflightResults converts preflight outcomes into API payloads.
func FromPreflightResults(results []preflight.Result) []PreflightCheck {
	if len(results) == 0 {
		return nil
	}
	out := make([]PreflightCheck, 0, len(results))
	for _, result := range results {
		out = append(out, PreflightCheck{
			Name:     result.Name,
			Optional: result.Optional,
			Ready:    result.Passed,
			Detail:   result.Detail,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
