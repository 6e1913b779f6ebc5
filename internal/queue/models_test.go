package queue_test

import (
	"testing"

	"lectern/internal/queue"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  queue.Status
		ok    bool
	}{
		{"pending", queue.StatusPending, true},
		{" Processing ", queue.StatusProcessing, true},
		{"COMPLETED", queue.StatusCompleted, true},
		{"failed", queue.StatusFailed, true},
		{"cancelled", queue.StatusCancelled, true},
		{"", "", false},
		{"bogus", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseStatus(%q) ok = %v, want %v", tc.input, ok, tc.ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestStagesOrdered(t *testing.T) {
	want := []queue.Stage{
		queue.StageExtract,
		queue.StageGenerate,
		queue.StageImages,
		queue.StageTTS,
		queue.StageRender,
	}
	got := queue.Stages()
	if len(got) != len(want) {
		t.Fatalf("expected %d stages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNextStageFollowsArtifacts(t *testing.T) {
	job := queue.Job{}

	steps := []struct {
		prepare func(*queue.Job)
		want    queue.Stage
	}{
		{func(*queue.Job) {}, queue.StageExtract},
		{func(j *queue.Job) { j.TextPath = "text/doc.txt" }, queue.StageGenerate},
		{func(j *queue.Job) { j.TimelinePath = "timelines/doc.json" }, queue.StageImages},
		{func(j *queue.Job) { j.ImagesDir = "images/doc" }, queue.StageTTS},
		{func(j *queue.Job) { j.AudioDir = "audio/doc" }, queue.StageRender},
	}
	for _, step := range steps {
		step.prepare(&job)
		stage, ok := job.NextStage()
		if !ok {
			t.Fatalf("expected a next stage, artifacts %+v", job)
		}
		if stage != step.want {
			t.Fatalf("NextStage = %q, want %q", stage, step.want)
		}
	}

	job.VideoPath = "videos/doc.mp4"
	if stage, ok := job.NextStage(); ok {
		t.Fatalf("expected pipeline complete, got stage %q", stage)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []queue.Status{queue.StatusCompleted, queue.StatusFailed, queue.StatusCancelled}
	for _, status := range terminal {
		if !queue.IsTerminal(status) {
			t.Fatalf("expected %q to be terminal", status)
		}
	}
	for _, status := range []queue.Status{queue.StatusPending, queue.StatusProcessing} {
		if queue.IsTerminal(status) {
			t.Fatalf("expected %q to be non-terminal", status)
		}
	}
}

func TestStageDurationsRoundTrip(t *testing.T) {
	job := queue.Job{}
	if durations := job.StageDurations(); len(durations) != 0 {
		t.Fatalf("expected empty durations, got %v", durations)
	}

	job.RecordStageDuration(queue.StageExtract, 1.5)
	job.RecordStageDuration(queue.StageGenerate, 12.25)
	job.RecordStageDuration(queue.StageExtract, 2.0)

	durations := job.StageDurations()
	if len(durations) != 2 {
		t.Fatalf("expected 2 stage durations, got %v", durations)
	}
	if durations[queue.StageExtract] != 2.0 {
		t.Fatalf("expected extract duration 2.0, got %v", durations[queue.StageExtract])
	}
	if durations[queue.StageGenerate] != 12.25 {
		t.Fatalf("expected generate duration 12.25, got %v", durations[queue.StageGenerate])
	}

	job.StageDurationsJSON = "{not json"
	if durations := job.StageDurations(); len(durations) != 0 {
		t.Fatalf("expected corrupt payload to decode as empty, got %v", durations)
	}
}
