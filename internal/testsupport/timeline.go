package testsupport

import (
	"strings"
	"testing"

	"lectern/internal/timeline"
)

const testSegmentSeconds = 60.0

// Timeline returns a contract-valid lesson plan with the requested number of
// sixty second segments. Callers mutate fields to provoke specific defects.
func Timeline(segments int) *timeline.Timeline {
	narration := strings.TrimSpace(strings.Repeat(
		"Teachers guide students through worked examples before independent practice begins. ", 5))
	summary := strings.TrimSpace(strings.Repeat(
		"How teachers structure lessons for long term retention. ", 2))

	tl := &timeline.Timeline{
		Version:              timeline.Version,
		Title:                "Structuring Effective Lessons",
		TopicSummary:         summary,
		TargetAgeGroup:       "adult educators",
		TotalDurationSeconds: testSegmentSeconds * float64(segments),
	}
	for i := 0; i < segments; i++ {
		tl.Segments = append(tl.Segments, timeline.Segment{
			SegmentID:        timeline.SegmentID(i),
			StartTimeSeconds: testSegmentSeconds * float64(i),
			DurationSeconds:  testSegmentSeconds,
			Slide: timeline.Slide{
				Title:        "Lesson Phase " + timeline.SegmentID(i),
				Bullets:      []string{"Set expectations", "Model the skill", "Check understanding"},
				VisualPrompt: "Minimalist classroom diagram with clear geometric shapes",
			},
			NarrationText: narration,
		})
	}
	return tl
}

// TimelineJSON marshals Timeline(segments) for use as model output fixtures.
func TimelineJSON(t testing.TB, segments int) []byte {
	t.Helper()
	data, err := Timeline(segments).Marshal()
	if err != nil {
		t.Fatalf("marshal fixture timeline: %v", err)
	}
	return data
}
