package timeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version is the current timeline schema version.
const Version = "1.0"

// Bounds enforced by Validate. Durations are seconds.
const (
	MinSegments          = 3
	MaxSegments          = 20
	MinSegmentSeconds    = 5.0
	MaxSegmentSeconds    = 120.0
	MinTotalSeconds      = 180.0
	MaxTotalSeconds      = 900.0
	MaxTitleChars        = 200
	MinTopicSummaryChars = 50
	MaxTopicSummaryChars = 500
	MaxSlideTitleChars   = 100
	MaxBullets           = 5
	MinVisualPromptChars = 10
	MaxVisualPromptChars = 500
	MinNarrationChars    = 50
	MaxNarrationChars    = 2000
)

const (
	startToleranceSeconds = 0.01
	totalToleranceSeconds = 0.1
	shortNarrationWords   = 30
)

// Slide is the visual content for a single segment.
type Slide struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	VisualPrompt string   `json:"visual_prompt"`
}

// Segment pairs one slide with one narration clip. DurationSeconds is
// authoritative; audio is synthesized to fit it.
type Segment struct {
	SegmentID        string  `json:"segment_id"`
	StartTimeSeconds float64 `json:"start_time_seconds"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Slide            Slide   `json:"slide"`
	NarrationText    string  `json:"narration_text"`
}

// EndTimeSeconds returns the segment's end position on the timeline.
func (s Segment) EndTimeSeconds() float64 {
	return s.StartTimeSeconds + s.DurationSeconds
}

// Timeline is the complete video plan for one job.
type Timeline struct {
	Version              string    `json:"version"`
	Title                string    `json:"title"`
	TopicSummary         string    `json:"topic_summary"`
	TargetAgeGroup       string    `json:"target_age_group"`
	TotalDurationSeconds float64   `json:"total_duration_seconds"`
	Segments             []Segment `json:"segments"`
}

// SegmentID formats the canonical identifier for a zero-based segment index.
func SegmentID(index int) string {
	return fmt.Sprintf("seg_%03d", index+1)
}

// Parse decodes timeline JSON without validating it.
func Parse(data []byte) (*Timeline, error) {
	var tl Timeline
	if err := json.Unmarshal(data, &tl); err != nil {
		return nil, fmt.Errorf("parse timeline: %w", err)
	}
	return &tl, nil
}

// Marshal encodes the timeline with stable indentation for persistence.
func (t *Timeline) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal timeline: %w", err)
	}
	return data, nil
}

// Evaluate parses, normalizes, and validates model output in one pass. It is
// the gate between generation and persistence: the returned timeline is safe
// to store and render. Warnings flag quality concerns that do not reject the
// content.
func Evaluate(data []byte) (*Timeline, []string, error) {
	tl, err := Parse(data)
	if err != nil {
		return nil, nil, err
	}
	tl.normalize()
	warnings, err := tl.Validate()
	if err != nil {
		return nil, warnings, err
	}
	return tl, warnings, nil
}

func (t *Timeline) normalize() {
	if strings.TrimSpace(t.Version) == "" {
		t.Version = Version
	}
	t.Title = strings.TrimSpace(t.Title)
	t.TopicSummary = strings.TrimSpace(t.TopicSummary)
	t.TargetAgeGroup = strings.TrimSpace(t.TargetAgeGroup)
	for i := range t.Segments {
		seg := &t.Segments[i]
		seg.NarrationText = strings.TrimSpace(seg.NarrationText)
		seg.Slide.Title = strings.TrimSpace(seg.Slide.Title)
		seg.Slide.VisualPrompt = strings.TrimSpace(seg.Slide.VisualPrompt)
		bullets := make([]string, 0, len(seg.Slide.Bullets))
		for _, bullet := range seg.Slide.Bullets {
			bullets = append(bullets, strings.TrimSpace(bullet))
		}
		seg.Slide.Bullets = bullets
	}
}
