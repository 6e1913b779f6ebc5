package timeline

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError reports every defect found in a timeline.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "timeline validation failed: " + strings.Join(e.Problems, "; ")
}

// Validate checks the timeline against the contract bounds. All problems are
// collected before returning. Warnings describe quality concerns (such as
// unusually short narration) that do not make the timeline invalid.
func (t *Timeline) Validate() ([]string, error) {
	var problems []string
	var warnings []string

	if t.Title == "" {
		problems = append(problems, "title is empty")
	} else if len(t.Title) > MaxTitleChars {
		problems = append(problems, fmt.Sprintf("title exceeds %d characters", MaxTitleChars))
	}
	if len(t.TopicSummary) < MinTopicSummaryChars {
		problems = append(problems, fmt.Sprintf("topic_summary shorter than %d characters", MinTopicSummaryChars))
	} else if len(t.TopicSummary) > MaxTopicSummaryChars {
		problems = append(problems, fmt.Sprintf("topic_summary exceeds %d characters", MaxTopicSummaryChars))
	}
	if t.TargetAgeGroup == "" {
		problems = append(problems, "target_age_group is empty")
	}

	if len(t.Segments) < MinSegments {
		problems = append(problems, fmt.Sprintf("too few segments: %d (minimum %d)", len(t.Segments), MinSegments))
	}
	if len(t.Segments) > MaxSegments {
		problems = append(problems, fmt.Sprintf("too many segments: %d (maximum %d)", len(t.Segments), MaxSegments))
	}

	if len(t.Segments) > 0 && t.Segments[0].StartTimeSeconds != 0 {
		problems = append(problems, "first segment must start at time 0")
	}

	var calculated float64
	for i := range t.Segments {
		seg := &t.Segments[i]
		prefix := fmt.Sprintf("segment %d (%s)", i+1, seg.SegmentID)

		if expected := SegmentID(i); seg.SegmentID != expected {
			problems = append(problems, fmt.Sprintf("%s: id should be %s", prefix, expected))
		}
		if math.Abs(seg.StartTimeSeconds-calculated) > startToleranceSeconds {
			problems = append(problems, fmt.Sprintf("%s: start_time_seconds should be %.2f, got %.2f", prefix, calculated, seg.StartTimeSeconds))
		}
		if seg.DurationSeconds <= MinSegmentSeconds {
			problems = append(problems, fmt.Sprintf("%s: duration too short (%.2fs, must exceed %.0fs)", prefix, seg.DurationSeconds, MinSegmentSeconds))
		}
		if seg.DurationSeconds > MaxSegmentSeconds {
			problems = append(problems, fmt.Sprintf("%s: duration too long (%.2fs, max %.0fs)", prefix, seg.DurationSeconds, MaxSegmentSeconds))
		}
		calculated += seg.DurationSeconds

		if seg.Slide.Title == "" {
			problems = append(problems, prefix+": slide title is empty")
		} else if len(seg.Slide.Title) > MaxSlideTitleChars {
			problems = append(problems, fmt.Sprintf("%s: slide title exceeds %d characters", prefix, MaxSlideTitleChars))
		}
		if len(seg.Slide.Bullets) == 0 {
			problems = append(problems, prefix+": slide has no bullets")
		} else if len(seg.Slide.Bullets) > MaxBullets {
			problems = append(problems, fmt.Sprintf("%s: slide has %d bullets (maximum %d)", prefix, len(seg.Slide.Bullets), MaxBullets))
		}
		for _, bullet := range seg.Slide.Bullets {
			if bullet == "" {
				problems = append(problems, prefix+": slide bullets must be non-empty")
				break
			}
		}
		if len(seg.Slide.VisualPrompt) < MinVisualPromptChars {
			problems = append(problems, fmt.Sprintf("%s: visual_prompt shorter than %d characters", prefix, MinVisualPromptChars))
		} else if len(seg.Slide.VisualPrompt) > MaxVisualPromptChars {
			problems = append(problems, fmt.Sprintf("%s: visual_prompt exceeds %d characters", prefix, MaxVisualPromptChars))
		}

		if len(seg.NarrationText) < MinNarrationChars {
			problems = append(problems, fmt.Sprintf("%s: narration_text shorter than %d characters", prefix, MinNarrationChars))
		} else if len(seg.NarrationText) > MaxNarrationChars {
			problems = append(problems, fmt.Sprintf("%s: narration_text exceeds %d characters", prefix, MaxNarrationChars))
		}
		if words := len(strings.Fields(seg.NarrationText)); words > 0 && words < shortNarrationWords {
			warnings = append(warnings, fmt.Sprintf("%s: narration_text is short (%d words)", prefix, words))
		}
	}

	if math.Abs(calculated-t.TotalDurationSeconds) > totalToleranceSeconds {
		problems = append(problems, fmt.Sprintf("total_duration_seconds (%.2f) does not match sum of segments (%.2f)", t.TotalDurationSeconds, calculated))
	}
	if calculated < MinTotalSeconds {
		problems = append(problems, fmt.Sprintf("video too short: %.2fs (minimum %.0fs)", calculated, MinTotalSeconds))
	}
	if calculated > MaxTotalSeconds {
		problems = append(problems, fmt.Sprintf("video too long: %.2fs (maximum %.0fs)", calculated, MaxTotalSeconds))
	}

	if len(problems) > 0 {
		return warnings, &ValidationError{Problems: problems}
	}
	return warnings, nil
}
