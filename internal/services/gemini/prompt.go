package gemini

import "fmt"

const timelinePromptTemplate = `You are an expert educational content designer creating teacher training videos.

TASK: Analyze this curriculum chapter and create a detailed video timeline for training teachers on how to teach this topic effectively.

SOURCE DOCUMENT: %s

CONTENT:
%s

---

Create a teacher training video timeline following these requirements:

1. VIDEO STRUCTURE:
   - Total duration: 5-10 minutes (300-600 seconds)
   - 5-12 segments, each 30-90 seconds
   - Each segment focuses on ONE teaching concept or technique

2. SEGMENT CONTENT:
   - Title: Clear, actionable headline (e.g., "Introducing the Water Cycle")
   - Bullets: 2-4 key teaching points teachers should convey
   - Narration: Full script for teacher training (what the narrator will say)
   - Visual prompt: Description for generating a clean, educational slide background

3. PEDAGOGICAL FOCUS:
   - Explain HOW to teach concepts, not just WHAT the concepts are
   - Include age-appropriate teaching strategies
   - Suggest real-world examples and analogies
   - Address common student misconceptions
   - Include engagement techniques (questions, activities)

4. SLIDE VISUALS:
   - Clean, minimalist, pedagogy-focused
   - Educational diagrams, not decorative art
   - Professional, not cartoonish

OUTPUT FORMAT (strict JSON):
{
  "version": "1.0",
  "title": "Teacher Training: [Topic Name]",
  "topic_summary": "Brief summary of what teachers will learn",
  "target_age_group": "Age range of students (e.g., '10-12 years')",
  "total_duration_seconds": [total duration],
  "segments": [
    {
      "segment_id": "seg_001",
      "start_time_seconds": 0,
      "duration_seconds": [duration],
      "slide": {
        "title": "Segment Title",
        "bullets": ["Point 1", "Point 2", "Point 3"],
        "visual_prompt": "Description for slide image generation"
      },
      "narration_text": "Full narration script for this segment..."
    },
    ...
  ]
}

CRITICAL REQUIREMENTS:
- Segments must be sequential (seg_001, seg_002, etc.)
- start_time_seconds must equal the sum of previous segment durations
- No gaps or overlaps between segments
- All narration_text must be substantial (50-300 words per segment)
- All fields are required and must be non-empty

Generate the complete timeline JSON now:`

const imagePromptTemplate = `Create a clean, minimalist slide background image for an educational presentation.

SLIDE TITLE: %s

VISUAL CONCEPT: %s

STYLE REQUIREMENTS:
- Clean and professional, suitable for teacher training
- Minimalist design with subtle educational elements
- Soft, muted colors that won't distract from text overlay
- No text or words in the image
- No photorealistic people or faces
- Simple diagrams or abstract representations preferred
- 16:9 aspect ratio (1920x1080)
- Leave center area relatively clear for text overlay

Generate a single image that serves as an effective slide background.`

func buildTimelinePrompt(filename, documentText string) string {
	return fmt.Sprintf(timelinePromptTemplate, filename, documentText)
}

func buildImagePrompt(slideTitle, visualPrompt string) string {
	return fmt.Sprintf(imagePromptTemplate, slideTitle, visualPrompt)
}
