package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	timelineTemperature     = 0.7
	timelineTopP            = 0.95
	timelineMaxOutputTokens = 8192
)

// GenerateTimeline asks the content model to produce a timeline for the
// supplied document text and returns the raw JSON payload. The caller is
// responsible for validating the timeline contract.
func (c *Client) GenerateTimeline(ctx context.Context, filename, documentText string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("gemini timeline: api key required")
	}
	if strings.TrimSpace(documentText) == "" {
		return nil, errors.New("gemini timeline: document text required")
	}

	payload := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildTimelinePrompt(filename, documentText)}},
		}},
		GenerationConfig: &generationConfig{
			Temperature:      timelineTemperature,
			TopP:             timelineTopP,
			MaxOutputTokens:  timelineMaxOutputTokens,
			ResponseMimeType: "application/json",
		},
	}

	response, err := c.generateWithRetry(ctx, c.cfg.Model, payload, "gemini timeline")
	if err != nil {
		return nil, err
	}

	text, finishReason := textFromResponse(response)
	if text == "" {
		return nil, &emptyContentError{Op: "gemini timeline", FinishReason: finishReason, Snippet: "<no text parts>"}
	}
	raw, err := ExtractJSONPayload(text)
	if err != nil {
		return nil, fmt.Errorf("gemini timeline: %w", err)
	}
	return []byte(raw), nil
}

// HealthCheck verifies the API key and content model respond.
func (c *Client) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("gemini health: api key required")
	}
	payload := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: `Respond with {"ok":true}`}},
		}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
		},
	}
	response, err := c.generateWithRetry(ctx, c.cfg.Model, payload, "gemini health")
	if err != nil {
		return err
	}
	text, finishReason := textFromResponse(response)
	if text == "" {
		return &emptyContentError{Op: "gemini health", FinishReason: finishReason, Snippet: "<no text parts>"}
	}
	if _, err := ExtractJSONPayload(text); err != nil {
		return fmt.Errorf("gemini health: %w", err)
	}
	return nil
}
