package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const imageTemperature = 0.4

// ErrNoImage reports a well-formed model response that contained no image
// data. Callers may substitute a placeholder slide in that case.
var ErrNoImage = errors.New("gemini image: response contained no image data")

// GeneratedImage holds decoded image bytes and their mime type.
type GeneratedImage struct {
	MimeType string
	Data     []byte
}

// GenerateImage asks the image model for a slide background matching the
// visual prompt. The slide title is included for context only.
func (c *Client) GenerateImage(ctx context.Context, slideTitle, visualPrompt string) (*GeneratedImage, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("gemini image: api key required")
	}
	if strings.TrimSpace(visualPrompt) == "" {
		return nil, errors.New("gemini image: visual prompt required")
	}

	payload := generateContentRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildImagePrompt(slideTitle, visualPrompt)}},
		}},
		GenerationConfig: &generationConfig{
			Temperature: imageTemperature,
		},
	}

	response, err := c.generateWithRetry(ctx, c.cfg.ImageModel, payload, "gemini image")
	if err != nil {
		return nil, err
	}

	for _, candidate := range response.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || !strings.HasPrefix(p.InlineData.MimeType, "image/") {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini image: decode inline data: %w", err)
			}
			if len(data) == 0 {
				continue
			}
			return &GeneratedImage{MimeType: p.InlineData.MimeType, Data: data}, nil
		}
	}
	return nil, ErrNoImage
}
