package remotion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "http://127.0.0.1:3000"
	defaultHTTPTimeout = 600 * time.Second
	defaultFPS         = 30
	defaultWidth       = 1920
	defaultHeight      = 1080
	healthCheckTimeout = 5 * time.Second
)

// Config captures the runtime settings for the Remotion render service.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
	FPS            int
	Width          int
	Height         int
}

// Client drives the Remotion render service. Rendering is a single
// long-running POST; the service writes the video to the requested output
// path on the shared filesystem.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a render client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
			FPS:            cfg.FPS,
			Width:          cfg.Width,
			Height:         cfg.Height,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.FPS <= 0 {
		client.cfg.FPS = defaultFPS
	}
	if client.cfg.Width <= 0 {
		client.cfg.Width = defaultWidth
	}
	if client.cfg.Height <= 0 {
		client.cfg.Height = defaultHeight
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Slide carries the visible content of one rendered segment.
type Slide struct {
	Title        string   `json:"title"`
	Bullets      []string `json:"bullets"`
	VisualPrompt string   `json:"visual_prompt"`
}

// Segment carries one timeline segment with its local asset references.
type Segment struct {
	SegmentID        string  `json:"segment_id"`
	StartTimeSeconds float64 `json:"start_time_seconds"`
	DurationSeconds  float64 `json:"duration_seconds"`
	Slide            Slide   `json:"slide"`
	NarrationText    string  `json:"narration_text"`
	AudioPath        string  `json:"audio_path,omitempty"`
	ImagePath        string  `json:"image_path,omitempty"`
}

// RenderRequest is the full payload sent to the render service.
type RenderRequest struct {
	JobID                string    `json:"job_id"`
	OutputPath           string    `json:"output_path"`
	FPS                  int       `json:"fps"`
	Width                int       `json:"width"`
	Height               int       `json:"height"`
	Title                string    `json:"title"`
	TotalDurationSeconds float64   `json:"total_duration_seconds"`
	Segments             []Segment `json:"segments"`
}

type renderResponse struct {
	Success              bool    `json:"success"`
	Error                string  `json:"error"`
	DurationSeconds      float64 `json:"duration_seconds"`
	RenderTimeSeconds    float64 `json:"render_time_seconds"`
	OutputSizeBytes      int64   `json:"output_size_bytes"`
	CompositionDurationS float64 `json:"composition_duration_seconds"`
}

// RenderResult reports what the render service produced.
type RenderResult struct {
	DurationSeconds   float64
	RenderTimeSeconds float64
	OutputSizeBytes   int64
}

// StatusError reports a non-2xx response from the render service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("render request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// RenderFailure reports that the render service accepted the request but the
// composition itself failed. Retrying without changing the inputs will fail
// the same way.
type RenderFailure struct {
	Message string
}

func (e *RenderFailure) Error() string {
	return "render failed: " + e.Message
}

// FPS returns the configured frame rate.
func (c *Client) FPS() int { return c.cfg.FPS }

// Width returns the configured output width.
func (c *Client) Width() int { return c.cfg.Width }

// Height returns the configured output height.
func (c *Client) Height() int { return c.cfg.Height }

// FileURL converts a local path into the file:// form the render service
// expects for asset references.
func FileURL(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + path
}

// Render submits a render request and blocks until the service reports the
// video is complete.
func (c *Client) Render(ctx context.Context, request RenderRequest) (*RenderResult, error) {
	if request.JobID == "" {
		return nil, errors.New("render: job id required")
	}
	if request.OutputPath == "" {
		return nil, errors.New("render: output path required")
	}
	if len(request.Segments) == 0 {
		return nil, errors.New("render: at least one segment required")
	}
	if request.FPS <= 0 {
		request.FPS = c.cfg.FPS
	}
	if request.Width <= 0 {
		request.Width = c.cfg.Width
	}
	if request.Height <= 0 {
		request.Height = c.cfg.Height
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "render")
	if err != nil {
		return nil, fmt.Errorf("render request: build url: %w", err)
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("render request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("render request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("render request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed renderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("render request: decode response: %w", err)
	}
	if !parsed.Success {
		message := strings.TrimSpace(parsed.Error)
		if message == "" {
			message = "unknown error"
		}
		return nil, &RenderFailure{Message: message}
	}
	return &RenderResult{
		DurationSeconds:   parsed.DurationSeconds,
		RenderTimeSeconds: parsed.RenderTimeSeconds,
		OutputSizeBytes:   parsed.OutputSizeBytes,
	}, nil
}

// HealthCheck verifies the render service responds on its health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "health")
	if err != nil {
		return fmt.Errorf("render health: build url: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("render health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("render health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}
