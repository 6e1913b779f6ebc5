package googletts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://texttospeech.googleapis.com/v1"
	defaultVoice        = "en-US-Journey-F"
	defaultLanguageCode = "en-US"
	defaultSpeakingRate = 0.95
	defaultHTTPTimeout  = 60 * time.Second
	healthCheckTimeout  = 5 * time.Second
)

// Config captures the runtime settings required to talk to the Cloud
// Text-to-Speech API.
type Config struct {
	APIKey         string
	BaseURL        string
	Voice          string
	LanguageCode   string
	SpeakingRate   float64
	TimeoutSeconds int
}

// Client wraps the text:synthesize REST endpoint. Narration is synthesized
// one segment at a time; failures surface to the caller, which owns retry.
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

// NewClient constructs a TTS client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Voice:          strings.TrimSpace(cfg.Voice),
			LanguageCode:   strings.TrimSpace(cfg.LanguageCode),
			SpeakingRate:   cfg.SpeakingRate,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Voice == "" {
		client.cfg.Voice = defaultVoice
	}
	if client.cfg.LanguageCode == "" {
		client.cfg.LanguageCode = defaultLanguageCode
	}
	if client.cfg.SpeakingRate <= 0 {
		client.cfg.SpeakingRate = defaultSpeakingRate
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// StatusError reports a non-2xx response from the TTS API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tts request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type synthesizeRequest struct {
	Input       synthesisInput  `json:"input"`
	Voice       voiceSelection  `json:"voice"`
	AudioConfig audioConfigSpec `json:"audioConfig"`
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
	SSMLGender   string `json:"ssmlGender"`
}

type audioConfigSpec struct {
	AudioEncoding string  `json:"audioEncoding"`
	SpeakingRate  float64 `json:"speakingRate"`
	Pitch         float64 `json:"pitch"`
	VolumeGainDb  float64 `json:"volumeGainDb"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts narration text to MP3 bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, errors.New("tts synthesize: api key required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("tts synthesize: text required")
	}

	payload := synthesizeRequest{
		Input: synthesisInput{Text: text},
		Voice: voiceSelection{
			LanguageCode: c.cfg.LanguageCode,
			Name:         c.cfg.Voice,
			SSMLGender:   "FEMALE",
		},
		AudioConfig: audioConfigSpec{
			AudioEncoding: "MP3",
			SpeakingRate:  c.cfg.SpeakingRate,
			Pitch:         0,
			VolumeGainDb:  0,
		},
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "text:synthesize")
	if err != nil {
		return nil, fmt.Errorf("tts request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tts request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("tts request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed synthesizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("tts request: decode response: %w", err)
	}
	if parsed.AudioContent == "" {
		return nil, errors.New("tts synthesize: no audio content in response")
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("tts synthesize: empty audio content")
	}
	return audio, nil
}

// HealthCheck verifies the API key can list voices for the configured language.
func (c *Client) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return errors.New("tts health: api key required")
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "voices")
	if err != nil {
		return fmt.Errorf("tts health: build url: %w", err)
	}
	endpoint += "?languageCode=" + url.QueryEscape(c.cfg.LanguageCode)

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("tts health: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts health: %w", err)
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
