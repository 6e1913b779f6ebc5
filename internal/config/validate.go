package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lectern/config.toml"
		}
		return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'lectern config init')", defaultPath)
	}
	if c.Gemini.MaxConcurrentRequests <= 0 {
		return errors.New("gemini.max_concurrent_requests must be positive")
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.APIKey == "" {
		return errors.New("tts.api_key is required. Set GOOGLE_TTS_API_KEY env var or edit the config file")
	}
	if c.TTS.SpeakingRate < 0.25 || c.TTS.SpeakingRate > 4.0 {
		return errors.New("tts.speaking_rate must be between 0.25 and 4.0")
	}
	return nil
}

func (c *Config) validateRender() error {
	if strings.TrimSpace(c.Render.BaseURL) == "" {
		return errors.New("render.base_url must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"render.fps":    c.Render.FPS,
		"render.width":  c.Render.Width,
		"render.height": c.Render.Height,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.Bind) == "" {
		return errors.New("api.bind must be set")
	}
	if c.API.MaxUploadMB <= 0 {
		return errors.New("api.max_upload_mb must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.max_concurrent_jobs":  c.Workflow.MaxConcurrentJobs,
		"gemini.timeout_seconds":        c.Gemini.TimeoutSeconds,
		"tts.timeout_seconds":           c.TTS.TimeoutSeconds,
		"render.timeout_seconds":        c.Render.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.RetryLimit < 0 {
		return errors.New("workflow.retry_limit must be >= 0")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
