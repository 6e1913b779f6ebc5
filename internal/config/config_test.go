package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lectern/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")
	t.Setenv("GOOGLE_TTS_API_KEY", "test-tts-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantArtifacts := filepath.Join(tempHome, ".local", "share", "lectern", "artifacts")
	if cfg.Paths.ArtifactsDir != wantArtifacts {
		t.Fatalf("unexpected artifacts dir: got %q want %q", cfg.Paths.ArtifactsDir, wantArtifacts)
	}
	if cfg.Paths.InboxDir != "" {
		t.Fatalf("expected inbox dir disabled by default, got %q", cfg.Paths.InboxDir)
	}
	if cfg.API.Bind != "127.0.0.1:7474" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.API.MaxUploadMB != 50 {
		t.Fatalf("unexpected upload limit: %d", cfg.API.MaxUploadMB)
	}
	if cfg.Gemini.APIKey != "test-gemini-key" {
		t.Fatalf("expected Gemini key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.TTS.APIKey != "test-tts-key" {
		t.Fatalf("expected TTS key from env, got %q", cfg.TTS.APIKey)
	}
	if cfg.Gemini.Model != config.Default().Gemini.Model {
		t.Fatalf("unexpected Gemini model: %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.MaxConcurrentRequests != 3 {
		t.Fatalf("unexpected Gemini concurrency: %d", cfg.Gemini.MaxConcurrentRequests)
	}
	if cfg.TTS.Voice != "en-US-Journey-F" {
		t.Fatalf("unexpected TTS voice: %q", cfg.TTS.Voice)
	}
	if cfg.TTS.SpeakingRate != 0.95 {
		t.Fatalf("unexpected speaking rate: %v", cfg.TTS.SpeakingRate)
	}
	if cfg.Render.FPS != 30 || cfg.Render.Width != 1920 || cfg.Render.Height != 1080 {
		t.Fatalf("unexpected render geometry: %d %dx%d", cfg.Render.FPS, cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Workflow.RetryLimit != 3 {
		t.Fatalf("unexpected retry limit: %d", cfg.Workflow.RetryLimit)
	}
	if cfg.Workflow.HeartbeatTimeout <= cfg.Workflow.HeartbeatInterval {
		t.Fatalf("heartbeat timeout %d not greater than interval %d", cfg.Workflow.HeartbeatTimeout, cfg.Workflow.HeartbeatInterval)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.ArtifactsDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "lectern.toml")

	type payload struct {
		Gemini struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"gemini"`
		TTS struct {
			APIKey       string  `toml:"api_key"`
			SpeakingRate float64 `toml:"speaking_rate"`
		} `toml:"tts"`
		Render struct {
			BaseURL string `toml:"base_url"`
			FPS     int    `toml:"fps"`
		} `toml:"render"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Gemini.APIKey = "abc123"
	custom.Gemini.BaseURL = "https://example.com/gemini"
	custom.TTS.APIKey = "def456"
	custom.TTS.SpeakingRate = 1.1
	custom.Render.BaseURL = "http://render.local:3000"
	custom.Render.FPS = 24
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Gemini.APIKey != "abc123" {
		t.Fatalf("expected Gemini key from file, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Gemini.BaseURL != "https://example.com/gemini" {
		t.Fatalf("expected Gemini base url override, got %q", cfg.Gemini.BaseURL)
	}
	if cfg.TTS.SpeakingRate != 1.1 {
		t.Fatalf("expected speaking rate 1.1, got %v", cfg.TTS.SpeakingRate)
	}
	if cfg.Render.BaseURL != "http://render.local:3000" {
		t.Fatalf("expected render base url override, got %q", cfg.Render.BaseURL)
	}
	if cfg.Render.FPS != 24 {
		t.Fatalf("expected fps 24, got %d", cfg.Render.FPS)
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
}

func TestTTSKeyFallsBackToGeminiEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "shared-key")
	t.Setenv("GOOGLE_TTS_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TTS.APIKey != "shared-key" {
		t.Fatalf("expected TTS key to fall back to GEMINI_API_KEY, got %q", cfg.TTS.APIKey)
	}
}

func TestLoadFailsWithoutGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_TTS_API_KEY", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	_, _, _, err := config.Load("")
	if err == nil {
		t.Fatal("expected error when Gemini key missing")
	}
	if !strings.Contains(err.Error(), "gemini.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsHeartbeatTimeoutBelowInterval(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GOOGLE_TTS_API_KEY", "key")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "lectern.toml")
	content := "[workflow]\nheartbeat_interval = 30\nheartbeat_timeout = 30\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for heartbeat timeout <= interval")
	}
	if !strings.Contains(err.Error(), "heartbeat_timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeLoggingCanonicalizesFormat(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("GOOGLE_TTS_API_KEY", "key")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "lectern.toml")
	content := "[logging]\nformat = \"JSON\"\nlevel = \"DEBUG\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	tempDir := t.TempDir()
	samplePath := filepath.Join(tempDir, "nested", "config.toml")

	if err := config.CreateSample(samplePath); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(samplePath)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[gemini]") {
		t.Fatal("expected sample to document the gemini section")
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
}
