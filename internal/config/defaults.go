package config

const (
	defaultArtifactsDir              = "~/.local/share/lectern/artifacts"
	defaultLogDir                    = "~/.local/share/lectern/logs"
	defaultLogRetentionDays          = 60
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultAPIBind                   = "127.0.0.1:7474"
	defaultAPIMaxUploadMB            = 50
	defaultGeminiBaseURL             = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel               = "gemini-3-flash-preview"
	defaultGeminiImageModel          = "gemini-2.5-flash-image"
	defaultGeminiTimeoutSeconds      = 120
	defaultGeminiMaxConcurrent       = 3
	defaultTTSBaseURL                = "https://texttospeech.googleapis.com/v1"
	defaultTTSVoice                  = "en-US-Journey-F"
	defaultTTSLanguageCode           = "en-US"
	defaultTTSSpeakingRate           = 0.95
	defaultTTSTimeoutSeconds         = 60
	defaultRenderBaseURL             = "http://127.0.0.1:3000"
	defaultRenderTimeoutSeconds      = 600
	defaultRenderFPS                 = 30
	defaultRenderWidth               = 1920
	defaultRenderHeight              = 1080
	defaultNotifyRequestTimeout      = 10
	defaultWorkflowQueuePollInterval = 5
	defaultWorkflowMaxConcurrent     = 2
	defaultWorkflowRetryLimit        = 3
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArtifactsDir: defaultArtifactsDir,
			LogDir:       defaultLogDir,
		},
		API: API{
			Bind:        defaultAPIBind,
			MaxUploadMB: defaultAPIMaxUploadMB,
		},
		Gemini: Gemini{
			BaseURL:               defaultGeminiBaseURL,
			Model:                 defaultGeminiModel,
			ImageModel:            defaultGeminiImageModel,
			TimeoutSeconds:        defaultGeminiTimeoutSeconds,
			MaxConcurrentRequests: defaultGeminiMaxConcurrent,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Voice:          defaultTTSVoice,
			LanguageCode:   defaultTTSLanguageCode,
			SpeakingRate:   defaultTTSSpeakingRate,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Render: Render{
			BaseURL:        defaultRenderBaseURL,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
			FPS:            defaultRenderFPS,
			Width:          defaultRenderWidth,
			Height:         defaultRenderHeight,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobComplete:    true,
			JobFailed:      true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultWorkflowQueuePollInterval,
			MaxConcurrentJobs: defaultWorkflowMaxConcurrent,
			RetryLimit:        defaultWorkflowRetryLimit,
			HeartbeatInterval: defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:  defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
