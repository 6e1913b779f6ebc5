package ipc

import "lectern/internal/api"

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Job mirrors the HTTP API job DTO for internal IPC callers.
type Job = api.Job

// StageHealth describes readiness of a pipeline stage.
type StageHealth = api.StageHealth

// PreflightCheck describes one startup readiness check.
type PreflightCheck = api.PreflightCheck

// RetryOutcome reports the per-job result of a retry request.
type RetryOutcome = api.RetryJobResult

// StopOutcome reports the per-job result of a stop request.
type StopOutcome = api.StopJobResult

// RemoveOutcome reports the per-job result of a remove request.
type RemoveOutcome = api.RemoveJobResult

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running     bool             `json:"running"`
	QueueStats  map[string]int   `json:"queue_stats"`
	LastError   string           `json:"last_error"`
	LastJob     *Job             `json:"last_job"`
	LockPath    string           `json:"lock_path"`
	QueueDBPath string           `json:"queue_db_path"`
	LogPath     string           `json:"log_path"`
	StageHealth []StageHealth    `json:"stage_health"`
	Preflight   []PreflightCheck `json:"preflight"`
	PID         int              `json:"pid"`
}

// JobListRequest filters job listing by status.
type JobListRequest struct {
	Statuses []string `json:"statuses"`
}

// JobListResponse contains job entries.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobDescribeRequest fetches a single job by id.
type JobDescribeRequest struct {
	ID string `json:"id"`
}

// JobDescribeResponse contains a single job.
type JobDescribeResponse struct {
	Job Job `json:"job"`
}

// JobRetryRequest retries failed jobs. Empty list means all failed jobs.
type JobRetryRequest struct {
	IDs []string `json:"ids"`
}

// JobRetryResponse reports retried jobs. Outcomes are only populated for
// explicit id lists.
type JobRetryResponse struct {
	Updated  int64          `json:"updated"`
	Outcomes []RetryOutcome `json:"outcomes,omitempty"`
}

// JobStopRequest requests cancellation of jobs. Empty list is invalid.
type JobStopRequest struct {
	IDs []string `json:"ids"`
}

// JobStopResponse reports stopped jobs.
type JobStopResponse struct {
	Updated  int64         `json:"updated"`
	Outcomes []StopOutcome `json:"outcomes,omitempty"`
}

// JobRemoveRequest removes job records and artifacts. Empty list is invalid.
type JobRemoveRequest struct {
	IDs []string `json:"ids"`
}

// JobRemoveResponse reports removed jobs.
type JobRemoveResponse struct {
	Removed  int64           `json:"removed"`
	Outcomes []RemoveOutcome `json:"outcomes,omitempty"`
}

// SubmitFileRequest enqueues a local PDF by path.
type SubmitFileRequest struct {
	Path string `json:"path"`
}

// SubmitFileResponse contains the enqueued job.
type SubmitFileResponse struct {
	Job Job `json:"job"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports job counts per lifecycle state.
type QueueHealthResponse struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalJobs        int      `json:"total_jobs"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
