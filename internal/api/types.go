package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Job describes a pipeline job in a transport-friendly format.
type Job struct {
	ID                   string             `json:"id"`
	OriginalFilename     string             `json:"originalFilename"`
	PDFPath              string             `json:"pdfPath,omitempty"`
	Status               string             `json:"status"`
	Progress             JobProgress        `json:"progress"`
	ErrorMessage         string             `json:"errorMessage,omitempty"`
	ErrorStage           string             `json:"errorStage,omitempty"`
	ErrorKind            string             `json:"errorKind,omitempty"`
	RetryCount           int                `json:"retryCount"`
	CancelRequested      bool               `json:"cancelRequested"`
	Artifacts            *JobArtifacts      `json:"artifacts,omitempty"`
	VideoDurationSeconds float64            `json:"videoDurationSeconds,omitempty"`
	SlideCount           int                `json:"slideCount,omitempty"`
	StageDurations       map[string]float64 `json:"stageDurations,omitempty"`
	NextAttemptAt        string             `json:"nextAttemptAt,omitempty"`
	CreatedAt            string             `json:"createdAt,omitempty"`
	UpdatedAt            string             `json:"updatedAt,omitempty"`
	CompletedAt          string             `json:"completedAt,omitempty"`
}

// JobProgress captures stage progress information for a job.
type JobProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// JobArtifacts groups the artifact references a job has produced so far.
type JobArtifacts struct {
	TextPath     string `json:"textPath,omitempty"`
	TimelinePath string `json:"timelinePath,omitempty"`
	ImagesDir    string `json:"imagesDir,omitempty"`
	AudioDir     string `json:"audioDir,omitempty"`
	VideoPath    string `json:"videoPath,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastJob     *Job           `json:"lastJob,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// PreflightCheck reports one startup environment check.
type PreflightCheck struct {
	Name     string `json:"name"`
	Optional bool   `json:"optional"`
	Ready    bool   `json:"ready"`
	Detail   string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool             `json:"running"`
	PID          int              `json:"pid"`
	QueueDBPath  string           `json:"queueDbPath"`
	LockFilePath string           `json:"lockFilePath"`
	LogPath      string           `json:"logPath,omitempty"`
	Workflow     WorkflowStatus   `json:"workflow"`
	Preflight    []PreflightCheck `json:"preflight"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// JobListResponse wraps one page of jobs for API responses.
type JobListResponse struct {
	Jobs       []Job `json:"jobs"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int   `json:"totalCount"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// LogTailResponse carries a window of daemon log lines. NextOffset is the byte
// offset to pass on the following request to continue where this window ended.
type LogTailResponse struct {
	Path       string   `json:"path,omitempty"`
	Lines      []string `json:"lines"`
	NextOffset int64    `json:"nextOffset"`
}
