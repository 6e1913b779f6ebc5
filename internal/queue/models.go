package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Stage identifies one step of the fixed production pipeline.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageGenerate Stage = "generate"
	StageImages   Stage = "images"
	StageTTS      Stage = "tts"
	StageRender   Stage = "render"
)

// UserStopReason is the error message set when a user explicitly stops a job.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the progress message set when jobs are released due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var allStages = []Stage{
	StageExtract,
	StageGenerate,
	StageImages,
	StageTTS,
	StageRender,
}

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

// Job represents a pipeline job persisted in SQLite.
type Job struct {
	ID                   string
	OriginalFilename     string
	PDFPath              string
	Status               Status
	CurrentStage         Stage
	ProgressPercent      float64
	ProgressMessage      string
	TextPath             string
	TimelinePath         string
	ImagesDir            string
	AudioDir             string
	VideoPath            string
	VideoDurationSeconds float64
	SlideCount           int
	ErrorMessage         string
	ErrorStage           Stage
	ErrorKind            string
	RetryCount           int
	CancelRequested      bool
	StageDurationsJSON   string
	NextAttemptAt        *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	StageStartedAt       *time.Time
	CompletedAt          *time.Time
	LastHeartbeat        *time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// IsProcessing returns true when the job reflects an in-flight stage execution.
func (j Job) IsProcessing() bool {
	return j.Status == StatusProcessing
}

// IsTerminal reports whether the job reached completed, failed, or cancelled.
func (j Job) IsTerminal() bool {
	return IsTerminal(j.Status)
}

// NextStage derives the next pipeline stage from recorded artifact references.
// The pipeline re-enters at the first stage whose artifact is missing, which
// makes interrupted or retried jobs resume without separate cursor state. The
// second return is false once every artifact is present.
func (j Job) NextStage() (Stage, bool) {
	switch {
	case j.TextPath == "":
		return StageExtract, true
	case j.TimelinePath == "":
		return StageGenerate, true
	case j.ImagesDir == "":
		return StageImages, true
	case j.AudioDir == "":
		return StageTTS, true
	case j.VideoPath == "":
		return StageRender, true
	default:
		return "", false
	}
}

// InitProgress resets progress fields for a new stage execution.
func (j *Job) InitProgress(message string) {
	j.ProgressMessage = message
	j.ProgressPercent = 0
	j.ErrorMessage = ""
}

// SetProgress updates both progress fields together.
func (j *Job) SetProgress(message string, percent float64) {
	j.ProgressMessage = message
	j.ProgressPercent = percent
}

// StageDurations decodes the per-stage wall clock seconds recorded so far.
func (j Job) StageDurations() map[Stage]float64 {
	durations := make(map[Stage]float64)
	if strings.TrimSpace(j.StageDurationsJSON) == "" {
		return durations
	}
	if err := json.Unmarshal([]byte(j.StageDurationsJSON), &durations); err != nil {
		return make(map[Stage]float64)
	}
	return durations
}

// RecordStageDuration stores the wall clock seconds for a completed stage.
func (j *Job) RecordStageDuration(stage Stage, seconds float64) {
	durations := j.StageDurations()
	durations[stage] = seconds
	encoded, err := json.Marshal(durations)
	if err != nil {
		return
	}
	j.StageDurationsJSON = string(encoded)
}
