package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, original_filename, pdf_path, status, current_stage, progress_percent, progress_message, text_path, timeline_path, images_dir, audio_dir, video_path, video_duration_seconds, slide_count, error_message, error_stage, error_kind, retry_count, cancel_requested, stage_durations_json, next_attempt_at, created_at, updated_at, stage_started_at, completed_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               string
		originalFilename string
		pdfPath          sql.NullString
		statusStr        string
		currentStage     sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		textPath         sql.NullString
		timelinePath     sql.NullString
		imagesDir        sql.NullString
		audioDir         sql.NullString
		videoPath        sql.NullString
		videoDuration    sql.NullFloat64
		slideCount       sql.NullInt64
		errorMessage     sql.NullString
		errorStage       sql.NullString
		errorKind        sql.NullString
		retryCount       sql.NullInt64
		cancelRequested  sql.NullInt64
		stageDurations   sql.NullString
		nextAttemptRaw   sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		stageStartedRaw  sql.NullString
		completedRaw     sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&originalFilename,
		&pdfPath,
		&statusStr,
		&currentStage,
		&progressPercent,
		&progressMessage,
		&textPath,
		&timelinePath,
		&imagesDir,
		&audioDir,
		&videoPath,
		&videoDuration,
		&slideCount,
		&errorMessage,
		&errorStage,
		&errorKind,
		&retryCount,
		&cancelRequested,
		&stageDurations,
		&nextAttemptRaw,
		&createdRaw,
		&updatedRaw,
		&stageStartedRaw,
		&completedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:                   id,
		OriginalFilename:     originalFilename,
		PDFPath:              pdfPath.String,
		Status:               Status(statusStr),
		CurrentStage:         Stage(currentStage.String),
		ProgressPercent:      progressPercent.Float64,
		ProgressMessage:      progressMessage.String,
		TextPath:             textPath.String,
		TimelinePath:         timelinePath.String,
		ImagesDir:            imagesDir.String,
		AudioDir:             audioDir.String,
		VideoPath:            videoPath.String,
		VideoDurationSeconds: videoDuration.Float64,
		SlideCount:           int(slideCount.Int64),
		ErrorMessage:         errorMessage.String,
		ErrorStage:           Stage(errorStage.String),
		ErrorKind:            errorKind.String,
		RetryCount:           int(retryCount.Int64),
		StageDurationsJSON:   stageDurations.String,
	}
	if cancelRequested.Valid {
		job.CancelRequested = cancelRequested.Int64 != 0
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if nextAttemptRaw.Valid {
		if next, err := parseTimeString(nextAttemptRaw.String); err == nil {
			job.NextAttemptAt = &next
		}
	}
	if stageStartedRaw.Valid {
		if started, err := parseTimeString(stageStartedRaw.String); err == nil {
			job.StageStartedAt = &started
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func nullableFloat(value float64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
