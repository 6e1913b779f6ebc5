package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKindValidation is the persisted error kind for content that failed
// timeline validation. Generation failures of this kind are not retryable.
const ErrorKindValidation = "validation"

// UpdateTransition persists a lifecycle transition using compare-and-swap
// semantics. The write applies only when the stored (status, current_stage)
// still equals (fromStatus, fromStage); otherwise the job was claimed or
// finished by a concurrent writer and ErrConflict is returned. job carries the
// full target state, including artifact references and retry bookkeeping.
func (s *Store) UpdateTransition(ctx context.Context, job *Job, fromStatus Status, fromStage Stage) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, current_stage = ?, progress_percent = ?, progress_message = ?,
             pdf_path = ?, text_path = ?, timeline_path = ?, images_dir = ?, audio_dir = ?,
             video_path = ?, video_duration_seconds = ?, slide_count = ?, error_message = ?,
             error_stage = ?, error_kind = ?, retry_count = ?, cancel_requested = ?,
             stage_durations_json = ?, next_attempt_at = ?, updated_at = ?,
             stage_started_at = ?, completed_at = ?, last_heartbeat = ?
         WHERE id = ? AND status = ? AND current_stage IS ?`,
		job.Status,
		nullableString(string(job.CurrentStage)),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		nullableString(job.PDFPath),
		nullableString(job.TextPath),
		nullableString(job.TimelinePath),
		nullableString(job.ImagesDir),
		nullableString(job.AudioDir),
		nullableString(job.VideoPath),
		nullableFloat(job.VideoDurationSeconds),
		nullableInt(job.SlideCount),
		nullableString(job.ErrorMessage),
		nullableString(string(job.ErrorStage)),
		nullableString(job.ErrorKind),
		job.RetryCount,
		boolToInt(job.CancelRequested),
		nullableString(job.StageDurationsJSON),
		nullableTime(job.NextAttemptAt),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.StageStartedAt),
		nullableTime(job.CompletedAt),
		nullableTime(job.LastHeartbeat),
		job.ID,
		fromStatus,
		nullableString(string(fromStage)),
	)
	if err != nil {
		return fmt.Errorf("update job %s: %w", job.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := s.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("update job %s: %w", job.ID, ErrNotFound)
	}
	return fmt.Errorf("update job %s from %s/%s: %w", job.ID, fromStatus, fromStage, ErrConflict)
}

// SetProgress records advisory progress for an in-flight job. The write is
// guarded by the processing status rather than the CAS so a concurrent
// terminal transition always wins; a guard miss is not an error.
func (s *Store) SetProgress(ctx context.Context, id string, message string, percent float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET progress_percent = ?, progress_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		percent,
		nullableString(message),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// RequestCancel flags an active job for cancellation. The pipeline observes
// the flag at the next stage boundary; terminal jobs are left untouched.
// Returns true when the flag was newly set.
func (s *Store) RequestCancel(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ?
         WHERE id = ? AND status IN (?, ?) AND cancel_requested = 0`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusPending,
		StatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetStuckProcessing returns all processing jobs to pending. Called once at
// daemon startup while the instance lock is held, so no stage can be running.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, current_stage = NULL, progress_percent = 0,
             progress_message = 'Reset from interrupted processing',
             last_heartbeat = NULL, stage_started_at = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseProcessing returns every processing job to pending with a shutdown
// notice. Called while the daemon is stopping; recorded artifacts survive, so
// released jobs resume at their first missing artifact on the next start.
func (s *Store) ReleaseProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, current_stage = NULL, progress_percent = 0,
             progress_message = ?, last_heartbeat = NULL, stage_started_at = NULL, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		DaemonStopReason,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("release processing jobs: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing returns processing jobs with expired heartbeats to
// pending. Recorded artifacts survive, so a reclaimed job resumes at the
// stage it was executing when its worker died.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, current_stage = NULL, progress_percent = 0,
             progress_message = 'Reclaimed from stale processing',
             last_heartbeat = NULL, stage_started_at = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// CanRetry reports whether a failed job may be queued again. Generation
// failures caused by content validation are rejected; the model output was
// structurally unusable and rerunning the same input cannot fix it.
func CanRetry(job *Job) error {
	if job == nil {
		return ErrNotFound
	}
	if job.Status != StatusFailed {
		return fmt.Errorf("job %s is %s; only failed jobs can be retried", job.ID, job.Status)
	}
	if job.ErrorStage == StageGenerate && job.ErrorKind == ErrorKindValidation {
		return fmt.Errorf("%w: generated timeline failed validation, submit the document again", ErrRetryNotAllowed)
	}
	return nil
}

// RetryFailed moves failed jobs back to pending for reprocessing. With no ids
// every eligible failed job is retried. Jobs whose generation output failed
// validation are skipped; error fields and retry counters reset so the job
// re-enters the pipeline at its first missing artifact with a fresh budget.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	setClause := `SET status = ?, current_stage = NULL, progress_percent = 0,
            progress_message = 'Retry requested', error_message = NULL,
            error_stage = NULL, error_kind = NULL, retry_count = 0,
            next_attempt_at = NULL, cancel_requested = 0, updated_at = ?`
	guardClause := ` AND NOT (error_stage = ? AND error_kind = ?)`

	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs `+setClause+` WHERE status = ?`+guardClause,
			StatusPending,
			timestamp,
			StatusFailed,
			StageGenerate,
			ErrorKindValidation,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+5)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed, StageGenerate, ErrorKindValidation)
	query := `UPDATE jobs ` + setClause + ` WHERE id IN (` + placeholders + `) AND status = ?` + guardClause
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}
