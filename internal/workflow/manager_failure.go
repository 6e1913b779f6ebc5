package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// handleStageFailure classifies a stage error and persists the outcome:
// cancelled when the user asked for a stop, pending with a scheduled attempt
// when the failure is transient and budget remains, failed otherwise.
func (m *Manager) handleStageFailure(ctx context.Context, stageName queue.Stage, job *queue.Job, stageErr error) {
	logger := m.stageLogger(ctx, m.logger).With(logging.String(logging.FieldComponent, "workflow-manager"))

	m.refreshCancelFlag(ctx, job)

	message := failureMessage(stageName, stageErr)
	kind := services.Kind(stageErr)
	now := time.Now().UTC()

	job.CurrentStage = ""
	job.StageStartedAt = nil
	job.LastHeartbeat = nil
	job.NextAttemptAt = nil
	job.ErrorMessage = message
	job.ErrorStage = stageName
	job.ErrorKind = kind

	var delay time.Duration
	switch {
	case job.CancelRequested:
		job.Status = queue.StatusCancelled
		job.ErrorMessage = queue.UserStopReason
		job.ErrorStage = ""
		job.ErrorKind = ""
		job.CompletedAt = &now
		job.ProgressMessage = "Cancelled by user"
	case services.Retryable(stageErr) && job.RetryCount < m.retryLimit:
		job.RetryCount++
		delay = retryDelay(stageName, job.RetryCount)
		next := now.Add(delay)
		job.Status = queue.StatusPending
		job.NextAttemptAt = &next
		job.SetProgress(fmt.Sprintf("Retrying %s in %s (retry %d of %d)",
			stageLabel(stageName), delay.Round(time.Second), job.RetryCount, m.retryLimit), 0)
	default:
		job.Status = queue.StatusFailed
		job.ProgressMessage = fmt.Sprintf("Failed during %s", stageLabel(stageName))
	}

	attrs := []logging.Attr{
		logging.String("resolved_status", string(job.Status)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.String("error_kind", kind),
		logging.Error(stageErr),
	}
	if job.Status == queue.StatusPending {
		attrs = append(attrs,
			logging.Int("retry_count", job.RetryCount),
			logging.Duration("retry_delay", delay),
			logging.String(logging.FieldErrorHint, "no action needed unless retries keep failing"),
			logging.String(logging.FieldImpact, "job will retry automatically"),
		)
		logging.WarnWithContext(logger, "stage failed; retry scheduled", "stage_failure", attrs...)
	} else {
		attrs = append(attrs, logging.String(logging.FieldErrorHint, failureHint(stageName, kind)))
		logging.ErrorWithContext(logger, "stage failed", "stage_failure", attrs...)
	}

	if err := m.store.UpdateTransition(ctx, job, queue.StatusProcessing, stageName); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			logger.Debug("daemon shutting down, could not persist stage failure")
		case errors.Is(err, queue.ErrConflict):
			logger.Warn("stage failure superseded by concurrent transition", logging.Error(err))
		default:
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
		return
	}

	m.setLastJob(job)
	switch job.Status {
	case queue.StatusFailed:
		m.metrics.RecordFailed()
		m.notifyJobFailed(ctx, stageName, job)
		m.checkQueueCompletion(ctx)
	case queue.StatusCancelled:
		m.metrics.RecordCancelled()
		m.checkQueueCompletion(ctx)
	case queue.StatusPending:
		m.metrics.RecordRetryScheduled()
	}
}

func failureMessage(stageName queue.Stage, stageErr error) string {
	if stageErr == nil {
		return fmt.Sprintf("%s failed without error detail", stageLabel(stageName))
	}
	message := strings.TrimSpace(services.Message(stageErr))
	if message == "" {
		message = fmt.Sprintf("%s failed", stageLabel(stageName))
	}
	return message
}

func failureHint(stageName queue.Stage, kind string) string {
	if stageName == queue.StageGenerate && kind == queue.ErrorKindValidation {
		return "submit the document again to regenerate the timeline"
	}
	return "fix the underlying issue and retry the job"
}

// retryDelay doubles per consumed retry up to a ceiling. Timeline generation
// waits longer between attempts because the model API applies its own rate
// limits.
func retryDelay(stageName queue.Stage, retry int) time.Duration {
	base := retryBaseDelay
	if stageName == queue.StageGenerate {
		base = 2 * retryBaseDelay
	}
	delay := base
	for i := 1; i < retry; i++ {
		if delay > retryMaxDelay/2 {
			delay = retryMaxDelay
			break
		}
		delay *= 2
	}
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
