package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/stage"
)

func (m *Manager) processJob(ctx context.Context, workerLogger *slog.Logger, job *queue.Job) error {
	if job.CancelRequested {
		return m.cancelJob(ctx, workerLogger, job)
	}

	stageName, ok := job.NextStage()
	if !ok {
		return m.finishRecoveredJob(ctx, workerLogger, job)
	}

	stg, found := m.stageFor(stageName)
	if !found {
		workerLogger.Warn("no handler configured for stage", logging.String(logging.FieldStage, string(stageName)))
		m.waitForJobOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, stageName, job, requestID)
	stageLogger := m.stageLogger(stageCtx, workerLogger)

	if err := m.claimJob(stageCtx, stageName, job); err != nil {
		if errors.Is(err, queue.ErrConflict) {
			stageLogger.Debug("job claimed elsewhere; abandoning invocation")
			return nil
		}
		stageLogger.Error("failed to claim job for processing", logging.Error(err))
		m.setLastError(err)
		return err
	}
	m.setLastJob(job)
	m.onJobStarted(stageCtx)

	return m.executeStage(stageCtx, stageLogger, stg, job)
}

// claimJob moves a pending job into processing for one stage. The
// compare-and-swap from (pending, no stage) loses cleanly when another worker
// or an operator action got there first.
func (m *Manager) claimJob(ctx context.Context, stageName queue.Stage, job *queue.Job) error {
	now := time.Now().UTC()
	job.Status = queue.StatusProcessing
	job.CurrentStage = stageName
	job.StageStartedAt = &now
	job.LastHeartbeat = &now
	job.NextAttemptAt = nil
	job.ErrorStage = ""
	job.ErrorKind = ""
	job.InitProgress(fmt.Sprintf("Starting %s", stageLabel(stageName)))
	return m.store.UpdateTransition(ctx, job, queue.StatusPending, "")
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, job *queue.Job) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("source_file", strings.TrimSpace(job.OriginalFilename)),
		logging.Int("attempt", job.RetryCount+1),
	)

	if err := stg.handler.Prepare(ctx, job); err != nil {
		m.handleStageFailure(ctx, stg.name, job, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.UpdateTransition(ctx, job, queue.StatusProcessing, stg.name); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stg.handler, job)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, job, execErr)
		m.setLastError(execErr)
		return execErr
	}

	stageSeconds := time.Since(stageStart).Seconds()
	job.RecordStageDuration(stg.name, stageSeconds)
	m.metrics.ObserveStageDuration(string(stg.name), stageSeconds)
	m.refreshCancelFlag(ctx, job)

	now := time.Now().UTC()
	job.CurrentStage = ""
	job.StageStartedAt = nil
	job.LastHeartbeat = nil
	job.NextAttemptAt = nil
	_, more := job.NextStage()
	switch {
	case job.CancelRequested:
		job.Status = queue.StatusCancelled
		job.ErrorMessage = queue.UserStopReason
		job.CompletedAt = &now
		job.ProgressMessage = "Cancelled by user"
	case more:
		job.Status = queue.StatusPending
	default:
		job.Status = queue.StatusCompleted
		job.CompletedAt = &now
		if job.ProgressPercent < 100 {
			job.ProgressPercent = 100
		}
		if strings.TrimSpace(job.ProgressMessage) == "" {
			job.ProgressMessage = "Training video ready"
		}
	}
	if err := m.store.UpdateTransition(ctx, job, queue.StatusProcessing, stg.name); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(job.Status)),
		logging.String("progress_message", strings.TrimSpace(job.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastJob(job)
	switch job.Status {
	case queue.StatusCompleted:
		m.metrics.RecordCompleted()
		m.notifyJobCompleted(ctx, job)
		m.checkQueueCompletion(ctx)
	case queue.StatusCancelled:
		m.metrics.RecordCancelled()
		m.checkQueueCompletion(ctx)
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// refreshCancelFlag re-reads the advisory cancellation flag before a
// transition is written, so a cancel requested mid-stage is not clobbered by
// the full-row compare-and-swap.
func (m *Manager) refreshCancelFlag(ctx context.Context, job *queue.Job) {
	current, err := m.store.GetByID(ctx, job.ID)
	if err != nil || current == nil {
		return
	}
	job.CancelRequested = current.CancelRequested
}

func (m *Manager) cancelJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	now := time.Now().UTC()
	job.Status = queue.StatusCancelled
	job.CurrentStage = ""
	job.StageStartedAt = nil
	job.LastHeartbeat = nil
	job.NextAttemptAt = nil
	job.ErrorMessage = queue.UserStopReason
	job.CompletedAt = &now
	job.ProgressMessage = "Cancelled by user"
	if err := m.store.UpdateTransition(ctx, job, queue.StatusPending, ""); err != nil {
		if errors.Is(err, queue.ErrConflict) {
			return nil
		}
		logger.Error("failed to cancel job", logging.Error(err))
		m.setLastError(err)
		return err
	}
	logger.Info("job cancelled",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	m.metrics.RecordCancelled()
	m.setLastJob(job)
	m.checkQueueCompletion(ctx)
	return nil
}

// finishRecoveredJob completes a pending job that already has every artifact.
// Reset and reclaim paths can requeue a job whose final stage had finished,
// and completing it here avoids rerunning the render.
func (m *Manager) finishRecoveredJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	now := time.Now().UTC()
	job.Status = queue.StatusCompleted
	job.CurrentStage = ""
	job.StageStartedAt = nil
	job.LastHeartbeat = nil
	job.NextAttemptAt = nil
	job.CompletedAt = &now
	if job.ProgressPercent < 100 {
		job.ProgressPercent = 100
	}
	if strings.TrimSpace(job.ProgressMessage) == "" {
		job.ProgressMessage = "Training video ready"
	}
	if err := m.store.UpdateTransition(ctx, job, queue.StatusPending, ""); err != nil {
		if errors.Is(err, queue.ErrConflict) {
			return nil
		}
		logger.Error("failed to complete recovered job", logging.Error(err))
		m.setLastError(err)
		return err
	}
	logger.Info("job already has all artifacts; marked completed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "job_recovered"),
	)
	m.metrics.RecordCompleted()
	m.setLastJob(job)
	m.notifyJobCompleted(ctx, job)
	m.checkQueueCompletion(ctx)
	return nil
}
