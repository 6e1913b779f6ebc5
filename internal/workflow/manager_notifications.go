package workflow

import (
	"context"
	"errors"
	"time"

	"lectern/internal/logging"
	"lectern/internal/queue"
)

func (m *Manager) notifyJobCompleted(ctx context.Context, job *queue.Job) {
	if m.notifier == nil || job == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))
	duration := time.Duration(0)
	if job.CompletedAt != nil {
		duration = job.CompletedAt.Sub(job.CreatedAt)
	}
	if err := m.notifier.NotifyJobCompleted(ctx, job.OriginalFilename, duration); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send completion notification")
		} else {
			logger.Debug("job completion notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyJobFailed(ctx context.Context, stageName queue.Stage, job *queue.Job) {
	if m.notifier == nil || job == nil {
		return
	}
	logger := logging.WithContext(ctx, logging.NewComponentLogger(m.logger, "workflow-manager"))
	if err := m.notifier.NotifyJobFailed(ctx, job.OriginalFilename, stageLabel(stageName), job.ErrorMessage); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			logger.Debug("job failure notification failed", logging.Error(err))
		}
	}
}

// onJobStarted latches the queue-active flag and announces the batch once,
// when the first job of an idle queue is claimed.
func (m *Manager) onJobStarted(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not get queue stats for start notification")
		} else {
			m.logger.Warn("queue stats unavailable for start notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
				logging.String(logging.FieldImpact, "start notification will not be sent"),
			)
		}
		return
	}
	m.metrics.SetQueueDepth(stats[queue.StatusPending], stats[queue.StatusProcessing])
	m.mu.Lock()
	if m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = true
	m.queueStart = time.Now()
	m.mu.Unlock()

	count := countActiveJobs(stats)
	if err := m.notifier.NotifyQueueStarted(ctx, count); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send queue start notification")
		} else {
			m.logger.Debug("queue start notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) checkQueueCompletion(ctx context.Context) {
	if m.notifier == nil {
		return
	}
	stats, err := m.store.Stats(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not check queue completion")
		} else {
			m.logger.Warn("queue stats unavailable for completion notification; notification skipped",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_stats_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
				logging.String(logging.FieldImpact, "completion notification will not be sent"),
			)
		}
		return
	}
	m.metrics.SetQueueDepth(stats[queue.StatusPending], stats[queue.StatusProcessing])
	if active := countActiveJobs(stats); active > 0 {
		return
	}

	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	start := m.queueStart
	m.queueActive = false
	m.queueStart = time.Time{}
	m.mu.Unlock()

	duration := time.Duration(0)
	if !start.IsZero() {
		duration = time.Since(start)
	}
	processed := stats[queue.StatusCompleted]
	failed := stats[queue.StatusFailed]
	if err := m.notifier.NotifyQueueCompleted(ctx, processed, failed, duration); err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send queue completion notification")
		} else {
			m.logger.Debug("queue completion notification failed", logging.Error(err))
		}
	}
}

func countActiveJobs(stats map[queue.Status]int) int {
	return stats[queue.StatusPending] + stats[queue.StatusProcessing]
}
