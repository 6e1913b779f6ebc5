package workflow

import (
	"context"
	"log/slog"
	"strings"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/services"
)

func (m *Manager) workerLogger(index int) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, "workflow-runner"),
		logging.Int("worker", index),
	)
}

func (m *Manager) stageLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}
	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, stageName queue.Stage, job *queue.Job, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if job != nil {
		ctx = services.WithJobID(ctx, job.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, string(stageName))
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

// stageLabel renders a pipeline stage as the phrase used in progress messages
// and notifications.
func stageLabel(stageName queue.Stage) string {
	switch stageName {
	case queue.StageExtract:
		return "text extraction"
	case queue.StageGenerate:
		return "timeline generation"
	case queue.StageImages:
		return "slide imaging"
	case queue.StageTTS:
		return "narration synthesis"
	case queue.StageRender:
		return "video rendering"
	}
	return strings.ReplaceAll(string(stageName), "_", " ")
}
