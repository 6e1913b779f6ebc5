package workflow

import (
	"log/slog"

	"lectern/internal/queue"
	"lectern/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Extractor stage.Handler
	Generator stage.Handler
	Imager    stage.Handler
	Narrator  stage.Handler
	Renderer  stage.Handler
}

type pipelineStage struct {
	name    queue.Stage
	handler stage.Handler
}

type workerState struct {
	index        int
	logger       *slog.Logger
	runReclaimer bool
}
