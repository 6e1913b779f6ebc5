package workflow

import (
	"lectern/internal/queue"
	"lectern/internal/stage"
)

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Handlers left nil are skipped, which lets tests exercise a partial pipeline.
// Handlers that accept a logger are rebound to the manager's logger here, once,
// before any worker can touch them.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 5)
	if set.Extractor != nil {
		stages = append(stages, pipelineStage{name: queue.StageExtract, handler: set.Extractor})
	}
	if set.Generator != nil {
		stages = append(stages, pipelineStage{name: queue.StageGenerate, handler: set.Generator})
	}
	if set.Imager != nil {
		stages = append(stages, pipelineStage{name: queue.StageImages, handler: set.Imager})
	}
	if set.Narrator != nil {
		stages = append(stages, pipelineStage{name: queue.StageTTS, handler: set.Narrator})
	}
	if set.Renderer != nil {
		stages = append(stages, pipelineStage{name: queue.StageRender, handler: set.Renderer})
	}

	byName := make(map[queue.Stage]pipelineStage, len(stages))
	for _, stg := range stages {
		byName[stg.name] = stg
		if aware, ok := stg.handler.(stage.LoggerAware); ok && m.logger != nil {
			aware.SetLogger(m.logger)
		}
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByName = byName
	m.mu.Unlock()
}

func (m *Manager) stageFor(name queue.Stage) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByName[name]
	return stg, ok
}
