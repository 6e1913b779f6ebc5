package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/metrics"
	"lectern/internal/notifications"
	"lectern/internal/queue"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	retryLimit   int
	notifier     notifications.Service
	metrics      *metrics.Collector

	heartbeat *HeartbeatMonitor

	stages      []pipelineStage
	stageByName map[queue.Stage]pipelineStage

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job

	queueActive bool
	queueStart  time.Time
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryLimit:   cfg.Workflow.RetryLimit,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		stageByName: make(map[queue.Stage]pipelineStage),
	}
}

// SetMetrics attaches a metrics collector. Safe to skip; a nil collector
// swallows every record.
func (m *Manager) SetMetrics(collector *metrics.Collector) {
	m.metrics = collector
}
