package workflow

import (
	"log/slog"
	"sync"
	"time"

	"shortreel/internal/config"
	"shortreel/internal/notifications"
	"shortreel/internal/queue"
	"shortreel/internal/stage"
)

// StageSet bundles the concrete pipeline handlers the manager orchestrates.
type StageSet struct {
	Script  stage.Handler
	Gather  stage.Handler
	Align   stage.Handler
	Compose stage.Handler
	Publish stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager coordinates queue processing using the registered stage handlers.
type Manager struct {
	cfg                *config.Config
	store              *queue.Store
	logger             *slog.Logger
	notifier           notifications.Service
	pollInterval       time.Duration
	errorRetryInterval time.Duration

	heartbeat *HeartbeatMonitor

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage
	startOrder   []queue.Status

	mu       sync.RWMutex
	running  bool
	cancel   func()
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:                cfg,
		store:              store,
		logger:             logger,
		notifier:           notifier,
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// SetStages registers the pipeline handlers. Must be called before Start.
func (m *Manager) SetStages(set StageSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stages = []pipelineStage{
		{name: "scripting", handler: set.Script, startStatus: queue.StatusPending, processingStatus: queue.StatusScripting, doneStatus: queue.StatusScripted},
		{name: "gathering", handler: set.Gather, startStatus: queue.StatusScripted, processingStatus: queue.StatusGathering, doneStatus: queue.StatusGathered},
		{name: "aligning", handler: set.Align, startStatus: queue.StatusGathered, processingStatus: queue.StatusAligning, doneStatus: queue.StatusAligned},
		{name: "composing", handler: set.Compose, startStatus: queue.StatusAligned, processingStatus: queue.StatusComposing, doneStatus: queue.StatusComposed},
		{name: "publishing", handler: set.Publish, startStatus: queue.StatusComposed, processingStatus: queue.StatusPublishing, doneStatus: queue.StatusCompleted},
	}
	m.stageByStart = make(map[queue.Status]pipelineStage, len(m.stages))
	m.startOrder = make([]queue.Status, 0, len(m.stages))
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
		m.startOrder = append(m.startOrder, stg.startStatus)
	}
}

// LastError reports the most recent processing error (used for status output).
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastItem reports the most recently processed item.
func (m *Manager) LastItem() *queue.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastItem
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copy := *item
		m.lastItem = &copy
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
