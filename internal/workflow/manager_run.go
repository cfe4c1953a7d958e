package workflow

import (
	"context"
	"errors"
	"time"

	"shortreel/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	// Items stuck in a processing status from a previous run restart their
	// stage from the matching start status.
	if reset, err := m.store.ResetStuckProcessing(ctx); err != nil {
		logger.Warn("failed to reset stuck processing items", logging.Error(err))
	} else if reset > 0 {
		logger.Info("reset stuck processing items", logging.Int64("count", reset))
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStaleItems(ctx, logger); err != nil {
			logger.Warn("reclaim stale processing failed; stuck items may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
			)
		}

		item, err := m.store.NextForStatuses(ctx, m.startOrder...)
		if err != nil {
			m.setLastError(err)
			logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
			)
			m.waitOrShutdown(ctx, m.errorRetryInterval)
			continue
		}
		if item == nil {
			m.waitOrShutdown(ctx, m.pollInterval)
			continue
		}

		if err := m.processItem(ctx, logger, item); err != nil {
			// Only daemon shutdown stops the loop. A cancelled or failed job
			// is already recorded on its queue row; keep serving other jobs.
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context, wait time.Duration) {
	if wait <= 0 {
		wait = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}
