package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shortreel/internal/logging"
	"shortreel/internal/queue"
)

// HeartbeatMonitor manages item heartbeats and stale item reclamation.
type HeartbeatMonitor struct {
	store             *queue.Store
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logger,
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStaleItems resets processing items whose heartbeats stopped, so a
// crashed daemon's jobs get picked up again.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context, logger *slog.Logger) error {
	if h.heartbeatTimeout <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleProcessing(ctx, cutoff)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		logger.Info("reclaimed stale items", logging.Int64("count", reclaimed))
	}
	return nil
}

// StartLoop keeps the item's heartbeat fresh and watches for cancellation
// requests while a stage runs. onCancelRequested fires at most once.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, itemID int64, onCancelRequested func()) {
	defer wg.Done()
	interval := h.heartbeatInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")))
	cancelFired := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.UpdateHeartbeat(ctx, itemID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
			if cancelFired || onCancelRequested == nil {
				continue
			}
			item, err := h.store.GetByID(ctx, itemID)
			if err != nil || item == nil {
				continue
			}
			if item.CancelRequested {
				logger.Info("cancellation requested mid-stage",
					logging.Int64(logging.FieldJobID, itemID),
					logging.String(logging.FieldEventType, "job_cancel_requested"),
				)
				cancelFired = true
				onCancelRequested()
			}
		}
	}
}
