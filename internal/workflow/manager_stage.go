package workflow

import (
	"context"
	"log/slog"
	"sync"

	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/stageexec"
	"shortreel/internal/workspace"
)

func (m *Manager) processItem(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	m.setLastItem(item)
	jobLogger := logger.With(logging.Int64(logging.FieldJobID, item.ID))

	if item.CancelRequested {
		return m.cancelItem(ctx, jobLogger, item)
	}

	// A composed job with no upload request has nothing left to do.
	if item.Status == queue.StatusComposed && !item.Upload {
		return m.completeItem(ctx, jobLogger, item)
	}

	stg, ok := m.stageByStart[item.Status]
	if !ok {
		jobLogger.Warn("no stage registered for status",
			logging.String("status", string(item.Status)),
			logging.String(logging.FieldEventType, "stage_missing"),
		)
		return nil
	}

	execCtx, cancelExec := context.WithCancel(ctx)
	defer cancelExec()

	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(execCtx, &hbWG, item.ID, cancelExec)

	err := stageexec.Run(execCtx, stageexec.Options{
		Logger:     jobLogger,
		Store:      m.store,
		Notifier:   m.notifier,
		Handler:    stg.handler,
		StageName:  stg.name,
		Processing: stg.processingStatus,
		Done:       stg.doneStatus,
		Item:       item,
	})
	cancelExec()
	hbWG.Wait()

	if err != nil {
		// Daemon shutdown leaves the item in its processing status so the
		// next run resumes it; its workspace stays on disk.
		if ctx.Err() != nil {
			jobLogger.Debug("stage interrupted by shutdown")
			return err
		}
		m.setLastError(err)
		if item.Status == queue.StatusCancelled {
			m.cleanupWorkspace(jobLogger, item)
		}
		return err
	}
	m.setLastError(nil)

	// The publish stage promotes directly to completed; finish the job.
	if item.Status == queue.StatusCompleted {
		m.finishItem(ctx, jobLogger, item)
	}
	return nil
}

// cancelItem finalizes a job whose cancellation was requested between stages.
func (m *Manager) cancelItem(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	item.SetCancelled()
	if err := m.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist cancellation", logging.Error(err))
		return err
	}
	m.cleanupWorkspace(logger, item)
	logger.Info("job cancelled",
		logging.String("topic", item.Topic),
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	return nil
}

// completeItem finishes a composed job that skips publishing.
func (m *Manager) completeItem(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	item.Status = queue.StatusCompleted
	item.SetProgressComplete("Completed", "Video ready")
	item.LastHeartbeat = nil
	if err := m.store.Update(ctx, item); err != nil {
		logger.Error("failed to persist completion", logging.Error(err))
		return err
	}
	m.finishItem(ctx, logger, item)
	return nil
}

// finishItem performs end-of-job housekeeping for a completed item: workspace
// cleanup and the completion notification. Failed jobs keep their workspace so
// a retry can reuse downloaded footage and operators can inspect artifacts.
func (m *Manager) finishItem(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	m.cleanupWorkspace(logger, item)

	logger.Info("job completed",
		logging.String("topic", item.Topic),
		logging.String("output_file", item.OutputFile),
		logging.String("remote_id", item.RemoteID),
		logging.String(logging.FieldEventType, "job_completed"),
	)

	if m.notifier == nil {
		return
	}
	var err error
	if item.RemoteID != "" {
		err = m.notifier.NotifyJobPublished(ctx, item.Topic, item.RemoteID)
	} else {
		err = m.notifier.NotifyJobCompleted(ctx, item.Topic, item.OutputFile)
	}
	if err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}

func (m *Manager) cleanupWorkspace(logger *slog.Logger, item *queue.Item) {
	if item.WorkspacePath == "" {
		return
	}
	workspace.Attach(m.cfg, item.WorkspacePath).Cleanup(logger)
}
