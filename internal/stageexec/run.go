// Package stageexec executes one pipeline stage against a queue item and
// applies the shared transition semantics: persist the processing status,
// run Prepare and Execute, and record failure or cancellation with the
// originating stage and error kind.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortreel/internal/logging"
	"shortreel/internal/notifications"
	"shortreel/internal/queue"
	"shortreel/internal/services"
	"shortreel/internal/stage"
)

// Options controls stage execution and queue persistence behavior.
type Options struct {
	Logger     *slog.Logger
	Store      *queue.Store
	Notifier   notifications.Service
	Handler    stage.Handler
	StageName  string
	Processing queue.Status
	Done       queue.Status
	Item       *queue.Item
}

// Run executes a stage and applies the queue transition semantics shared by
// every pipeline stage.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable: %s", opts.StageName)
	}
	if opts.Store == nil {
		return fmt.Errorf("queue store is required")
	}
	if opts.Item == nil {
		return fmt.Errorf("queue item is required")
	}

	stageCtx := logging.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(opts.Processing)),
		logging.String("topic", strings.TrimSpace(opts.Item.Topic)),
	)

	setItemProcessingState(opts.Item, opts.Processing)
	if err := opts.Store.Update(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}

	if err := opts.Handler.Prepare(stageCtx, opts.Item); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}
	if err := opts.Store.Update(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist stage preparation: %w", err)
	}

	if err := opts.Handler.Execute(stageCtx, opts.Item); err != nil {
		return handleFailure(stageCtx, stageLogger, opts, err)
	}

	if opts.Item.Status == opts.Processing || opts.Item.Status == "" {
		opts.Item.Status = opts.Done
	}
	opts.Item.LastHeartbeat = nil
	if err := opts.Store.Update(stageCtx, opts.Item); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(opts.Item.Status)),
		logging.String("progress_stage", strings.TrimSpace(opts.Item.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(opts.Item.ProgressMessage)),
	)

	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, stageErr error) error {
	details := services.Details(stageErr)
	message := strings.TrimSpace(details.Message)
	if message == "" && stageErr != nil {
		message = strings.TrimSpace(stageErr.Error())
	}

	// The stage context is already dead on cancellation and shutdown, so
	// terminal states persist on a detached context or the write would fail
	// and strand the item in its processing status.
	persistCtx := context.WithoutCancel(ctx)

	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusCancelled {
		// A cancelled stage context without an operator cancel request means
		// the daemon is shutting down. The item keeps its processing status
		// and the startup rollback resumes it from its checkpoint.
		if !cancelRequested(persistCtx, opts) {
			logger.Debug("stage interrupted by shutdown")
			return stageErr
		}
		opts.Item.SetCancelled()
		logger.Info(
			"stage cancelled",
			logging.String(logging.FieldEventType, "stage_cancelled"),
			logging.String("error_message", message),
		)
	} else {
		failedStage := details.Stage
		if failedStage == "" {
			failedStage = opts.StageName
		}
		opts.Item.SetFailed(failedStage, details.Kind, message)
		logger.Error(
			"stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("failed_stage", failedStage),
			logging.String("error_kind", details.Kind),
			logging.String("error_message", message),
			logging.Error(stageErr),
		)
	}

	if err := opts.Store.Update(persistCtx, opts.Item); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if opts.Notifier != nil && resolved == queue.StatusFailed && stageErr != nil {
		contextLabel := fmt.Sprintf("%s (job #%d)", opts.StageName, opts.Item.ID)
		if err := opts.Notifier.NotifyError(persistCtx, stageErr, contextLabel); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}

	return stageErr
}

// cancelRequested reports whether the operator asked for this job to stop,
// preferring the fresh queue row over the in-memory item loaded before the
// stage started.
func cancelRequested(ctx context.Context, opts Options) bool {
	if opts.Item.CancelRequested {
		return true
	}
	fresh, err := opts.Store.GetByID(ctx, opts.Item.ID)
	if err != nil || fresh == nil {
		return false
	}
	return fresh.CancelRequested
}

func setItemProcessingState(item *queue.Item, processing queue.Status) {
	now := time.Now().UTC()
	item.Status = processing
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now
}
