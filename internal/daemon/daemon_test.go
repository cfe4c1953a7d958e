package daemon_test

import (
	"context"
	"testing"

	"shortreel/internal/config"
	"shortreel/internal/daemon"
	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/stage"
	"shortreel/internal/testsupport"
	"shortreel/internal/workflow"
)

type passthroughStage struct {
	name    string
	execute func(context.Context, *queue.Item) error
}

func (s *passthroughStage) Prepare(context.Context, *queue.Item) error { return nil }

func (s *passthroughStage) Execute(ctx context.Context, item *queue.Item) error {
	if s.execute != nil {
		return s.execute(ctx, item)
	}
	return nil
}

func (s *passthroughStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name)
}

func stubStageSet() workflow.StageSet {
	return workflow.StageSet{
		Script:  &passthroughStage{name: "scripting"},
		Gather:  &passthroughStage{name: "gathering"},
		Align:   &passthroughStage{name: "aligning"},
		Compose: &passthroughStage{name: "composing"},
		Publish: &passthroughStage{name: "publishing"},
	}
}

func newTestDaemon(t *testing.T, cfg *config.Config, set workflow.StageSet) (*daemon.Daemon, *queue.Store) {
	t.Helper()

	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.SetStages(set)

	d, err := daemon.New(cfg, store, logging.NewNop(), mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg, stubStageSet())

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected pid, got %d", status.PID)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected api listener address")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newTestDaemon(t, cfg, stubStageSet())
	second, _ := newTestDaemon(t, cfg, stubStageSet())

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(first.Stop)

	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second daemon start to fail while lock is held")
	}
}

func TestDaemonSubmitRequiresTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg, stubStageSet())

	if _, err := d.SubmitJob(context.Background(), queue.JobRequest{Topic: "   "}); err == nil {
		t.Fatal("expected error for blank topic")
	}
}
