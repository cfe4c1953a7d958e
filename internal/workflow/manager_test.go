package workflow_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/services"
	"shortreel/internal/stage"
	"shortreel/internal/testsupport"
	"shortreel/internal/workflow"
	"shortreel/internal/workspace"
)

type stubStage struct {
	name        string
	executeHook func(*queue.Item)
	executeErr  error
	health      stage.Health

	mu       sync.Mutex
	executed int
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(context.Context, *queue.Item) error { return nil }

func (s *stubStage) Execute(_ context.Context, item *queue.Item) error {
	s.mu.Lock()
	s.executed++
	s.mu.Unlock()
	if s.executeHook != nil {
		s.executeHook(item)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health { return s.health }

// blockingStage signals when Execute starts, then holds until its context
// dies, like an encode interrupted mid-run.
type blockingStage struct {
	started chan struct{}
	once    sync.Once
}

func newBlockingStage() *blockingStage {
	return &blockingStage{started: make(chan struct{})}
}

func (s *blockingStage) Prepare(context.Context, *queue.Item) error { return nil }

func (s *blockingStage) Execute(ctx context.Context, _ *queue.Item) error {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return services.Wrap(services.ErrCancelled, "acquiring", "download", "cancelled during footage download", ctx.Err())
}

func (s *blockingStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("gathering") }

func (s *stubStage) executions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executed
}

type recordingNotifier struct {
	mu        sync.Mutex
	completed []string
	published []string
	errors    []string
}

func (n *recordingNotifier) NotifyJobCompleted(_ context.Context, topic, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, topic)
	return nil
}

func (n *recordingNotifier) NotifyJobPublished(_ context.Context, _, remoteID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, remoteID)
	return nil
}

func (n *recordingNotifier) NotifyError(_ context.Context, err error, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, err.Error())
	return nil
}

func (n *recordingNotifier) TestNotification(context.Context) error { return nil }

func (n *recordingNotifier) publishedIDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.published...)
}

func (n *recordingNotifier) completedTopics() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.completed...)
}

func (n *recordingNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func fullStageSet() (workflow.StageSet, map[string]*stubStage) {
	stubs := map[string]*stubStage{
		"script":  newStubStage("script"),
		"gather":  newStubStage("gather"),
		"align":   newStubStage("align"),
		"compose": newStubStage("compose"),
		"publish": newStubStage("publish"),
	}
	return workflow.StageSet{
		Script:  stubs["script"],
		Gather:  stubs["gather"],
		Align:   stubs["align"],
		Compose: stubs["compose"],
		Publish: stubs["publish"],
	}, stubs
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %q", want)
		default:
		}
		item, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if item != nil && item.Status == want {
			return item
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesJobThroughPipeline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, stubs := fullStageSet()
	stubs["compose"].executeHook = func(item *queue.Item) {
		item.OutputFile = "/tmp/out.mp4"
	}
	stubs["publish"].executeHook = func(item *queue.Item) {
		item.RemoteID = "vid-123"
	}

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.SetStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "the deep ocean", Upload: true})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	done := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if done.RemoteID != "vid-123" {
		t.Fatalf("expected remote id persisted, got %q", done.RemoteID)
	}
	for name, stub := range stubs {
		if stub.executions() != 1 {
			t.Fatalf("expected stage %s executed once, got %d", name, stub.executions())
		}
	}

	deadline := time.After(10 * time.Second)
	for len(notifier.publishedIDs()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected publish notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestManagerCompletesComposedJobWithoutUpload(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, stubs := fullStageSet()
	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.SetStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "volcanoes"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	item.Status = queue.StatusComposed
	item.OutputFile = "/tmp/out.mp4"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	done := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if done.ProgressPercent != 100 {
		t.Fatalf("expected progress complete, got %f", done.ProgressPercent)
	}
	if stubs["publish"].executions() != 0 {
		t.Fatal("expected publish stage skipped when upload not requested")
	}

	deadline := time.After(10 * time.Second)
	for len(notifier.completedTopics()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected completion notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	if len(notifier.publishedIDs()) != 0 {
		t.Fatal("expected no publish notification without a remote id")
	}
}

func TestManagerCancelsBetweenStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, stubs := fullStageSet()
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.SetStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "glaciers"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	item.Status = queue.StatusScripted
	item.CancelRequested = true
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	waitForStatus(t, store, item.ID, queue.StatusCancelled)
	if stubs["gather"].executions() != 0 {
		t.Fatal("expected gather stage skipped after cancellation request")
	}
}

func TestManagerCancelsMidStage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	set, _ := fullStageSet()
	blocking := newBlockingStage()
	set.Gather = blocking

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.SetStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "auroras"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	ws, err := workspace.Create(cfg, item.ID)
	if err != nil {
		t.Fatalf("workspace.Create: %v", err)
	}
	item.Status = queue.StatusScripted
	item.WorkspacePath = ws.Root
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	select {
	case <-blocking.started:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for stage to start")
	}
	if ok, err := store.RequestCancel(ctx, item.ID); err != nil || !ok {
		t.Fatalf("RequestCancel: ok=%v err=%v", ok, err)
	}

	waitForStatus(t, store, item.ID, queue.StatusCancelled)

	deadline := time.After(10 * time.Second)
	for {
		if _, err := os.Stat(ws.Root); os.IsNotExist(err) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("expected cancelled job workspace removed")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	// The loop must survive a mid-stage cancellation and keep serving jobs.
	next, err := store.NewJob(ctx, queue.JobRequest{Topic: "geysers"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	next.Status = queue.StatusComposed
	next.OutputFile = "/tmp/out.mp4"
	if err := store.Update(ctx, next); err != nil {
		t.Fatalf("Update: %v", err)
	}
	waitForStatus(t, store, next.ID, queue.StatusCompleted)
}

func TestManagerShutdownLeavesStageForResume(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	store := testsupport.MustOpenStore(t, cfg)

	set, _ := fullStageSet()
	blocking := newBlockingStage()
	set.Gather = blocking

	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	mgr.SetStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "tide pools"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	ws, err := workspace.Create(cfg, item.ID)
	if err != nil {
		t.Fatalf("workspace.Create: %v", err)
	}
	item.Status = queue.StatusScripted
	item.WorkspacePath = ws.Root
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-blocking.started:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for stage to start")
	}
	mgr.Stop()

	stored, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != queue.StatusGathering {
		t.Fatalf("expected processing status left for resume, got %q", stored.Status)
	}
	if _, err := os.Stat(ws.Root); err != nil {
		t.Fatalf("expected workspace kept for resume: %v", err)
	}
}

func TestManagerFailurePersistsDetailsAndNotifies(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, stubs := fullStageSet()
	stubs["gather"].executeErr = services.Wrap(
		services.ErrUpstreamUnavailable, "acquiring", "search", "footage backend failed", errors.New("503"),
	)

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.SetStages(set)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "deserts"})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	item.Status = queue.StatusScripted
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(mgr.Stop)

	failed := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if failed.ErrorStage != "acquiring" || failed.ErrorKind != "upstream_unavailable" {
		t.Fatalf("expected failure details, got stage=%q kind=%q", failed.ErrorStage, failed.ErrorKind)
	}

	deadline := time.After(10 * time.Second)
	for notifier.errorCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected error notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	set, stubs := fullStageSet()
	stubs["gather"].health = stage.Unhealthy("gathering", "footage API key missing")

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.SetStages(set)

	status := mgr.Status(context.Background())
	health, ok := status.StageHealth["gathering"]
	if !ok {
		t.Fatal("expected stage health entry for gathering")
	}
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if health.Detail != "footage API key missing" {
		t.Fatalf("unexpected detail %q", health.Detail)
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	if err := mgr.Start(context.Background()); err == nil {
		mgr.Stop()
		t.Fatal("expected Start to fail without stages")
	}
}
