package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shortreel/internal/queue"
	"shortreel/internal/testsupport"
)

func TestOpenAppliesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "the history of chess"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("expected item ID to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Topic != "the history of chess" {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
}

func TestNewJobStoresPerJobOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, queue.JobRequest{
		Topic:       "ocean life",
		Model:       "google/gemini-flash-1.5",
		UseMusic:    true,
		MusicSource: "/srv/music/calm.mp3",
	})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Model != "google/gemini-flash-1.5" {
		t.Fatalf("expected model persisted, got %q", fetched.Model)
	}
	if fetched.MusicSource != "/srv/music/calm.mp3" {
		t.Fatalf("expected music source persisted, got %q", fetched.MusicSource)
	}
}

func TestNewJobRequiresTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewJob(ctx, queue.JobRequest{Topic: "  "}); err == nil {
		t.Fatal("expected error when topic missing")
	}
}

func TestUpdateRoundTripsArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "ocean life", Upload: true, UseMusic: true})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	item.Status = queue.StatusScripted
	item.ScriptJSON = `{"sentences":["a"],"search_terms":["ocean"]}`
	item.WorkspacePath = "/tmp/job"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusScripted {
		t.Fatalf("expected scripted, got %s", fetched.Status)
	}
	if fetched.ScriptJSON == "" || fetched.WorkspacePath == "" {
		t.Fatalf("expected artifacts persisted, got %#v", fetched)
	}
	if !fetched.Upload || !fetched.UseMusic {
		t.Fatal("expected job options to round-trip")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	cases := []struct {
		name          string
		initialStatus queue.Status
		expected      queue.Status
	}{
		{"scripting", queue.StatusScripting, queue.StatusPending},
		{"gathering", queue.StatusGathering, queue.StatusScripted},
		{"aligning", queue.StatusAligning, queue.StatusGathered},
		{"composing", queue.StatusComposing, queue.StatusAligned},
		{"publishing", queue.StatusPublishing, queue.StatusComposed},
	}
	var ids []int64
	for i, tc := range cases {
		item, err := store.NewJob(ctx, queue.JobRequest{Topic: fmt.Sprintf("topic-%d", i)})
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		item.Status = tc.initialStatus
		item.ProgressStage = tc.name
		now := time.Now().UTC()
		item.LastHeartbeat = &now
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if int(count) != len(cases) {
		t.Fatalf("expected %d items reset, got %d", len(cases), count)
	}

	for idx, tc := range cases {
		updated, err := store.GetByID(ctx, ids[idx])
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status != tc.expected {
			t.Fatalf("%s: expected status %s, got %s", tc.name, tc.expected, updated.Status)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s: expected heartbeat cleared", tc.name)
		}
	}
}

func TestRequestCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()

	pending, err := store.NewJob(ctx, queue.JobRequest{Topic: "pending topic"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	ok, err := store.RequestCancel(ctx, pending.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel to be accepted")
	}
	updated, err := store.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusCancelled {
		t.Fatalf("expected pending job to move straight to cancelled, got %s", updated.Status)
	}

	running, err := store.NewJob(ctx, queue.JobRequest{Topic: "running topic"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	running.Status = queue.StatusComposing
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	ok, err = store.RequestCancel(ctx, running.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cancel to be accepted")
	}
	updated, err = store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusComposing {
		t.Fatalf("expected running job to keep its status, got %s", updated.Status)
	}
	if !updated.CancelRequested {
		t.Fatal("expected cancel flag to be set")
	}

	done, err := store.NewJob(ctx, queue.JobRequest{Topic: "done topic"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	ok, err = store.RequestCancel(ctx, done.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if ok {
		t.Fatal("expected cancel of terminal job to be rejected")
	}
}

func TestRetryFailedClearsErrorContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item, err := store.NewJob(ctx, queue.JobRequest{Topic: "retry topic"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	item.SetFailed("composing", "encoding_failure", "render failed")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	count, err := store.RetryFailed(ctx, item.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one retried item, got %d", count)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if updated.ErrorMessage != "" || updated.ErrorKind != "" || updated.ErrorStage != "" {
		t.Fatalf("expected error context cleared, got %#v", updated)
	}
}

func TestItemsByStatusOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewJob(ctx, queue.JobRequest{Topic: "topic a"}); err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	b, err := store.NewJob(ctx, queue.JobRequest{Topic: "topic b"})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	b.Status = queue.StatusScripted
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	pending, err := store.ItemsByStatus(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("ItemsByStatus failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Topic != "topic a" {
		t.Fatalf("unexpected pending items: %#v", pending)
	}

	next, err := store.NextForStatuses(ctx, queue.StatusScripted)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != b.ID {
		t.Fatalf("expected item b, got %#v", next)
	}
}

func TestHealthCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	statuses := []queue.Status{queue.StatusPending, queue.StatusComposing, queue.StatusFailed, queue.StatusCompleted, queue.StatusCancelled}
	for i, status := range statuses {
		item, err := store.NewJob(ctx, queue.JobRequest{Topic: fmt.Sprintf("health-%d", i)})
		if err != nil {
			t.Fatalf("NewJob failed: %v", err)
		}
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 5 || health.Pending != 1 || health.Processing != 1 || health.Failed != 1 || health.Completed != 1 || health.Cancelled != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}
