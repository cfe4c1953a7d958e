package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"shortreel/internal/daemon"
	"shortreel/internal/queue"
	"shortreel/internal/testsupport"
)

func startTestDaemon(t *testing.T, d *daemon.Daemon) string {
	t.Helper()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return "http://" + d.APIAddr()
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, buf.Bytes()
}

func TestAPISubmitAndFetchJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg, stubStageSet())
	base := startTestDaemon(t, d)

	resp, body := doJSON(t, http.MethodPost, base+"/api/jobs", map[string]any{
		"topic":     "the deep ocean",
		"use_music": true,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created daemon.JobResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Job.ID <= 0 || created.Job.Topic != "the deep ocean" || !created.Job.UseMusic {
		t.Fatalf("unexpected job payload: %+v", created.Job)
	}

	resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/jobs/%d", base, created.Job.ID), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var fetched daemon.JobResponse
	if err := json.Unmarshal(body, &fetched); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if fetched.Job.ID != created.Job.ID {
		t.Fatalf("expected job %d, got %d", created.Job.ID, fetched.Job.ID)
	}
}

func TestAPISubmitRejectsBlankTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg, stubStageSet())
	base := startTestDaemon(t, d)

	resp, _ := doJSON(t, http.MethodPost, base+"/api/jobs", map[string]any{"topic": " "}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPIQueueFilterRetryAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newTestDaemon(t, cfg, stubStageSet())

	ctx := context.Background()
	failed := testsupport.NewJob(t, store, "volcanoes")
	failed.SetFailed("acquiring", "upstream_unavailable", "footage backend failed")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	done := testsupport.NewJob(t, store, "glaciers")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}

	base := startTestDaemon(t, d)

	resp, body := doJSON(t, http.MethodGet, base+"/api/queue?status=failed", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var list daemon.QueueListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ErrorKind != "upstream_unavailable" {
		t.Fatalf("unexpected queue listing: %+v", list.Jobs)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/api/queue/clear?scope=completed", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var cleared daemon.CountResponse
	if err := json.Unmarshal(body, &cleared); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if cleared.Count != 1 {
		t.Fatalf("expected one completed item cleared, got %d", cleared.Count)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/api/queue/retry", map[string]any{"ids": []int64{failed.ID}}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var retried daemon.CountResponse
	if err := json.Unmarshal(body, &retried); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if retried.Count != 1 {
		t.Fatalf("expected one item retried, got %d", retried.Count)
	}
}

func TestAPICancelSetsFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	release := make(chan struct{})
	set := stubStageSet()
	set.Script = &passthroughStage{name: "scripting", execute: func(ctx context.Context, _ *queue.Item) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}
	t.Cleanup(func() { close(release) })

	d, store := newTestDaemon(t, cfg, set)
	base := startTestDaemon(t, d)

	item, err := d.SubmitJob(context.Background(), queue.JobRequest{Topic: "deserts"})
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	deadline := time.After(30 * time.Second)
	for {
		current, err := store.GetByID(context.Background(), item.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if current.Status == queue.StatusScripting {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for scripting status")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	resp, body := doJSON(t, http.MethodPost, fmt.Sprintf("%s/api/jobs/%d/cancel", base, item.ID), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	current, err := store.GetByID(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !current.CancelRequested {
		t.Fatal("expected cancel flag set")
	}
}

func TestAPIHealthReportsStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newTestDaemon(t, cfg, stubStageSet())
	base := startTestDaemon(t, d)

	resp, body := doJSON(t, http.MethodGet, base+"/api/health", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var health daemon.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !health.Running {
		t.Fatal("expected running daemon")
	}
	if len(health.StageHealth) != 5 {
		t.Fatalf("expected five stage health entries, got %d", len(health.StageHealth))
	}
}

func TestAPIBearerToken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	d, _ := newTestDaemon(t, cfg, stubStageSet())
	base := startTestDaemon(t, d)

	resp, _ := doJSON(t, http.MethodGet, base+"/api/health", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/api/health", nil, map[string]string{
		"Authorization": "Bearer secret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}
