package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortreel/internal/daemon"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newStubAPI(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestSubmitCommandPostsJob(t *testing.T) {
	var received daemon.SubmitJobRequest
	server := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/jobs" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(daemon.JobResponse{Job: daemon.JobView{ID: 7, Topic: received.Topic}})
	})

	out, err := runCommand(t, "submit", "the", "deep", "ocean",
		"--model", "google/gemini-flash-1.5",
		"--music-source", "/srv/music/calm.mp3",
		"--upload", "--api", server.URL)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if received.Topic != "the deep ocean" || !received.UseMusic || !received.Upload {
		t.Fatalf("unexpected request payload: %+v", received)
	}
	if received.Model != "google/gemini-flash-1.5" || received.MusicSource != "/srv/music/calm.mp3" {
		t.Fatalf("expected per-job overrides forwarded, got %+v", received)
	}
	if !strings.Contains(out, "Job 7 queued") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestStatusCommandRendersFailure(t *testing.T) {
	server := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/3" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(daemon.JobResponse{Job: daemon.JobView{
			ID:           3,
			Topic:        "volcanoes",
			Status:       "failed",
			ErrorStage:   "acquiring",
			ErrorKind:    "upstream_unavailable",
			ErrorMessage: "footage backend failed",
		}})
	})

	out, err := runCommand(t, "status", "3", "--api", server.URL)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "volcanoes") || !strings.Contains(out, "[acquiring] footage backend failed") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueListRendersTable(t *testing.T) {
	server := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/queue" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(daemon.QueueListResponse{Jobs: []daemon.JobView{
			{ID: 1, Topic: "the deep ocean", Status: "composing", Progress: daemon.JobProgress{Stage: "Composing", Percent: 40}},
			{ID: 2, Topic: "volcanoes", Status: "pending"},
		}})
	})

	out, err := runCommand(t, "queue", "list", "--api", server.URL)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "the deep ocean") || !strings.Contains(out, "volcanoes") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestQueueListEmpty(t *testing.T) {
	server := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(daemon.QueueListResponse{})
	})

	out, err := runCommand(t, "queue", "list", "--api", server.URL)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCancelCommand(t *testing.T) {
	var path string
	server := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]bool{"cancelled": true})
	})

	out, err := runCommand(t, "cancel", "9", "--api", server.URL)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if path != "/api/jobs/9/cancel" {
		t.Fatalf("unexpected path %s", path)
	}
	if !strings.Contains(out, "Cancellation requested for job 9") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCancelRejectsBadID(t *testing.T) {
	if _, err := runCommand(t, "cancel", "zero"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	var auth string
	server := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(daemon.HealthResponse{Running: true})
	})

	if _, err := runCommand(t, "health", "--api", server.URL, "--token", "secret"); err != nil {
		t.Fatalf("health: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("expected bearer token header, got %q", auth)
	}
}

func TestDaemonErrorSurfaced(t *testing.T) {
	server := newStubAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "job not found or already finished"})
	})

	_, err := runCommand(t, "cancel", "4", "--api", server.URL)
	if err == nil || !strings.Contains(err.Error(), "job not found or already finished") {
		t.Fatalf("expected daemon error surfaced, got %v", err)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config written: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error without --overwrite")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}
