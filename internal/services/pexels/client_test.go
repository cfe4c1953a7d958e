package pexels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

const searchPayload = `{
  "videos": [
    {
      "id": 101,
      "width": 1080,
      "height": 1920,
      "duration": 12.5,
      "video_files": [
        {"id": 1, "quality": "sd", "file_type": "video/mp4", "width": 540, "height": 960, "link": "https://cdn.example/sd.mp4"},
        {"id": 2, "quality": "hd", "file_type": "video/mp4", "width": 1080, "height": 1920, "link": "https://cdn.example/hd.mp4"},
        {"id": 3, "quality": "hls", "file_type": "application/x-mpegURL", "width": 0, "height": 0, "link": "https://cdn.example/pl.m3u8"}
      ]
    },
    {
      "id": 102,
      "width": 1920,
      "height": 1080,
      "duration": 30,
      "video_files": []
    }
  ]
}`

func TestSearchPicksLargestMP4(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "test-key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		if got := r.URL.Query().Get("query"); got != "deep ocean" {
			t.Fatalf("unexpected query %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "10" {
			t.Fatalf("unexpected per_page %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	clips, err := client.Search(context.Background(), "deep ocean")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(clips) != 1 {
		t.Fatalf("expected 1 clip (video without mp4 files skipped), got %d", len(clips))
	}
	clip := clips[0]
	if clip.ID != 101 {
		t.Fatalf("unexpected clip id %d", clip.ID)
	}
	if clip.FileURL != "https://cdn.example/hd.mp4" {
		t.Fatalf("expected largest mp4 rendition, got %q", clip.FileURL)
	}
	if !clip.Portrait() {
		t.Fatal("expected portrait clip")
	}
	if clip.Duration != 12.5 {
		t.Fatalf("unexpected duration %v", clip.Duration)
	}
}

func TestSearchSurfacesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Search(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected search to fail")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if !statusErr.Transient() {
		t.Fatal("expected 429 to be transient")
	}
}

func TestSearchStatusErrorTransience(t *testing.T) {
	cases := []struct {
		code      int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusRequestTimeout, true},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}
	for _, tc := range cases {
		err := &StatusError{StatusCode: tc.code}
		if err.Transient() != tc.transient {
			t.Fatalf("status %d: expected transient=%v", tc.code, tc.transient)
		}
	}
}

func TestSearchRequiresTermAndKey(t *testing.T) {
	client := NewClient(Config{APIKey: "test"})
	if _, err := client.Search(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty term")
	}
	client = NewClient(Config{})
	if _, err := client.Search(context.Background(), "ocean"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestDownloadWritesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake mp4 bytes"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "clips", "clip-101.mp4")
	client := NewClient(Config{APIKey: "test"})
	if err := client.Download(context.Background(), server.URL, dest); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "fake mp4 bytes" {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestDownloadRemovesPartialOnHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "clip.mp4")
	client := NewClient(Config{APIKey: "test"})
	if err := client.Download(context.Background(), server.URL, dest); err == nil {
		t.Fatal("expected download failure")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected no file left behind, stat err = %v", err)
	}
}
