package compose

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/testsupport"
	"shortreel/internal/workspace"
)

func musicDirWithTracks(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("music"), 0o644); err != nil {
			t.Fatalf("write track %s: %v", name, err)
		}
	}
	return dir
}

func TestPickMusicTrackSeededStable(t *testing.T) {
	dir := musicDirWithTracks(t, "a.mp3", "b.mp3", "c.ogg", "notes.txt")

	first := pickMusicTrack(dir, rand.New(rand.NewSource(42)))
	second := pickMusicTrack(dir, rand.New(rand.NewSource(42)))
	if first == "" || first != second {
		t.Fatalf("expected stable pick for one seed, got %q vs %q", first, second)
	}
	if filepath.Ext(first) == ".txt" {
		t.Fatalf("expected non-audio files skipped, got %q", first)
	}
}

func TestPickMusicTrackEmptyDirectory(t *testing.T) {
	if got := pickMusicTrack(t.TempDir(), rand.New(rand.NewSource(1))); got != "" {
		t.Fatalf("expected empty pick, got %q", got)
	}
}

func TestResolveMusicTrackDownloadsURLSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("music bytes"))
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	ws, err := workspace.Create(cfg, 7)
	if err != nil {
		t.Fatalf("workspace.Create: %v", err)
	}

	st := NewStage(cfg, logging.NewNop())
	item := &queue.Item{ID: 7, UseMusic: true, MusicSource: server.URL + "/beds/calm.ogg"}

	track := st.resolveMusicTrack(context.Background(), ws, item, logging.NewNop())
	if filepath.Dir(track) != ws.Root {
		t.Fatalf("expected track downloaded into workspace, got %q", track)
	}
	if filepath.Ext(track) != ".ogg" {
		t.Fatalf("expected source extension kept, got %q", track)
	}
	if data, err := os.ReadFile(track); err != nil || string(data) != "music bytes" {
		t.Fatalf("unexpected downloaded track: %q, %v", data, err)
	}
}

func TestResolveMusicTrackFallsBackOnBadSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.MusicDir = musicDirWithTracks(t, "bed.mp3")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	ws, err := workspace.Create(cfg, 8)
	if err != nil {
		t.Fatalf("workspace.Create: %v", err)
	}

	st := NewStage(cfg, logging.NewNop())
	item := &queue.Item{ID: 8, UseMusic: true, MusicSource: filepath.Join(t.TempDir(), "missing.mp3")}

	track := st.resolveMusicTrack(context.Background(), ws, item, logging.NewNop())
	if filepath.Base(track) != "bed.mp3" {
		t.Fatalf("expected fallback to music directory, got %q", track)
	}
}
