package compose

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/workspace"
)

var musicExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// resolveMusicTrack picks the music bed for a job. A per-job source wins:
// local paths are used in place, URLs are fetched into the workspace. An
// unusable source falls back to the configured music directory.
func (s *Stage) resolveMusicTrack(ctx context.Context, ws *workspace.Workspace, item *queue.Item, logger *slog.Logger) string {
	source := strings.TrimSpace(item.MusicSource)
	if source == "" {
		return pickMusicTrack(s.cfg.Paths.MusicDir, s.rng)
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		dest := ws.Path("music" + musicFileExt(source))
		if err := downloadMusic(ctx, s.httpClient, source, dest); err != nil {
			logger.Warn("music source download failed, using music directory",
				logging.String("source", source),
				logging.Error(err),
			)
			return pickMusicTrack(s.cfg.Paths.MusicDir, s.rng)
		}
		return dest
	}
	if _, err := os.Stat(source); err != nil {
		logger.Warn("music source unreadable, using music directory",
			logging.String("source", source),
			logging.Error(err),
		)
		return pickMusicTrack(s.cfg.Paths.MusicDir, s.rng)
	}
	return source
}

// pickMusicTrack selects one random audio file from the music directory, or
// empty when none are available.
func pickMusicTrack(musicDir string, rng *rand.Rand) string {
	entries, err := os.ReadDir(musicDir)
	if err != nil {
		return ""
	}
	var tracks []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if musicExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			tracks = append(tracks, filepath.Join(musicDir, entry.Name()))
		}
	}
	if len(tracks) == 0 {
		return ""
	}
	return tracks[rng.Intn(len(tracks))]
}

// downloadMusic fetches a remote music bed into the workspace.
func downloadMusic(ctx context.Context, client *http.Client, source, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return fmt.Errorf("music download: new request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("music download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("music download: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("music download: create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("music download: write file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("music download: close file: %w", err)
	}
	return nil
}

// musicFileExt maps a source URL to an audio extension for the local copy.
func musicFileExt(source string) string {
	parsed, err := url.Parse(source)
	if err != nil {
		return ".mp3"
	}
	if ext := strings.ToLower(filepath.Ext(parsed.Path)); musicExtensions[ext] {
		return ext
	}
	return ".mp3"
}
