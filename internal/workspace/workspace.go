package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"shortreel/internal/config"
	"shortreel/internal/logging"
)

// Workspace is the per-job scratch directory tree. Every stage writes its
// intermediate artifacts under Root so a single RemoveAll reclaims the job.
type Workspace struct {
	Root string

	keep bool
}

// Create builds a fresh workspace under the configured work directory. The
// directory name embeds the job ID for operator inspection plus a random
// suffix so retried jobs never collide with leftovers from a prior attempt.
func Create(cfg *config.Config, jobID int64) (*Workspace, error) {
	workDir := strings.TrimSpace(cfg.Paths.WorkDir)
	if workDir == "" {
		return nil, fmt.Errorf("work directory not configured")
	}

	name := fmt.Sprintf("job-%d-%s", jobID, shortToken())
	root := filepath.Join(workDir, name)
	for _, dir := range []string{root, filepath.Join(root, "footage"), filepath.Join(root, "audio"), filepath.Join(root, "subtitles")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create workspace directory %q: %w", dir, err)
		}
	}

	return &Workspace{Root: root, keep: cfg.Debug.KeepWorkspace}, nil
}

// Attach wraps an existing workspace path, typically recovered from a queue
// item after a daemon restart.
func Attach(cfg *config.Config, root string) *Workspace {
	return &Workspace{Root: root, keep: cfg.Debug.KeepWorkspace}
}

// FootageDir holds downloaded clips.
func (w *Workspace) FootageDir() string { return filepath.Join(w.Root, "footage") }

// AudioDir holds narration segments and the concatenated track.
func (w *Workspace) AudioDir() string { return filepath.Join(w.Root, "audio") }

// SubtitleDir holds generated cue files.
func (w *Workspace) SubtitleDir() string { return filepath.Join(w.Root, "subtitles") }

// Path joins the provided elements onto the workspace root.
func (w *Workspace) Path(elem ...string) string {
	return filepath.Join(append([]string{w.Root}, elem...)...)
}

// Cleanup removes the workspace tree unless the keep_workspace debug toggle
// is set, in which case the path is logged and left in place.
func (w *Workspace) Cleanup(logger *slog.Logger) {
	if w == nil || strings.TrimSpace(w.Root) == "" {
		return
	}
	if w.keep {
		if logger != nil {
			logger.Info("keeping workspace for inspection",
				logging.String("path", w.Root),
				logging.String(logging.FieldEventType, "workspace_kept"),
			)
		}
		return
	}
	if err := os.RemoveAll(w.Root); err != nil && logger != nil {
		logger.Warn("failed to remove workspace",
			logging.String("path", w.Root),
			logging.Error(err),
			logging.String(logging.FieldEventType, "workspace_cleanup_failed"),
		)
	}
}

func shortToken() string {
	id := uuid.NewString()
	return strings.SplitN(id, "-", 2)[0]
}
