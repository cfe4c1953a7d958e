package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an ffmpeg invocation. The composition stage depends on this
// interface so tests can substitute a recording fake for the real binary.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// ExecRunner runs ffmpeg via os/exec with stderr capture for diagnostics.
type ExecRunner struct {
	Binary string
}

// NewExecRunner returns a runner bound to the provided binary, defaulting to
// "ffmpeg" when empty.
func NewExecRunner(binary string) *ExecRunner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &ExecRunner{Binary: binary}
}

// Run executes ffmpeg with the provided arguments. On failure the error
// carries the tail of stderr, which is where ffmpeg reports its diagnostics.
func (r *ExecRunner) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, stderrTail(stderr.String()))
	}
	return nil
}

// stderrTail keeps the last few lines of ffmpeg output. Full transcripts run
// to hundreds of lines; the failure reason is always at the end.
func stderrTail(output string) string {
	const keep = 6
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
