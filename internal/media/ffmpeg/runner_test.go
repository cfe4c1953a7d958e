package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExecRunnerDefaultsBinary(t *testing.T) {
	runner := NewExecRunner("  ")
	if runner.Binary != "ffmpeg" {
		t.Fatalf("expected default binary, got %q", runner.Binary)
	}
}

func TestExecRunnerReportsStderrTail(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\n" +
		"for i in 1 2 3 4 5 6 7 8 9 10; do echo \"noise $i\" >&2; done\n" +
		"echo \"Conversion failed!\" >&2\n" +
		"exit 1\n"
	if err := os.WriteFile(fake, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}

	runner := NewExecRunner(fake)
	err := runner.Run(context.Background(), []string{"-y"})
	if err == nil {
		t.Fatal("expected run failure")
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Fatalf("expected stderr tail in error, got %v", err)
	}
	if strings.Contains(err.Error(), "noise 1\n") {
		t.Fatalf("expected early stderr lines to be trimmed, got %v", err)
	}
}

func TestExecRunnerSucceeds(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}

	runner := NewExecRunner(fake)
	if err := runner.Run(context.Background(), []string{"-version"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecRunnerSurfacesCancellation(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(fake, []byte("#!/bin/sh\nsleep 5\n"), 0o755); err != nil {
		t.Fatalf("write fake ffmpeg: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewExecRunner(fake)
	err := runner.Run(ctx, nil)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
