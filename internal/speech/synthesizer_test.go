package speech_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortreel/internal/logging"
	"shortreel/internal/services"
	"shortreel/internal/services/tts"
	"shortreel/internal/speech"
	"shortreel/internal/testsupport"
	"shortreel/internal/workspace"
)

type fakeSpeechClient struct {
	err        error
	perVoice   map[string]error
	seenVoices []string
	calls      int
}

func (f *fakeSpeechClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	f.calls++
	f.seenVoices = append(f.seenVoices, voice)
	if f.perVoice != nil {
		if err, ok := f.perVoice[voice]; ok && err != nil {
			return nil, err
		}
	} else if f.err != nil {
		return nil, f.err
	}
	return []byte("audio:" + text), nil
}

type recordingRunner struct {
	args [][]string
	err  error
}

func (r *recordingRunner) Run(ctx context.Context, args []string) error {
	r.args = append(r.args, args)
	if r.err != nil {
		return r.err
	}
	// The concat invocation's last argument is the output path.
	if len(args) > 0 {
		if err := os.WriteFile(args[len(args)-1], []byte("track"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func fixedProber(duration float64) speech.Prober {
	return func(ctx context.Context, path string) (float64, error) {
		return duration, nil
	}
}

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	ws, err := workspace.Create(cfg, 1)
	if err != nil {
		t.Fatalf("workspace.Create: %v", err)
	}
	return ws
}

func TestSynthesizeProducesOrderedSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ws := newTestWorkspace(t)
	client := &fakeSpeechClient{}
	runner := &recordingRunner{}

	synth := speech.NewSynthesizer(cfg, logging.NewNop(),
		speech.WithClient(client),
		speech.WithRunner(runner),
		speech.WithProber(fixedProber(1.5)),
	)

	sentences := []string{"First sentence.", "Second sentence.", "Third sentence."}
	narration, err := synth.Synthesize(context.Background(), ws, sentences, "en_us_001")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if len(narration.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(narration.Segments))
	}
	for i, segment := range narration.Segments {
		if segment.Index != i {
			t.Fatalf("segment %d has index %d", i, segment.Index)
		}
		if segment.Sentence != sentences[i] {
			t.Fatalf("segment %d sentence %q, want %q", i, segment.Sentence, sentences[i])
		}
		data, err := os.ReadFile(segment.Path)
		if err != nil {
			t.Fatalf("read segment %d: %v", i, err)
		}
		if string(data) != "audio:"+sentences[i] {
			t.Fatalf("segment %d has wrong audio %q", i, data)
		}
	}
	if narration.TrackPath == "" {
		t.Fatal("expected concatenated track path")
	}
	if narration.SegmentStart(2) != 3.0 {
		t.Fatalf("expected segment 2 to start at 3.0, got %v", narration.SegmentStart(2))
	}

	// Concat list must preserve script order.
	listData, err := os.ReadFile(filepath.Join(ws.AudioDir(), "segments.txt"))
	if err != nil {
		t.Fatalf("read concat list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(listData)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 concat entries, got %v", lines)
	}
	for i, line := range lines {
		if !strings.Contains(line, fmt.Sprintf("segment-%03d.mp3", i)) {
			t.Fatalf("concat entry %d out of order: %q", i, line)
		}
	}
}

func TestSynthesizeUpstreamFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ws := newTestWorkspace(t)
	client := &fakeSpeechClient{err: errors.New("backend down")}

	synth := speech.NewSynthesizer(cfg, logging.NewNop(),
		speech.WithClient(client),
		speech.WithRunner(&recordingRunner{}),
		speech.WithProber(fixedProber(1)),
	)

	_, err := synth.Synthesize(context.Background(), ws, []string{"Hello."}, "en_us_001")
	if !errors.Is(err, services.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if details := services.Details(err); details.Stage != "synthesizing" {
		t.Fatalf("expected synthesizing stage, got %q", details.Stage)
	}
}

func TestSynthesizeUnknownVoiceFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.FallbackToDefault = false
	ws := newTestWorkspace(t)
	client := &fakeSpeechClient{perVoice: map[string]error{
		"en_us_009": fmt.Errorf("%w: en_us_009", tts.ErrUnknownVoice),
	}}

	synth := speech.NewSynthesizer(cfg, logging.NewNop(),
		speech.WithClient(client),
		speech.WithRunner(&recordingRunner{}),
		speech.WithProber(fixedProber(1)),
	)

	_, err := synth.Synthesize(context.Background(), ws, []string{"Hello."}, "en_us_009")
	if !errors.Is(err, services.ErrVoiceNotFound) {
		t.Fatalf("expected ErrVoiceNotFound, got %v", err)
	}
}

func TestSynthesizeUnknownVoiceFallsBackWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.TTS.FallbackToDefault = true
	ws := newTestWorkspace(t)
	client := &fakeSpeechClient{perVoice: map[string]error{
		"en_us_009": fmt.Errorf("%w: en_us_009", tts.ErrUnknownVoice),
	}}

	synth := speech.NewSynthesizer(cfg, logging.NewNop(),
		speech.WithClient(client),
		speech.WithRunner(&recordingRunner{}),
		speech.WithProber(fixedProber(1)),
	)

	narration, err := synth.Synthesize(context.Background(), ws, []string{"Hello."}, "en_us_009")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if len(narration.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(narration.Segments))
	}
	last := client.seenVoices[len(client.seenVoices)-1]
	if last != tts.DefaultVoice {
		t.Fatalf("expected fallback voice %q, got %q", tts.DefaultVoice, last)
	}
}

func TestSynthesizeCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ws := newTestWorkspace(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	synth := speech.NewSynthesizer(cfg, logging.NewNop(),
		speech.WithClient(&fakeSpeechClient{}),
		speech.WithRunner(&recordingRunner{}),
		speech.WithProber(fixedProber(1)),
	)

	_, err := synth.Synthesize(ctx, ws, []string{"Hello."}, "en_us_001")
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestNarrationRoundTrip(t *testing.T) {
	narration := speech.Narration{
		Segments: []speech.Segment{
			{Index: 0, Sentence: "One.", Path: "/tmp/a.mp3", Duration: 1.2},
			{Index: 1, Sentence: "Two.", Path: "/tmp/b.mp3", Duration: 0.8},
		},
		TrackPath: "/tmp/narration.mp3",
		Duration:  2.0,
	}
	encoded, err := narration.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := speech.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Segments) != 2 || decoded.Duration != 2.0 {
		t.Fatalf("round trip mismatch: %#v", decoded)
	}
}
