package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/media/ffmpeg"
	"shortreel/internal/media/ffprobe"
	"shortreel/internal/services"
	"shortreel/internal/services/tts"
	"shortreel/internal/workspace"
)

const laneName = "synthesizing"

// Client is the slice of the speech backend the synthesizer needs.
type Client interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Prober measures the duration in seconds of an audio file.
type Prober func(ctx context.Context, path string) (float64, error)

// Synthesizer turns script sentences into per-segment audio plus one
// concatenated narration track.
type Synthesizer struct {
	cfg    *config.Config
	client Client
	runner ffmpeg.Runner
	prober Prober
	logger *slog.Logger
}

// Option customizes the synthesizer.
type Option func(*Synthesizer)

// WithClient injects the speech backend (tests).
func WithClient(client Client) Option {
	return func(s *Synthesizer) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRunner injects the ffmpeg runner used for track concatenation.
func WithRunner(runner ffmpeg.Runner) Option {
	return func(s *Synthesizer) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithProber injects the duration prober.
func WithProber(prober Prober) Option {
	return func(s *Synthesizer) {
		if prober != nil {
			s.prober = prober
		}
	}
}

// NewSynthesizer constructs the speech lane for the gathering stage.
func NewSynthesizer(cfg *config.Config, logger *slog.Logger, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		cfg: cfg,
		client: tts.NewClient(tts.Config{
			BaseURL:        cfg.TTS.BaseURL,
			TimeoutSeconds: cfg.TTS.TimeoutSeconds,
			MaxRetries:     cfg.TTS.MaxRetries,
		}),
		runner: ffmpeg.NewExecRunner(cfg.FFmpegBinary()),
		logger: logging.NewComponentLogger(logger, "speech-synthesizer"),
	}
	s.prober = func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, cfg.FFprobeBinary(), path)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize produces one audio segment per sentence and concatenates them in
// script order. Segment boundaries stay exact because each sentence is its
// own backend call.
func (s *Synthesizer) Synthesize(ctx context.Context, ws *workspace.Workspace, sentences []string, voice string) (Narration, error) {
	var narration Narration
	if len(sentences) == 0 {
		return narration, services.Wrap(services.ErrConfiguration, laneName, "synthesize", "no sentences to synthesize", nil)
	}

	voice = s.resolveVoice(voice)
	logger := logging.WithContext(ctx, s.logger)

	for i, sentence := range sentences {
		if err := ctx.Err(); err != nil {
			return narration, services.Wrap(services.ErrCancelled, laneName, "synthesize", "cancelled during speech synthesis", err)
		}

		audio, err := s.client.Synthesize(ctx, sentence, voice)
		if err != nil {
			if errors.Is(err, tts.ErrUnknownVoice) {
				if s.cfg.TTS.FallbackToDefault && voice != tts.DefaultVoice {
					logger.Warn("voice not found, falling back to default",
						logging.String("voice", voice),
						logging.String("fallback", tts.DefaultVoice),
					)
					voice = tts.DefaultVoice
					audio, err = s.client.Synthesize(ctx, sentence, voice)
				}
				if err != nil {
					return narration, services.Wrap(services.ErrVoiceNotFound, laneName, "synthesize", fmt.Sprintf("voice %q not available", voice), err)
				}
			} else if ctx.Err() != nil {
				return narration, services.Wrap(services.ErrCancelled, laneName, "synthesize", "cancelled during speech synthesis", ctx.Err())
			} else {
				return narration, services.Wrap(services.ErrUpstreamUnavailable, laneName, "synthesize", fmt.Sprintf("speech backend failed on sentence %d", i+1), err)
			}
		}

		segmentPath := filepath.Join(ws.AudioDir(), fmt.Sprintf("segment-%03d.mp3", i))
		if err := os.WriteFile(segmentPath, audio, 0o644); err != nil {
			return narration, services.Wrap(services.ErrEncodingFailure, laneName, "write segment", "failed to write audio segment", err)
		}

		duration, err := s.prober(ctx, segmentPath)
		if err != nil {
			return narration, services.Wrap(services.ErrEncodingFailure, laneName, "probe segment", "failed to measure segment duration", err)
		}

		narration.Segments = append(narration.Segments, Segment{
			Index:    i,
			Sentence: sentence,
			Path:     segmentPath,
			Duration: duration,
		})
	}

	trackPath, err := s.concatenate(ctx, ws, narration.Segments)
	if err != nil {
		return narration, err
	}
	narration.TrackPath = trackPath

	duration, err := s.prober(ctx, trackPath)
	if err != nil {
		return narration, services.Wrap(services.ErrEncodingFailure, laneName, "probe track", "failed to measure narration duration", err)
	}
	narration.Duration = duration

	logger.Info("narration synthesized",
		logging.Int("segments", len(narration.Segments)),
		logging.Float64("duration_seconds", narration.Duration),
		logging.String(logging.FieldEventType, "narration_synthesized"),
	)
	return narration, nil
}

func (s *Synthesizer) resolveVoice(voice string) string {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = strings.TrimSpace(s.cfg.TTS.Voice)
	}
	if voice == "" {
		voice = tts.DefaultVoice
	}
	return voice
}

// concatenate joins segments in script order with the concat demuxer. Stream
// copy keeps segment boundaries byte-exact.
func (s *Synthesizer) concatenate(ctx context.Context, ws *workspace.Workspace, segments []Segment) (string, error) {
	listPath := filepath.Join(ws.AudioDir(), "segments.txt")
	var list strings.Builder
	for _, segment := range segments {
		fmt.Fprintf(&list, "file '%s'\n", segment.Path)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", services.Wrap(services.ErrEncodingFailure, laneName, "concat", "failed to write concat list", err)
	}

	trackPath := filepath.Join(ws.AudioDir(), "narration.mp3")
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		trackPath,
	}
	if err := s.runner.Run(ctx, args); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrCancelled, laneName, "concat", "cancelled during track concatenation", err)
		}
		return "", services.Wrap(services.ErrEncodingFailure, laneName, "concat", "failed to concatenate narration track", err)
	}
	return trackPath, nil
}
