package subtitles

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/services"
	"shortreel/internal/services/aligner"
	"shortreel/internal/speech"
	"shortreel/internal/stage"
	"shortreel/internal/workspace"
)

const stageName = "aligning"

// CueFile is the workspace-relative subtitle file the composer burns in.
const CueFile = "cues.srt"

// WordAligner is the slice of the external alignment service the stage needs.
type WordAligner interface {
	Align(ctx context.Context, audioPath string) ([]aligner.Word, error)
}

// Stage times subtitle cues to the narration track. The external alignment
// service is preferred when configured; any of its failures fall back to the
// local heuristic because subtitles are an enhancement, not a correctness
// gate.
type Stage struct {
	cfg      *config.Config
	external WordAligner
	logger   *slog.Logger
}

// Option customizes the stage.
type Option func(*Stage)

// WithWordAligner injects the external alignment backend (tests).
func WithWordAligner(external WordAligner) Option {
	return func(s *Stage) {
		if external != nil {
			s.external = external
		}
	}
}

// NewStage constructs the aligning stage handler.
func NewStage(cfg *config.Config, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "subtitle-aligner"),
	}
	if cfg.Aligner.Enabled {
		s.external = aligner.NewClient(aligner.Config{
			BaseURL:        cfg.Aligner.BaseURL,
			APIKey:         cfg.Aligner.APIKey,
			TimeoutSeconds: cfg.Aligner.TimeoutSeconds,
			PollSeconds:    cfg.Aligner.PollSeconds,
		})
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger replaces the stage logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "subtitle-aligner")
}

// Prepare checks that the narration the stage depends on is present.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.NarrationJSON) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "narration not yet synthesized", nil)
	}
	if strings.TrimSpace(item.WorkspacePath) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "job workspace missing", nil)
	}
	item.InitProgress("Aligning", "Timing subtitle cues")
	return nil
}

// Execute derives cues for the narration and persists them on the item plus
// as an SRT file in the workspace.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	narration, err := speech.Decode(item.NarrationJSON)
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "decode", "stored narration is unreadable", err)
	}

	cues, strategy := s.buildCues(ctx, narration, logger)
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, stageName, "align", "cancelled during subtitle alignment", err)
	}
	if err := Validate(cues, narration.Duration); err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "validate", "cue sequence violates timing invariants", err)
	}

	ws := workspace.Attach(s.cfg, item.WorkspacePath)
	srtPath := filepath.Join(ws.SubtitleDir(), CueFile)
	if err := WriteSRT(srtPath, cues); err != nil {
		return services.Wrap(services.ErrEncodingFailure, stageName, "write", "failed to write subtitle file", err)
	}

	encoded, err := Encode(cues)
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "encode", "cue serialization failed", err)
	}
	item.CuesJSON = encoded
	item.SetProgressComplete("Aligned", "Subtitle cues timed")

	logger.Info("subtitles aligned",
		logging.Int("cues", len(cues)),
		logging.String("strategy", strategy),
		logging.String(logging.FieldEventType, "subtitles_aligned"),
	)
	return nil
}

// buildCues runs the configured strategy and reports which one produced the
// result.
func (s *Stage) buildCues(ctx context.Context, narration speech.Narration, logger *slog.Logger) ([]Cue, string) {
	wordsPerCue := s.cfg.Subtitles.WordsPerCue
	if s.external != nil {
		words, err := s.external.Align(ctx, narration.TrackPath)
		if err == nil {
			var cues []Cue
			cues, err = BuildFromWords(words, wordsPerCue, narration.Duration)
			if err == nil {
				if err = Validate(cues, narration.Duration); err == nil {
					return cues, "external"
				}
			}
		}
		if ctx.Err() == nil {
			logger.Warn("external alignment failed, using local heuristic",
				logging.Error(err),
			)
		}
	}
	return BuildLocal(narration, wordsPerCue, s.cfg.Subtitles.MinCueMillis), "local"
}

// HealthCheck reports stage readiness. The local heuristic needs nothing, so
// the stage is only unhealthy when the external service is enabled but not
// addressable.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "subtitle-aligner"
	if s.cfg.Aligner.Enabled && strings.TrimSpace(s.cfg.Aligner.BaseURL) == "" {
		return stage.Unhealthy(name, "aligner enabled but base url not configured")
	}
	return stage.Healthy(name)
}
