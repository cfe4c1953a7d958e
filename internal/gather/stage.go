package gather

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"shortreel/internal/config"
	"shortreel/internal/footage"
	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/script"
	"shortreel/internal/services"
	"shortreel/internal/speech"
	"shortreel/internal/stage"
	"shortreel/internal/workspace"
)

const stageName = "gathering"

// Narration pacing estimate used to size the footage target before the
// actual track duration is known. The composer loops footage, so an
// underestimate only costs visual variety, never correctness.
const estimatedWordsPerSecond = 2.2

// FootageAcquirer is the footage lane contract.
type FootageAcquirer interface {
	Acquire(ctx context.Context, ws *workspace.Workspace, req footage.Request) ([]footage.Asset, error)
}

// SpeechSynthesizer is the speech lane contract.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, ws *workspace.Workspace, sentences []string, voice string) (speech.Narration, error)
}

// Stage runs footage acquisition and speech synthesis concurrently. The two
// lanes are independent until the join: both must finish before alignment can
// start, and a fatal error in either cancels the other.
type Stage struct {
	cfg      *config.Config
	acquirer FootageAcquirer
	speech   SpeechSynthesizer
	logger   *slog.Logger
}

// Option customizes the stage.
type Option func(*Stage)

// WithAcquirer injects the footage lane (tests).
func WithAcquirer(acquirer FootageAcquirer) Option {
	return func(s *Stage) {
		if acquirer != nil {
			s.acquirer = acquirer
		}
	}
}

// WithSpeechSynthesizer injects the speech lane (tests).
func WithSpeechSynthesizer(synth SpeechSynthesizer) Option {
	return func(s *Stage) {
		if synth != nil {
			s.speech = synth
		}
	}
}

// NewStage constructs the gathering stage handler.
func NewStage(cfg *config.Config, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{
		cfg:      cfg,
		acquirer: footage.NewAcquirer(cfg, logger),
		speech:   speech.NewSynthesizer(cfg, logger),
		logger:   logging.NewComponentLogger(logger, "gatherer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger replaces the stage logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "gatherer")
}

// Prepare validates the script dependency and creates the job workspace.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.ScriptJSON) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "script not yet generated", nil)
	}
	if item.DownloadThreads <= 0 {
		item.DownloadThreads = s.cfg.Pipeline.DownloadThreads
	}
	if strings.TrimSpace(item.WorkspacePath) == "" {
		ws, err := workspace.Create(s.cfg, item.ID)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, stageName, "prepare", "failed to create job workspace", err)
		}
		item.WorkspacePath = ws.Root
	}
	item.InitProgress("Gathering", "Acquiring footage and synthesizing speech")
	return nil
}

// Execute runs both lanes and persists their artifacts on the item.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	parsed, err := script.Decode(item.ScriptJSON)
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "decode", "stored script is unreadable", err)
	}
	ws := workspace.Attach(s.cfg, item.WorkspacePath)

	var assets []footage.Asset
	var narration speech.Narration

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		result, err := s.acquirer.Acquire(groupCtx, ws, footage.Request{
			Terms:          parsed.SearchTerms,
			ExpansionTerms: script.FallbackSearchTerms(item.Topic),
			MinDuration:    estimateNarrationSeconds(parsed.Sentences),
			Threads:        item.DownloadThreads,
		})
		if errors.Is(err, services.ErrDurationShortfall) {
			// Soft failure: the composer loops what we have.
			logger.Warn("footage short of duration target, will loop",
				logging.String(logging.FieldLane, "footage"),
				logging.Error(err),
			)
			err = nil
		}
		if err != nil {
			return err
		}
		assets = result
		return nil
	})
	group.Go(func() error {
		result, err := s.speech.Synthesize(groupCtx, ws, parsed.Sentences, item.Voice)
		if err != nil {
			return err
		}
		narration = result
		return nil
	})
	if err := group.Wait(); err != nil {
		if ctx.Err() != nil && !errors.Is(err, services.ErrCancelled) {
			return services.Wrap(services.ErrCancelled, stageName, "join", "cancelled while gathering", ctx.Err())
		}
		return err
	}

	assetsJSON, err := footage.Encode(assets)
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "encode", "asset serialization failed", err)
	}
	narrationJSON, err := narration.Encode()
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "encode", "narration serialization failed", err)
	}
	item.AssetsJSON = assetsJSON
	item.NarrationJSON = narrationJSON
	item.SetProgressComplete("Gathered", "Footage and narration ready")

	logger.Info("gathering complete",
		logging.Int("clips", len(assets)),
		logging.Float64("footage_seconds", footage.TotalDuration(assets)),
		logging.Float64("narration_seconds", narration.Duration),
		logging.String(logging.FieldEventType, "gathering_complete"),
	)
	return nil
}

// HealthCheck verifies the footage backend credentials are present. The
// speech backend needs no key, so only search access gates readiness.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "gatherer"
	if strings.TrimSpace(s.cfg.Pexels.APIKey) == "" {
		return stage.Unhealthy(name, "footage search api key not configured")
	}
	return stage.Healthy(name)
}

func estimateNarrationSeconds(sentences []string) float64 {
	words := 0
	for _, sentence := range sentences {
		words += len(strings.Fields(sentence))
	}
	seconds := float64(words) / estimatedWordsPerSecond
	if seconds < 10 {
		seconds = 10
	}
	return seconds
}
