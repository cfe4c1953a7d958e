package publish

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/queue"
	"shortreel/internal/script"
	"shortreel/internal/services"
	"shortreel/internal/services/llm"
	"shortreel/internal/services/youtube"
	"shortreel/internal/stage"
)

const stageName = "publishing"

const uploadMaxAttempts = 3
const uploadRetryDelay = 5 * time.Second

// Completer is the slice of the LLM client used for listing metadata.
type Completer interface {
	CompleteJSONWithModel(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
}

// Uploader is the slice of the video-hosting client the stage needs.
type Uploader interface {
	Upload(ctx context.Context, path string, meta youtube.Metadata) (string, error)
	Configured() bool
}

// Stage hands the rendered video to the hosting backend. Transient upload
// failures get a bounded retry; credential failures are surfaced distinctly
// so the operator can re-authenticate out of band.
type Stage struct {
	cfg       *config.Config
	completer Completer
	uploader  Uploader
	sleeper   func(time.Duration)
	logger    *slog.Logger
}

// Option customizes the stage.
type Option func(*Stage)

// WithCompleter injects the metadata backend (tests).
func WithCompleter(completer Completer) Option {
	return func(s *Stage) {
		if completer != nil {
			s.completer = completer
		}
	}
}

// WithUploader injects the hosting backend (tests).
func WithUploader(uploader Uploader) Option {
	return func(s *Stage) {
		if uploader != nil {
			s.uploader = uploader
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *Stage) {
		if sleeper != nil {
			s.sleeper = sleeper
		}
	}
}

// NewStage constructs the publishing stage handler.
func NewStage(cfg *config.Config, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{
		cfg: cfg,
		completer: llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}),
		uploader: youtube.NewClient(youtube.Config{
			ClientID:     cfg.YouTube.ClientID,
			ClientSecret: cfg.YouTube.ClientSecret,
			RefreshToken: cfg.YouTube.RefreshToken,
			Privacy:      cfg.YouTube.Privacy,
			CategoryID:   cfg.YouTube.CategoryID,
		}),
		sleeper: time.Sleep,
		logger:  logging.NewComponentLogger(logger, "publisher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger replaces the stage logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "publisher")
}

// Prepare verifies upload was requested and credentials are present.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	if !item.Upload {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "upload not requested for this job", nil)
	}
	if strings.TrimSpace(item.OutputFile) == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "no rendered video to publish", nil)
	}
	if !s.uploader.Configured() {
		return services.Wrap(services.ErrAuth, stageName, "prepare", "hosting credentials not configured", nil)
	}
	item.InitProgress("Publishing", "Uploading video")
	return nil
}

// Execute generates listing metadata and uploads the rendered file.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	meta, err := s.resolveMetadata(ctx, item, logger)
	if err != nil {
		return err
	}
	encoded, err := meta.Encode()
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "encode", "metadata serialization failed", err)
	}
	item.MetadataJSON = encoded

	remoteID, err := s.upload(ctx, item.OutputFile, meta, logger)
	if err != nil {
		return err
	}
	item.RemoteID = remoteID
	item.SetProgressComplete("Published", "Video uploaded")

	logger.Info("video published",
		logging.String("remote_id", remoteID),
		logging.String("title", meta.Title),
		logging.String(logging.FieldEventType, "video_published"),
	)
	return nil
}

// resolveMetadata reuses stored metadata or generates a listing from the
// script. Generation failure degrades to topic-derived metadata rather than
// blocking a finished video.
func (s *Stage) resolveMetadata(ctx context.Context, item *queue.Item, logger *slog.Logger) (Metadata, error) {
	if strings.TrimSpace(item.MetadataJSON) != "" {
		meta, err := DecodeMetadata(item.MetadataJSON)
		if err == nil {
			return meta, nil
		}
		logger.Warn("stored metadata unreadable, regenerating", logging.Error(err))
	}

	narrationText := ""
	if parsed, err := script.Decode(item.ScriptJSON); err == nil {
		narrationText = parsed.Text()
	}

	content, err := s.completer.CompleteJSONWithModel(ctx, item.Model, metadataSystemPrompt, metadataUserPrompt(item.Topic, narrationText))
	if err != nil {
		if ctx.Err() != nil {
			return Metadata{}, services.Wrap(services.ErrCancelled, stageName, "metadata", "cancelled during metadata generation", ctx.Err())
		}
		logger.Warn("metadata generation failed, using fallback", logging.Error(err))
		return fallbackMetadata(item.Topic, narrationText), nil
	}
	var meta Metadata
	if err := llm.DecodeLLMJSON(content, &meta); err != nil {
		logger.Warn("metadata response unusable, using fallback", logging.Error(err))
		return fallbackMetadata(item.Topic, narrationText), nil
	}
	return meta.normalize(item.Topic), nil
}

// upload performs the bounded-retry upload. Credential failures abort
// immediately.
func (s *Stage) upload(ctx context.Context, path string, meta Metadata, logger *slog.Logger) (string, error) {
	uploadMeta := youtube.Metadata{
		Title:       meta.Title,
		Description: meta.Description,
		Tags:        meta.Tags,
		Privacy:     s.cfg.YouTube.Privacy,
		CategoryID:  s.cfg.YouTube.CategoryID,
	}

	var lastErr error
	for attempt := 1; attempt <= uploadMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", services.Wrap(services.ErrCancelled, stageName, "upload", "cancelled during upload", err)
		}

		remoteID, err := s.uploader.Upload(ctx, path, uploadMeta)
		if err == nil {
			return remoteID, nil
		}
		if errors.Is(err, youtube.ErrAuth) {
			return "", services.Wrap(services.ErrAuth, stageName, "upload", "hosting backend rejected credentials", err)
		}
		if ctx.Err() != nil {
			return "", services.Wrap(services.ErrCancelled, stageName, "upload", "cancelled during upload", ctx.Err())
		}

		lastErr = err
		if attempt < uploadMaxAttempts {
			logger.Warn("upload attempt failed, retrying",
				logging.Int("attempt", attempt),
				logging.Error(err),
			)
			s.sleeper(uploadRetryDelay)
		}
	}
	return "", services.Wrap(services.ErrUpstreamUnavailable, stageName, "upload", "upload failed after retries", lastErr)
}

// HealthCheck reports whether publishing is possible with the current
// credentials.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "publisher"
	if !s.uploader.Configured() {
		return stage.Unhealthy(name, "hosting credentials not configured")
	}
	return stage.Healthy(name)
}
