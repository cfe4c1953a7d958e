package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shortreel/internal/config"
	"shortreel/internal/deps"
	"shortreel/internal/footage"
	"shortreel/internal/logging"
	"shortreel/internal/media/ffmpeg"
	"shortreel/internal/media/ffprobe"
	"shortreel/internal/queue"
	"shortreel/internal/services"
	"shortreel/internal/speech"
	"shortreel/internal/stage"
	"shortreel/internal/subtitles"
	"shortreel/internal/workspace"
)

const stageName = "composing"

// Prober measures the duration in seconds of a media file.
type Prober func(ctx context.Context, path string) (float64, error)

// Stage renders the final video: footage looped and trimmed to the narration
// duration, subtitles burned in, and an optional music bed mixed under the
// voice. Encoding runs as one exclusive operation per job.
type Stage struct {
	cfg        *config.Config
	runner     ffmpeg.Runner
	prober     Prober
	rng        *rand.Rand
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the stage.
type Option func(*Stage)

// WithRunner injects the ffmpeg runner (tests).
func WithRunner(runner ffmpeg.Runner) Option {
	return func(s *Stage) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithProber injects the duration prober (tests).
func WithProber(prober Prober) Option {
	return func(s *Stage) {
		if prober != nil {
			s.prober = prober
		}
	}
}

// WithMusicRand injects the random source used for track selection (tests).
func WithMusicRand(rng *rand.Rand) Option {
	return func(s *Stage) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// NewStage constructs the composing stage handler.
func NewStage(cfg *config.Config, logger *slog.Logger, opts ...Option) *Stage {
	s := &Stage{
		cfg:        cfg,
		runner:     ffmpeg.NewExecRunner(cfg.FFmpegBinary()),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		httpClient: &http.Client{Timeout: time.Minute},
		logger:     logging.NewComponentLogger(logger, "composer"),
	}
	s.prober = func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, cfg.FFprobeBinary(), path)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger replaces the stage logger.
func (s *Stage) SetLogger(logger *slog.Logger) {
	s.logger = logging.NewComponentLogger(logger, "composer")
}

// Prepare checks that every upstream artifact the render needs is present.
func (s *Stage) Prepare(ctx context.Context, item *queue.Item) error {
	for _, dep := range []struct {
		value, what string
	}{
		{item.AssetsJSON, "footage"},
		{item.NarrationJSON, "narration"},
		{item.CuesJSON, "subtitle cues"},
		{item.WorkspacePath, "job workspace"},
	} {
		if strings.TrimSpace(dep.value) == "" {
			return services.Wrap(services.ErrConfiguration, stageName, "prepare", dep.what+" missing", nil)
		}
	}
	item.InitProgress("Composing", "Rendering final video")
	return nil
}

// Execute runs the two-pass render and records the output file on the item.
func (s *Stage) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)

	assets, err := footage.Decode(item.AssetsJSON)
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "decode", "stored assets are unreadable", err)
	}
	narration, err := speech.Decode(item.NarrationJSON)
	if err != nil {
		return services.Wrap(services.ErrMalformedResponse, stageName, "decode", "stored narration is unreadable", err)
	}
	ws := workspace.Attach(s.cfg, item.WorkspacePath)
	srtPath := filepath.Join(ws.SubtitleDir(), subtitles.CueFile)
	if _, err := os.Stat(srtPath); err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "subtitle file missing from workspace", err)
	}

	usable, err := s.readableAssets(ctx, assets, logger)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, stageName, "render", "cancelled before encode", err)
	}

	basePath, err := s.assemble(ctx, ws, usable)
	if err != nil {
		return err
	}

	musicTrack := ""
	if item.UseMusic {
		musicTrack = s.resolveMusicTrack(ctx, ws, item, logger)
	}

	outputPath := filepath.Join(s.cfg.Paths.OutputDir, outputName(item.ID))
	if err := s.render(ctx, item, basePath, narration, srtPath, musicTrack, outputPath); err != nil {
		return err
	}

	duration, err := s.prober(ctx, outputPath)
	if err != nil {
		_ = os.Remove(outputPath)
		return services.Wrap(services.ErrEncodingFailure, stageName, "probe", "rendered video is unreadable", err)
	}

	item.OutputFile = outputPath
	item.SetProgressComplete("Composed", "Video rendered")

	logger.Info("video composed",
		logging.String("output", outputPath),
		logging.Float64("duration_seconds", duration),
		logging.Int("clips", len(usable)),
		logging.String(logging.FieldEventType, "video_composed"),
	)
	return nil
}

// readableAssets probes every clip and drops the ones that fail to decode.
// An unreadable clip is substituted from the remaining pool; an empty pool is
// fatal.
func (s *Stage) readableAssets(ctx context.Context, assets []footage.Asset, logger *slog.Logger) ([]footage.Asset, error) {
	usable := make([]footage.Asset, 0, len(assets))
	for _, asset := range assets {
		if _, err := s.prober(ctx, asset.Path); err != nil {
			if ctx.Err() != nil {
				return nil, services.Wrap(services.ErrCancelled, stageName, "probe", "cancelled while checking footage", ctx.Err())
			}
			logger.Warn("footage asset unreadable, skipping",
				logging.Int64("source_id", asset.SourceID),
				logging.String("path", asset.Path),
				logging.Error(err),
			)
			continue
		}
		usable = append(usable, asset)
	}
	if len(usable) == 0 {
		return nil, services.Wrap(services.ErrAssetUnreadable, stageName, "probe", "no readable footage assets remain", nil)
	}
	return usable, nil
}

// assemble concatenates the scaled and cropped clips into one silent visual
// track inside the workspace.
func (s *Stage) assemble(ctx context.Context, ws *workspace.Workspace, assets []footage.Asset) (string, error) {
	basePath := ws.Path("base.mp4")
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, asset := range assets {
		args = append(args, "-i", asset.Path)
	}
	args = append(args,
		"-filter_complex", assembleFilterGraph(len(assets), s.cfg.Pipeline.TargetWidth, s.cfg.Pipeline.TargetHeight, s.cfg.Pipeline.FrameRate),
		"-map", "[vout]",
		"-an",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		basePath,
	)
	if err := s.runner.Run(ctx, args); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrCancelled, stageName, "assemble", "cancelled during footage assembly", err)
		}
		return "", services.Wrap(services.ErrEncodingFailure, stageName, "assemble", "failed to assemble footage track", err)
	}
	return basePath, nil
}

// render loops the visual track to cover the narration, burns in subtitles,
// and mixes the optional music bed, trimming the output to exactly the
// narration duration. A failed or cancelled encode removes the partial
// output file.
func (s *Stage) render(ctx context.Context, item *queue.Item, basePath string, narration speech.Narration, srtPath, musicTrack, outputPath string) error {
	withMusic := musicTrack != ""

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-stream_loop", "-1", "-i", basePath,
		"-i", narration.TrackPath,
	}
	if withMusic {
		args = append(args, "-stream_loop", "-1", "-i", musicTrack)
	}

	position := item.SubtitlesPosition
	if position == "" {
		position = s.cfg.Subtitles.Position
	}
	color := item.SubtitlesColor
	if color == "" {
		color = s.cfg.Subtitles.Color
	}
	graph := renderFilterGraph(srtPath, position, color, s.cfg.Subtitles.FontName, s.cfg.Subtitles.FontSize, withMusic, s.cfg.Music.Gain)

	args = append(args, "-filter_complex", graph, "-map", "[vout]")
	if withMusic {
		args = append(args, "-map", "[aout]")
	} else {
		args = append(args, "-map", "1:a")
	}
	args = append(args,
		"-t", strconv.FormatFloat(narration.Duration, 'f', 3, 64),
		"-r", strconv.Itoa(s.cfg.Pipeline.FrameRate),
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "21",
		"-c:a", "aac",
		"-b:a", "192k",
		outputPath,
	)

	if err := s.runner.Run(ctx, args); err != nil {
		_ = os.Remove(outputPath)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return services.Wrap(services.ErrCancelled, stageName, "render", "cancelled during final render", err)
		}
		return services.Wrap(services.ErrEncodingFailure, stageName, "render", "final render failed", err)
	}
	return nil
}

// HealthCheck verifies the media binaries are on hand.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	const name = "composer"
	for _, status := range deps.CheckBinaries(deps.MediaRequirements(s.cfg.FFmpegBinary(), s.cfg.FFprobeBinary())) {
		if !status.Available {
			return stage.Unhealthy(name, status.Detail)
		}
	}
	return stage.Healthy(name)
}

func outputName(jobID int64) string {
	return fmt.Sprintf("short-%d-%s.mp4", jobID, time.Now().Format("20060102-150405"))
}
