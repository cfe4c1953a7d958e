package footage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"shortreel/internal/config"
	"shortreel/internal/logging"
	"shortreel/internal/services"
	"shortreel/internal/services/pexels"
	"shortreel/internal/workspace"
)

const laneName = "acquiring"

// Searcher is the slice of the stock footage backend the acquirer needs.
type Searcher interface {
	Search(ctx context.Context, term string) ([]pexels.Clip, error)
	Download(ctx context.Context, fileURL, dest string) error
}

// Request describes one acquisition run. ExpansionTerms are searched only when
// the primary terms run dry before the duration target is met.
type Request struct {
	Terms          []string
	ExpansionTerms []string
	MinDuration    float64
	Threads        int
}

// Acquirer searches for candidate clips and downloads them through a bounded
// worker pool.
type Acquirer struct {
	cfg    *config.Config
	client Searcher
	logger *slog.Logger
}

// Option customizes the acquirer.
type Option func(*Acquirer)

// WithSearcher injects the footage backend (tests).
func WithSearcher(client Searcher) Option {
	return func(a *Acquirer) {
		if client != nil {
			a.client = client
		}
	}
}

// NewAcquirer constructs the footage lane for the gathering stage.
func NewAcquirer(cfg *config.Config, logger *slog.Logger, opts ...Option) *Acquirer {
	a := &Acquirer{
		cfg: cfg,
		client: pexels.NewClient(pexels.Config{
			APIKey:         cfg.Pexels.APIKey,
			BaseURL:        cfg.Pexels.BaseURL,
			PerPage:        cfg.Pexels.PerPage,
			TimeoutSeconds: cfg.Pexels.TimeoutSeconds,
		}),
		logger: logging.NewComponentLogger(logger, "footage-acquirer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// acquisition holds the mutable state shared by download workers.
type acquisition struct {
	mu       sync.Mutex
	accepted []Asset
	total    float64
	nextFile int

	minDuration float64
	minClips    int
}

func (s *acquisition) satisfiedLocked() bool {
	return s.total >= s.minDuration && len(s.accepted) >= s.minClips
}

func (s *acquisition) satisfied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.satisfiedLocked()
}

// claimFile reserves the next clip filename, or returns false once the pool
// already covers the target so remaining candidates are not downloaded.
func (s *acquisition) claimFile() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.satisfiedLocked() {
		return 0, false
	}
	index := s.nextFile
	s.nextFile++
	return index, true
}

// accept appends an asset in download-completion order.
func (s *acquisition) accept(asset Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accepted = append(s.accepted, asset)
	s.total += asset.Duration
}

// Acquire downloads clips for the request's terms until the accumulated
// duration covers MinDuration and the minimum clip count is met. Exhausting
// all terms first is a soft failure: the partial pool is returned alongside
// a duration-shortfall error and the caller decides whether looping the
// available footage is acceptable.
func (a *Acquirer) Acquire(ctx context.Context, ws *workspace.Workspace, req Request) ([]Asset, error) {
	if len(req.Terms) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, laneName, "acquire", "no search terms provided", nil)
	}
	threads := req.Threads
	if threads <= 0 {
		threads = a.cfg.Pipeline.DownloadThreads
	}

	state := &acquisition{
		minDuration: req.MinDuration,
		minClips:    a.cfg.Pipeline.MinClips,
	}
	seen := make(map[int64]bool)
	searched := make(map[string]bool)
	logger := logging.WithContext(ctx, a.logger)

	queue := req.Terms
	var lastSearchErr error
	for round := 0; ; round++ {
		candidates, searchErr := a.search(ctx, queue, seen, searched, logger)
		if searchErr != nil {
			lastSearchErr = searchErr
		}
		if err := ctx.Err(); err != nil {
			return state.accepted, services.Wrap(services.ErrCancelled, laneName, "search", "cancelled during footage search", err)
		}

		if err := a.download(ctx, ws, candidates, threads, state, logger); err != nil {
			return state.accepted, err
		}
		if state.satisfied() {
			break
		}
		if round >= a.cfg.Pipeline.SearchRetryBound {
			break
		}
		queue = unsearched(req.ExpansionTerms, searched)
		if len(queue) == 0 {
			break
		}
		logger.Info("expanding footage search",
			logging.Int("round", round+1),
			logging.Int("accepted", len(state.accepted)),
			logging.Float64("accepted_seconds", state.total),
			logging.String(logging.FieldEventType, "footage_search_expanded"),
		)
	}

	if len(state.accepted) == 0 {
		if lastSearchErr != nil {
			return nil, services.Wrap(services.ErrUpstreamUnavailable, laneName, "acquire", "footage search backend failed", lastSearchErr)
		}
		return nil, services.Wrap(services.ErrUpstreamUnavailable, laneName, "acquire", "no usable footage found for any search term", nil)
	}
	if !state.satisfied() {
		message := fmt.Sprintf("accepted %.1fs of footage, need %.1fs", state.total, req.MinDuration)
		return state.accepted, services.Wrap(services.ErrDurationShortfall, laneName, "acquire", message, nil)
	}

	logger.Info("footage acquired",
		logging.Int("clips", len(state.accepted)),
		logging.Float64("duration_seconds", state.total),
		logging.String(logging.FieldEventType, "footage_acquired"),
	)
	return state.accepted, nil
}

// search collects usable candidates across the given terms, deduplicating by
// source identifier. A single term's failure is logged and skipped; the error
// is surfaced only if no clip was ever accepted.
func (a *Acquirer) search(ctx context.Context, terms []string, seen map[int64]bool, searched map[string]bool, logger *slog.Logger) ([]pexels.Clip, error) {
	var candidates []pexels.Clip
	var lastErr error
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" || searched[strings.ToLower(term)] {
			continue
		}
		searched[strings.ToLower(term)] = true
		if ctx.Err() != nil {
			return candidates, lastErr
		}

		clips, err := a.client.Search(ctx, term)
		if err != nil {
			lastErr = err
			logger.Warn("footage search failed for term",
				logging.String("term", term),
				logging.Error(err),
			)
			continue
		}
		kept := 0
		for _, clip := range clips {
			if seen[clip.ID] || !a.usable(clip) {
				continue
			}
			seen[clip.ID] = true
			candidates = append(candidates, clip)
			kept++
		}
		logger.Debug("footage search results",
			logging.String("term", term),
			logging.Int("returned", len(clips)),
			logging.Int("kept", kept),
		)
	}
	return candidates, lastErr
}

// usable applies the orientation, resolution, and duration filters. Resolution
// minimums are configured landscape-style, so portrait clips compare their
// dimensions rotated.
func (a *Acquirer) usable(clip pexels.Clip) bool {
	if !clip.Portrait() {
		return false
	}
	if clip.Duration < float64(a.cfg.Pipeline.MinClipSeconds) {
		return false
	}
	return clip.Height >= a.cfg.Pipeline.MinClipWidth && clip.Width >= a.cfg.Pipeline.MinClipHeight
}

// download runs the bounded worker pool over the candidates. A failed
// download skips that candidate; only cancellation aborts the pool.
func (a *Acquirer) download(ctx context.Context, ws *workspace.Workspace, candidates []pexels.Clip, threads int, state *acquisition, logger *slog.Logger) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(threads)

	for _, clip := range candidates {
		clip := clip
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			index, ok := state.claimFile()
			if !ok {
				return nil
			}

			dest := filepath.Join(ws.FootageDir(), fmt.Sprintf("clip-%03d.mp4", index))
			if err := a.client.Download(groupCtx, clip.FileURL, dest); err != nil {
				if groupCtx.Err() != nil {
					return groupCtx.Err()
				}
				logger.Warn("clip download failed, skipping",
					logging.Int64("source_id", clip.ID),
					logging.Error(err),
				)
				return nil
			}

			state.accept(Asset{
				SourceID: clip.ID,
				Path:     dest,
				Width:    clip.Width,
				Height:   clip.Height,
				Duration: clip.Duration,
			})
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return services.Wrap(services.ErrCancelled, laneName, "download", "cancelled during footage download", err)
	}
	return nil
}

func unsearched(terms []string, searched map[string]bool) []string {
	var out []string
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" || searched[strings.ToLower(term)] {
			continue
		}
		out = append(out, term)
	}
	return out
}
