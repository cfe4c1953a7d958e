package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.pexels.com/videos"
	defaultPerPage     = 10
	defaultHTTPTimeout = 30 * time.Second
)

// Config captures the runtime settings for the stock footage search backend.
type Config struct {
	APIKey         string
	BaseURL        string
	PerPage        int
	TimeoutSeconds int
}

// Clip is one candidate stock video returned by a search.
type Clip struct {
	ID       int64
	Width    int
	Height   int
	Duration float64
	FileURL  string
}

// Portrait reports whether the clip is taller than it is wide.
func (c Clip) Portrait() bool {
	return c.Height > c.Width
}

// StatusError carries a non-2xx response for callers to classify.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pexels: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Transient reports whether the failure is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// Client wraps the Pexels video search API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a search client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			PerPage:        cfg.PerPage,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.PerPage <= 0 {
		client.cfg.PerPage = defaultPerPage
	}
	return client
}

type searchResponse struct {
	Videos []struct {
		ID         int64       `json:"id"`
		Width      int         `json:"width"`
		Height     int         `json:"height"`
		Duration   float64     `json:"duration"`
		VideoFiles []videoFile `json:"video_files"`
	} `json:"videos"`
}

type videoFile struct {
	ID       int64  `json:"id"`
	Quality  string `json:"quality"`
	FileType string `json:"file_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Link     string `json:"link"`
}

// Search queries the backend for candidate clips matching the term. Each
// returned clip carries the URL of its largest mp4 rendition.
func (c *Client) Search(ctx context.Context, term string) ([]Clip, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errors.New("pexels search: term required")
	}
	if c.cfg.APIKey == "" {
		return nil, errors.New("pexels search: api key required")
	}

	endpoint := c.cfg.BaseURL + "/search?" + url.Values{
		"query":    {term},
		"per_page": {strconv.Itoa(c.cfg.PerPage)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pexels search: new request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pexels search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pexels search: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("pexels search: decode response: %w", err)
	}

	clips := make([]Clip, 0, len(decoded.Videos))
	for _, video := range decoded.Videos {
		fileURL := bestRendition(video.VideoFiles)
		if fileURL == "" {
			continue
		}
		clips = append(clips, Clip{
			ID:       video.ID,
			Width:    video.Width,
			Height:   video.Height,
			Duration: video.Duration,
			FileURL:  fileURL,
		})
	}
	return clips, nil
}

// bestRendition picks the widest mp4 file for a video. Non-mp4 renditions
// (HLS playlists) are skipped because ffmpeg concat needs local files.
func bestRendition(files []videoFile) string {
	best := ""
	bestWidth := -1
	for _, file := range files {
		if !strings.EqualFold(file.FileType, "video/mp4") {
			continue
		}
		if file.Width > bestWidth {
			bestWidth = file.Width
			best = file.Link
		}
	}
	return best
}

// Download streams the clip at fileURL into dest. The partial file is removed
// on any failure so a crashed download never poisons the asset pool.
func (c *Client) Download(ctx context.Context, fileURL, dest string) error {
	fileURL = strings.TrimSpace(fileURL)
	if fileURL == "" {
		return errors.New("pexels download: url required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("pexels download: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pexels download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Body: resp.Status}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("pexels download: create directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("pexels download: create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("pexels download: write file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("pexels download: close file: %w", err)
	}
	return nil
}
