package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://tiktok-tts.weilnet.workers.dev/api/generation"
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxRetries  = 3
	retryBaseDelay     = time.Second
)

// ErrUnknownVoice is returned when the requested speaker is not in the
// backend's catalog. Callers treat it as fatal unless fallback to the default
// voice is configured.
var ErrUnknownVoice = errors.New("tts: unknown voice")

// StatusError carries a non-2xx response for callers to classify.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tts: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Transient reports whether the failure is worth retrying.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// Config captures the runtime settings for the synthesis backend.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
	MaxRetries     int
}

// Client wraps the speech synthesis HTTP backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(time.Duration)
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

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a synthesis client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxRetries:     cfg.MaxRetries,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.MaxRetries <= 0 {
		client.cfg.MaxRetries = defaultMaxRetries
	}
	return client
}

type generationRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type generationResponse struct {
	Success *bool  `json:"success"`
	Data    string `json:"data"`
	Error   string `json:"error"`
}

// Synthesize converts one sentence into audio bytes. Text longer than the
// backend's request limit is split on word boundaries and the resulting audio
// chunks are concatenated in order.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = DefaultVoice
	}
	if !KnownVoice(voice) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, voice)
	}

	normalized := NormalizeText(text)
	if normalized == "" {
		return nil, errors.New("tts: empty text")
	}

	var audio bytes.Buffer
	for _, chunk := range SplitChunks(normalized) {
		data, err := c.synthesizeChunk(ctx, chunk, voice)
		if err != nil {
			return nil, err
		}
		audio.Write(data)
	}
	return audio.Bytes(), nil
}

func (c *Client) synthesizeChunk(ctx context.Context, text, voice string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		data, err := c.requestOnce(ctx, text, voice)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.cfg.MaxRetries {
			return nil, err
		}
		if err := c.sleep(ctx, retryBaseDelay<<(attempt-1)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) requestOnce(ctx context.Context, text, voice string) ([]byte, error) {
	encoded, err := json.Marshal(generationRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("tts: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded generationResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("tts: decode response: %w", err)
	}
	if decoded.Success != nil && !*decoded.Success {
		return nil, fmt.Errorf("tts: backend error: %s", strings.TrimSpace(decoded.Error))
	}
	if strings.TrimSpace(decoded.Data) == "" {
		return nil, errors.New("tts: backend returned no audio data")
	}
	audio, err := base64.StdEncoding.DecodeString(decoded.Data)
	if err != nil {
		return nil, fmt.Errorf("tts: decode audio payload: %w", err)
	}
	return audio, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	// Transport-level failures (connection refused, timeouts) are transient.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
