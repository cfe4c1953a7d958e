package aligner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 2 * time.Second
	maxPollDuration     = 5 * time.Minute
)

// Word is one aligned token with offsets in seconds from track start.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Config captures the runtime settings for the alignment service.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
	PollSeconds    int
}

// Client wraps the word-level alignment service. Alignment is asynchronous on
// the backend: a submitted track returns a task id that is polled until the
// transcript is ready.
type Client struct {
	cfg        Config
	httpClient *http.Client
	poll       time.Duration
	clock      func() time.Time
	sleeper    func(context.Context, time.Duration) error
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

// WithPollInterval overrides the task polling cadence (useful for tests).
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.poll = interval
		}
	}
}

// NewClient constructs an alignment client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	poll := defaultPollInterval
	if cfg.PollSeconds > 0 {
		poll = time.Duration(cfg.PollSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
			PollSeconds:    cfg.PollSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		poll:       poll,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitResponse struct {
	ID string `json:"id"`
}

type taskResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Words  []Word `json:"words"`
}

// Align submits the narration audio and waits for word-level timestamps. Any
// error is a signal for the caller to fall back to local heuristic timing;
// nothing here is job-fatal.
func (c *Client) Align(ctx context.Context, audioPath string) ([]Word, error) {
	if c.cfg.BaseURL == "" {
		return nil, errors.New("aligner: base url required")
	}

	taskID, err := c.submit(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	deadline := c.clock().Add(maxPollDuration)
	for {
		task, err := c.fetchTask(ctx, taskID)
		if err != nil {
			return nil, err
		}
		switch task.Status {
		case "done", "completed":
			if len(task.Words) == 0 {
				return nil, errors.New("aligner: task completed with no words")
			}
			return task.Words, nil
		case "failed", "error":
			return nil, fmt.Errorf("aligner: task failed: %s", strings.TrimSpace(task.Error))
		}
		if c.clock().After(deadline) {
			return nil, errors.New("aligner: task did not complete in time")
		}
		if err := c.sleep(ctx, c.poll); err != nil {
			return nil, err
		}
	}
}

func (c *Client) submit(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("aligner: open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("aligner: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("aligner: copy audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("aligner: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/align", &body)
	if err != nil {
		return "", fmt.Errorf("aligner: new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("aligner: submit: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("aligner: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("aligner: submit: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded submitResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("aligner: decode submit response: %w", err)
	}
	if strings.TrimSpace(decoded.ID) == "" {
		return "", errors.New("aligner: submit returned no task id")
	}
	return decoded.ID, nil
}

func (c *Client) fetchTask(ctx context.Context, taskID string) (taskResponse, error) {
	var task taskResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/align/"+taskID, nil)
	if err != nil {
		return task, fmt.Errorf("aligner: new request: %w", err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return task, fmt.Errorf("aligner: poll: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return task, fmt.Errorf("aligner: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return task, fmt.Errorf("aligner: poll: http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if err := json.Unmarshal(payload, &task); err != nil {
		return task, fmt.Errorf("aligner: decode task: %w", err)
	}
	return task, nil
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if c.sleeper != nil {
		return c.sleeper(ctx, delay)
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
