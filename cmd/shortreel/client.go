package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortreel/internal/daemon"
)

// apiClient is a thin HTTP wrapper over the daemon API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *apiClient) Submit(ctx context.Context, req daemon.SubmitJobRequest) (daemon.JobView, error) {
	var resp daemon.JobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp); err != nil {
		return daemon.JobView{}, err
	}
	return resp.Job, nil
}

func (c *apiClient) Job(ctx context.Context, id int64) (daemon.JobView, error) {
	var resp daemon.JobResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/jobs/%d", id), nil, &resp); err != nil {
		return daemon.JobView{}, err
	}
	return resp.Job, nil
}

func (c *apiClient) Cancel(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/jobs/%d/cancel", id), nil, nil)
}

func (c *apiClient) Queue(ctx context.Context, statuses []string) ([]daemon.JobView, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		params := make([]string, 0, len(statuses))
		for _, status := range statuses {
			params = append(params, "status="+status)
		}
		path += "?" + strings.Join(params, "&")
	}
	var resp daemon.QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *apiClient) Retry(ctx context.Context, ids []int64) (int64, error) {
	var resp daemon.CountResponse
	payload := map[string][]int64{"ids": ids}
	if err := c.do(ctx, http.MethodPost, "/api/queue/retry", payload, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *apiClient) Clear(ctx context.Context, scope string) (int64, error) {
	path := "/api/queue/clear"
	if scope != "" {
		path += "?scope=" + scope
	}
	var resp daemon.CountResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *apiClient) Health(ctx context.Context) (daemon.HealthResponse, error) {
	var resp daemon.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp); err != nil {
		return daemon.HealthResponse{}, err
	}
	return resp, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s: %w (is shortreeld running?)", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s", payload.Error)
	}
	return fmt.Errorf("daemon returned %d", resp.StatusCode)
}
