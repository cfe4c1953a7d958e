package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shortreel/internal/config"
)

const userAgent = "Shortreel/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, topic, outputFile string) error
	NotifyJobPublished(ctx context.Context, topic, remoteID string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	endpoint := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if endpoint == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      endpoint,
		client:        &http.Client{Timeout: timeout},
		sendCompleted: cfg.Notifications.Completed,
		sendErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	sendCompleted bool
	sendErrors    bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, topic, outputFile string) error {
	if !n.sendCompleted {
		return nil
	}
	topic = strings.TrimSpace(topic)
	message := fmt.Sprintf("Video ready: %s", topic)
	if outputFile = strings.TrimSpace(outputFile); outputFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputFile)
	}
	data := payload{
		title:    "Shortreel - Complete",
		message:  message,
		tags:     []string{"shortreel", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobPublished(ctx context.Context, topic, remoteID string) error {
	if !n.sendCompleted {
		return nil
	}
	topic = strings.TrimSpace(topic)
	remoteID = strings.TrimSpace(remoteID)
	data := payload{
		title:   "Shortreel - Published",
		message: fmt.Sprintf("Uploaded: %s (video id %s)", topic, remoteID),
		tags:    []string{"shortreel", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.sendErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Shortreel - Error",
		message:  builder.String(),
		tags:     []string{"shortreel", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Shortreel - Test",
		message:  "Notification system test",
		tags:     []string{"shortreel", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string) error { return nil }
func (noopService) NotifyJobPublished(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
