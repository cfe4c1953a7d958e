package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"
)

const uploadScope = "https://www.googleapis.com/auth/youtube.upload"

// ErrAuth marks credential failures (expired or revoked refresh token). The
// publish stage surfaces these distinctly so the operator can re-consent out
// of band instead of retrying.
var ErrAuth = errors.New("youtube: authentication failed")

// Config captures upload credentials and publishing defaults.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Privacy      string
	CategoryID   string
}

// Metadata describes the uploaded video.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
	CategoryID  string
}

// Client uploads rendered videos through the YouTube Data API.
type Client struct {
	cfg        Config
	newService func(ctx context.Context) (*youtubeapi.Service, error)
}

// Option customizes the client.
type Option func(*Client)

// WithServiceFactory overrides how the API service is constructed (tests).
func WithServiceFactory(factory func(ctx context.Context) (*youtubeapi.Service, error)) Option {
	return func(c *Client) {
		if factory != nil {
			c.newService = factory
		}
	}
}

// NewClient constructs an upload client from stored refresh-token credentials.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			RefreshToken: strings.TrimSpace(cfg.RefreshToken),
			Privacy:      strings.TrimSpace(cfg.Privacy),
			CategoryID:   strings.TrimSpace(cfg.CategoryID),
		},
	}
	client.newService = client.defaultService
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Configured reports whether upload credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != "" && c.cfg.RefreshToken != ""
}

func (c *Client) defaultService(ctx context.Context) (*youtubeapi.Service, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: missing client credentials or refresh token", ErrAuth)
	}
	oauthCfg := &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{uploadScope},
	}
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: c.cfg.RefreshToken})
	service, err := youtubeapi.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("youtube: build service: %w", err)
	}
	return service, nil
}

// Upload sends the rendered file with the provided metadata and returns the
// remote video id. The underlying media transport is resumable; transient
// HTTP failures are retried by the API client itself, so a returned error is
// final. 401/403 responses map to ErrAuth.
func (c *Client) Upload(ctx context.Context, path string, meta Metadata) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("youtube: open video: %w", err)
	}
	defer file.Close()

	service, err := c.newService(ctx)
	if err != nil {
		return "", err
	}

	privacy := strings.TrimSpace(meta.Privacy)
	if privacy == "" {
		privacy = c.cfg.Privacy
	}
	category := strings.TrimSpace(meta.CategoryID)
	if category == "" {
		category = c.cfg.CategoryID
	}

	madeForKids := false
	video := &youtubeapi.Video{
		Snippet: &youtubeapi.VideoSnippet{
			Title:       strings.TrimSpace(meta.Title),
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  category,
		},
		Status: &youtubeapi.VideoStatus{
			PrivacyStatus:           privacy,
			MadeForKids:             madeForKids,
			SelfDeclaredMadeForKids: madeForKids,
		},
	}

	call := service.Videos.Insert([]string{"snippet", "status"}, video)
	call = call.Media(file, googleapi.ChunkSize(googleapi.DefaultUploadChunkSize))
	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return "", classifyUploadError(err)
	}
	if uploaded == nil || strings.TrimSpace(uploaded.Id) == "" {
		return "", errors.New("youtube: upload returned no video id")
	}
	return uploaded.Id, nil
}

func classifyUploadError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: http %d: %s", ErrAuth, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("youtube: upload: http %d: %s", apiErr.Code, apiErr.Message)
	}
	// oauth2 token refresh failures arrive as *oauth2.RetrieveError.
	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	return fmt.Errorf("youtube: upload: %w", err)
}
