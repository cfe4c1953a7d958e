package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	MusicDir  string `toml:"music_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// LLM contains connection settings for the script and metadata model backend.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Pexels contains configuration for the stock footage search backend.
type Pexels struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	PerPage        int    `toml:"per_page"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains configuration for the speech synthesis backend.
type TTS struct {
	BaseURL           string `toml:"base_url"`
	Voice             string `toml:"voice"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	MaxRetries        int    `toml:"max_retries"`
	FallbackToDefault bool   `toml:"fallback_to_default_voice"`
}

// Aligner contains configuration for the optional word-level alignment service.
type Aligner struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PollSeconds    int    `toml:"poll_seconds"`
}

// Pipeline contains per-job generation defaults.
type Pipeline struct {
	ParagraphCount    int `toml:"paragraph_count"`
	DownloadThreads   int `toml:"download_threads"`
	MinClips          int `toml:"min_clips"`
	SearchTermCount   int `toml:"search_term_count"`
	SearchRetryBound  int `toml:"search_retry_bound"`
	TargetWidth       int `toml:"target_width"`
	TargetHeight      int `toml:"target_height"`
	FrameRate         int `toml:"frame_rate"`
	MinClipSeconds    int `toml:"min_clip_seconds"`
	MinClipWidth      int `toml:"min_clip_width"`
	MinClipHeight     int `toml:"min_clip_height"`
}

// Subtitles contains burn-in styling and cue grouping configuration.
type Subtitles struct {
	Position     string `toml:"position"`
	Color        string `toml:"color"`
	FontName     string `toml:"font_name"`
	FontSize     int    `toml:"font_size"`
	WordsPerCue  int    `toml:"words_per_cue"`
	MinCueMillis int    `toml:"min_cue_millis"`
}

// Music contains the background music bed configuration.
type Music struct {
	Enabled bool    `toml:"enabled"`
	Gain    float64 `toml:"gain"`
}

// YouTube contains upload credentials and publishing defaults.
type YouTube struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	Privacy      string `toml:"privacy"`
	CategoryID   string `toml:"category_id"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Errors         bool   `toml:"errors"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Debug contains development toggles.
type Debug struct {
	KeepWorkspace bool `toml:"keep_workspace"`
}

// Config encapsulates all configuration values for shortreel.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - LLM: script/metadata model connection settings
//   - Pexels: stock footage search backend
//   - TTS: speech synthesis backend and voice defaults
//   - Aligner: optional word-level subtitle alignment service
//   - Pipeline: generation defaults (clip filters, concurrency, aspect)
//   - Subtitles: burn-in styling and cue grouping
//   - Music: background music bed mixing
//   - YouTube: upload credentials and privacy defaults
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and timeouts
//   - Logging: log format and level
//   - Debug: workspace retention for troubleshooting
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Pexels        Pexels        `toml:"pexels"`
	TTS           TTS           `toml:"tts"`
	Aligner       Aligner       `toml:"aligner"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Music         Music         `toml:"music"`
	YouTube       YouTube       `toml:"youtube"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Debug         Debug         `toml:"debug"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/shortreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. Secrets may also be supplied via
// environment variables (optionally from a .env file next to the config),
// which take effect only when the corresponding TOML field is empty.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverlay(filepath.Dir(resolvedPath))

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// applyEnvOverlay fills empty secret fields from the environment. A .env file
// in the config directory is merged first without clobbering real env vars.
func (c *Config) applyEnvOverlay(configDir string) {
	if configDir != "" {
		_ = godotenv.Load(filepath.Join(configDir, ".env"))
	}
	overlay := func(target *string, key string) {
		if strings.TrimSpace(*target) != "" {
			return
		}
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
	overlay(&c.LLM.APIKey, "SHORTREEL_LLM_API_KEY")
	overlay(&c.Pexels.APIKey, "SHORTREEL_PEXELS_API_KEY")
	overlay(&c.Aligner.APIKey, "SHORTREEL_ALIGNER_API_KEY")
	overlay(&c.YouTube.ClientID, "SHORTREEL_YOUTUBE_CLIENT_ID")
	overlay(&c.YouTube.ClientSecret, "SHORTREEL_YOUTUBE_CLIENT_SECRET")
	overlay(&c.YouTube.RefreshToken, "SHORTREEL_YOUTUBE_REFRESH_TOKEN")
	overlay(&c.Paths.APIToken, "SHORTREEL_API_TOKEN")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/shortreel/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shortreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// MusicDir is created on a best-effort basis since music is optional.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.MusicDir) != "" {
		_ = os.MkdirAll(c.Paths.MusicDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for composition.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// UploadConfigured reports whether the YouTube credential set is complete.
func (c *Config) UploadConfigured() bool {
	return strings.TrimSpace(c.YouTube.ClientID) != "" &&
		strings.TrimSpace(c.YouTube.ClientSecret) != "" &&
		strings.TrimSpace(c.YouTube.RefreshToken) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
