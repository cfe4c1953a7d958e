package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizePexels()
	c.normalizeTTS()
	c.normalizeAligner()
	c.normalizePipeline()
	c.normalizeSubtitles()
	c.normalizeYouTube()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.MusicDir) == "" {
		c.Paths.MusicDir = defaultMusicDir
	}
	if c.Paths.MusicDir, err = expandPath(c.Paths.MusicDir); err != nil {
		return fmt.Errorf("paths.music_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizePexels() {
	c.Pexels.APIKey = strings.TrimSpace(c.Pexels.APIKey)
	c.Pexels.BaseURL = strings.TrimSpace(c.Pexels.BaseURL)
	if c.Pexels.BaseURL == "" {
		c.Pexels.BaseURL = defaultPexelsBaseURL
	}
	if c.Pexels.PerPage <= 0 {
		c.Pexels.PerPage = defaultPexelsPerPage
	}
	if c.Pexels.TimeoutSeconds <= 0 {
		c.Pexels.TimeoutSeconds = defaultPexelsTimeout
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.BaseURL = strings.TrimSpace(c.TTS.BaseURL)
	if c.TTS.BaseURL == "" {
		c.TTS.BaseURL = defaultTTSBaseURL
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	if c.TTS.TimeoutSeconds <= 0 {
		c.TTS.TimeoutSeconds = defaultTTSTimeout
	}
	if c.TTS.MaxRetries <= 0 {
		c.TTS.MaxRetries = defaultTTSMaxRetries
	}
}

func (c *Config) normalizeAligner() {
	c.Aligner.BaseURL = strings.TrimSpace(c.Aligner.BaseURL)
	c.Aligner.APIKey = strings.TrimSpace(c.Aligner.APIKey)
	if c.Aligner.TimeoutSeconds <= 0 {
		c.Aligner.TimeoutSeconds = defaultAlignerTimeout
	}
	if c.Aligner.PollSeconds <= 0 {
		c.Aligner.PollSeconds = defaultAlignerPoll
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.ParagraphCount <= 0 {
		c.Pipeline.ParagraphCount = defaultParagraphCount
	}
	if c.Pipeline.DownloadThreads <= 0 {
		c.Pipeline.DownloadThreads = defaultDownloadThreads
	}
	if c.Pipeline.MinClips <= 0 {
		c.Pipeline.MinClips = defaultMinClips
	}
	if c.Pipeline.SearchTermCount <= 0 {
		c.Pipeline.SearchTermCount = defaultSearchTermCount
	}
	if c.Pipeline.SearchRetryBound < 0 {
		c.Pipeline.SearchRetryBound = defaultSearchRetryBound
	}
	if c.Pipeline.TargetWidth <= 0 {
		c.Pipeline.TargetWidth = defaultTargetWidth
	}
	if c.Pipeline.TargetHeight <= 0 {
		c.Pipeline.TargetHeight = defaultTargetHeight
	}
	if c.Pipeline.FrameRate <= 0 {
		c.Pipeline.FrameRate = defaultFrameRate
	}
	if c.Pipeline.MinClipSeconds <= 0 {
		c.Pipeline.MinClipSeconds = defaultMinClipSeconds
	}
	if c.Pipeline.MinClipWidth <= 0 {
		c.Pipeline.MinClipWidth = defaultMinClipWidth
	}
	if c.Pipeline.MinClipHeight <= 0 {
		c.Pipeline.MinClipHeight = defaultMinClipHeight
	}
}

func (c *Config) normalizeSubtitles() {
	c.Subtitles.Position = strings.ToLower(strings.TrimSpace(c.Subtitles.Position))
	switch c.Subtitles.Position {
	case "top", "center", "bottom":
	default:
		c.Subtitles.Position = defaultSubtitlePosition
	}
	c.Subtitles.Color = strings.TrimSpace(c.Subtitles.Color)
	if c.Subtitles.Color == "" {
		c.Subtitles.Color = defaultSubtitleColor
	}
	c.Subtitles.FontName = strings.TrimSpace(c.Subtitles.FontName)
	if c.Subtitles.FontName == "" {
		c.Subtitles.FontName = defaultSubtitleFontName
	}
	if c.Subtitles.FontSize <= 0 {
		c.Subtitles.FontSize = defaultSubtitleFontSize
	}
	if c.Subtitles.WordsPerCue <= 0 {
		c.Subtitles.WordsPerCue = defaultWordsPerCue
	}
	if c.Subtitles.MinCueMillis <= 0 {
		c.Subtitles.MinCueMillis = defaultMinCueMillis
	}
}

func (c *Config) normalizeYouTube() {
	c.YouTube.ClientID = strings.TrimSpace(c.YouTube.ClientID)
	c.YouTube.ClientSecret = strings.TrimSpace(c.YouTube.ClientSecret)
	c.YouTube.RefreshToken = strings.TrimSpace(c.YouTube.RefreshToken)
	c.YouTube.Privacy = strings.ToLower(strings.TrimSpace(c.YouTube.Privacy))
	switch c.YouTube.Privacy {
	case "public", "private", "unlisted":
	default:
		c.YouTube.Privacy = defaultYouTubePrivacy
	}
	c.YouTube.CategoryID = strings.TrimSpace(c.YouTube.CategoryID)
	if c.YouTube.CategoryID == "" {
		c.YouTube.CategoryID = defaultYouTubeCategoryID
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
