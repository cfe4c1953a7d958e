package config

const (
	defaultWorkDir             = "~/.local/share/shortreel/work"
	defaultOutputDir           = "~/.local/share/shortreel/output"
	defaultLogDir              = "~/.local/share/shortreel/logs"
	defaultMusicDir            = "~/.local/share/shortreel/music"
	defaultAPIBind             = "127.0.0.1:7512"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMReferer          = "https://github.com/shortreel/shortreel"
	defaultLLMTitle            = "Shortreel Script Writer"
	defaultLLMTimeoutSeconds   = 120
	defaultPexelsBaseURL       = "https://api.pexels.com/videos"
	defaultPexelsPerPage       = 15
	defaultPexelsTimeout       = 30
	defaultTTSBaseURL          = "https://api.streamelements.com/kappa/v2/speech"
	defaultTTSVoice            = "en_us_001"
	defaultTTSTimeout          = 30
	defaultTTSMaxRetries       = 3
	defaultAlignerTimeout      = 300
	defaultAlignerPoll         = 3
	defaultParagraphCount      = 3
	defaultDownloadThreads     = 4
	defaultMinClips            = 5
	defaultSearchTermCount     = 5
	defaultSearchRetryBound    = 2
	defaultTargetWidth         = 1080
	defaultTargetHeight        = 1920
	defaultFrameRate           = 30
	defaultMinClipSeconds      = 3
	defaultMinClipWidth        = 1280
	defaultMinClipHeight       = 720
	defaultSubtitlePosition    = "bottom"
	defaultSubtitleColor       = "#FFFF00"
	defaultSubtitleFontName    = "Arial"
	defaultSubtitleFontSize    = 100
	defaultWordsPerCue         = 4
	defaultMinCueMillis        = 300
	defaultMusicGain           = 0.10
	defaultYouTubePrivacy      = "private"
	defaultYouTubeCategoryID   = "24"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 10
	defaultNotifyRequestTimout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			MusicDir:  defaultMusicDir,
			APIBind:   defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Pexels: Pexels{
			BaseURL:        defaultPexelsBaseURL,
			PerPage:        defaultPexelsPerPage,
			TimeoutSeconds: defaultPexelsTimeout,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Voice:          defaultTTSVoice,
			TimeoutSeconds: defaultTTSTimeout,
			MaxRetries:     defaultTTSMaxRetries,
		},
		Aligner: Aligner{
			TimeoutSeconds: defaultAlignerTimeout,
			PollSeconds:    defaultAlignerPoll,
		},
		Pipeline: Pipeline{
			ParagraphCount:   defaultParagraphCount,
			DownloadThreads:  defaultDownloadThreads,
			MinClips:         defaultMinClips,
			SearchTermCount:  defaultSearchTermCount,
			SearchRetryBound: defaultSearchRetryBound,
			TargetWidth:      defaultTargetWidth,
			TargetHeight:     defaultTargetHeight,
			FrameRate:        defaultFrameRate,
			MinClipSeconds:   defaultMinClipSeconds,
			MinClipWidth:     defaultMinClipWidth,
			MinClipHeight:    defaultMinClipHeight,
		},
		Subtitles: Subtitles{
			Position:     defaultSubtitlePosition,
			Color:        defaultSubtitleColor,
			FontName:     defaultSubtitleFontName,
			FontSize:     defaultSubtitleFontSize,
			WordsPerCue:  defaultWordsPerCue,
			MinCueMillis: defaultMinCueMillis,
		},
		Music: Music{
			Gain: defaultMusicGain,
		},
		YouTube: YouTube{
			Privacy:    defaultYouTubePrivacy,
			CategoryID: defaultYouTubeCategoryID,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimout,
			Completed:      true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
