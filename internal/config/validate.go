package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validatePexels(); err != nil {
		return err
	}
	if err := c.validateAligner(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateMusic(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/shortreel/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set SHORTREEL_LLM_API_KEY env var or edit %s (create with 'shortreel config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePexels() error {
	if c.Pexels.APIKey == "" {
		return errors.New("pexels.api_key is required. Set SHORTREEL_PEXELS_API_KEY env var or edit the config file")
	}
	return nil
}

func (c *Config) validateAligner() error {
	if !c.Aligner.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Aligner.BaseURL) == "" {
		return errors.New("aligner.base_url must be set when aligner.enabled is true")
	}
	if strings.TrimSpace(c.Aligner.APIKey) == "" {
		return errors.New("aligner.api_key must be set when aligner.enabled is true")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.TargetWidth%2 != 0 || c.Pipeline.TargetHeight%2 != 0 {
		return errors.New("pipeline.target_width and pipeline.target_height must be even")
	}
	if c.Pipeline.DownloadThreads > 32 {
		return errors.New("pipeline.download_threads must be <= 32")
	}
	return nil
}

func (c *Config) validateMusic() error {
	if !c.Music.Enabled {
		return nil
	}
	if c.Music.Gain <= 0 || c.Music.Gain >= 1 {
		return errors.New("music.gain must be between 0 and 1 (exclusive)")
	}
	if strings.TrimSpace(c.Paths.MusicDir) == "" {
		return errors.New("paths.music_dir must be set when music.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
