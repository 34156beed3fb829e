package config

import (
	"errors"
	"fmt"
	"strings"
)

var supportedAudioFormats = map[string]struct{}{
	"wav": {},
	"mp3": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateDownloader(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	required := map[string]string{
		"paths.recordings_dir":  c.Paths.RecordingsDir,
		"paths.audio_dir":       c.Paths.AudioDir,
		"paths.transcripts_dir": c.Paths.TranscriptsDir,
		"paths.notes_dir":       c.Paths.NotesDir,
		"paths.log_dir":         c.Paths.LogDir,
		"paths.ledger_path":     c.Paths.LedgerPath,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if _, ok := supportedAudioFormats[c.Extraction.AudioFormat]; !ok {
		return fmt.Errorf("extraction.audio_format %q is not supported (wav or mp3)", c.Extraction.AudioFormat)
	}
	if c.Extraction.SampleRate <= 0 {
		return errors.New("extraction.sample_rate must be positive")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDownloader() error {
	if !c.Downloader.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Paths.URLTable) == "" {
		return errors.New("paths.url_table must be set when downloader.enabled is true")
	}
	if _, ok := supportedAudioFormats[c.Downloader.AudioFormat]; !ok {
		return fmt.Errorf("downloader.audio_format %q is not supported (wav or mp3)", c.Downloader.AudioFormat)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.StageTimeoutSeconds <= 0 {
		return errors.New("workflow.stage_timeout_seconds must be positive")
	}
	if c.Workflow.WatchDebounceSeconds <= 0 {
		return errors.New("workflow.watch_debounce_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
