package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeTranscriber()
	if err := c.normalizeLLM(); err != nil {
		return err
	}
	c.normalizeDownloader()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.recordings_dir", &c.Paths.RecordingsDir},
		{"paths.audio_dir", &c.Paths.AudioDir},
		{"paths.raw_text_dir", &c.Paths.RawTextDir},
		{"paths.transcripts_dir", &c.Paths.TranscriptsDir},
		{"paths.notes_dir", &c.Paths.NotesDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.url_table", &c.Paths.URLTable},
		{"paths.ledger_path", &c.Paths.LedgerPath},
	}
	for _, field := range fields {
		expanded, err := expandPath(*field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.Binary = strings.TrimSpace(c.Extraction.Binary)
	if c.Extraction.Binary == "" {
		c.Extraction.Binary = defaultExtractionBinary
	}
	c.Extraction.AudioFormat = strings.ToLower(strings.TrimSpace(c.Extraction.AudioFormat))
	if c.Extraction.AudioFormat == "" {
		c.Extraction.AudioFormat = defaultAudioFormat
	}
	if c.Extraction.SampleRate <= 0 {
		c.Extraction.SampleRate = defaultSampleRate
	}
}

func (c *Config) normalizeTranscriber() {
	c.Transcriber.Binary = strings.TrimSpace(c.Transcriber.Binary)
	if c.Transcriber.Binary == "" {
		c.Transcriber.Binary = defaultTranscriberBinary
	}
	c.Transcriber.Model = strings.TrimSpace(c.Transcriber.Model)
	if c.Transcriber.Model == "" {
		c.Transcriber.Model = defaultTranscriberModel
	}
	c.Transcriber.Language = strings.ToLower(strings.TrimSpace(c.Transcriber.Language))
	if c.Transcriber.Language == "" {
		c.Transcriber.Language = defaultLanguage
	}
}

func (c *Config) normalizeLLM() error {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.PromptProfile = strings.TrimSpace(c.LLM.PromptProfile)
	if c.LLM.PromptProfile == "" {
		c.LLM.PromptProfile = defaultPromptProfile
	}
	if strings.TrimSpace(c.LLM.PromptsPath) == "" {
		c.LLM.PromptsPath = defaultPromptsPath
	}
	expanded, err := expandPath(c.LLM.PromptsPath)
	if err != nil {
		return fmt.Errorf("llm.prompts_path: %w", err)
	}
	c.LLM.PromptsPath = expanded
	return nil
}

func (c *Config) normalizeDownloader() {
	c.Downloader.Binary = strings.TrimSpace(c.Downloader.Binary)
	if c.Downloader.Binary == "" {
		c.Downloader.Binary = defaultDownloaderBinary
	}
	c.Downloader.AudioFormat = strings.ToLower(strings.TrimSpace(c.Downloader.AudioFormat))
	if c.Downloader.AudioFormat == "" {
		c.Downloader.AudioFormat = defaultAudioFormat
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.StageTimeoutSeconds <= 0 {
		c.Workflow.StageTimeoutSeconds = defaultStageTimeoutSeconds
	}
	if c.Workflow.WatchDebounceSeconds <= 0 {
		c.Workflow.WatchDebounceSeconds = defaultWatchDebounceSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
