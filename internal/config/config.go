package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories and files the pipeline reads and writes.
type Paths struct {
	RecordingsDir  string `toml:"recordings_dir"`
	AudioDir       string `toml:"audio_dir"`
	RawTextDir     string `toml:"raw_text_dir"`
	TranscriptsDir string `toml:"transcripts_dir"`
	NotesDir       string `toml:"notes_dir"`
	LogDir         string `toml:"log_dir"`
	URLTable       string `toml:"url_table"`
	LedgerPath     string `toml:"ledger_path"`
}

// Transcriber contains configuration for the speech-to-text collaborator.
type Transcriber struct {
	Binary   string `toml:"binary"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
	EmitSRT  bool   `toml:"emit_srt"`
	EmitJSON bool   `toml:"emit_json"`
}

// LLM contains connection settings for the structuring model.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PromptsPath    string `toml:"prompts_path"`
	PromptProfile  string `toml:"prompt_profile"`
	SaveHTML       bool   `toml:"save_html"`
}

// Downloader contains configuration for the URL download collaborator.
type Downloader struct {
	Enabled     bool   `toml:"enabled"`
	Binary      string `toml:"binary"`
	AudioFormat string `toml:"audio_format"`
}

// Extraction contains configuration for audio extraction.
type Extraction struct {
	Binary      string `toml:"binary"`
	AudioFormat string `toml:"audio_format"`
	SampleRate  int    `toml:"sample_rate"`
}

// Workflow contains run timing and watch-mode settings.
type Workflow struct {
	StageTimeoutSeconds  int `toml:"stage_timeout_seconds"`
	WatchDebounceSeconds int `toml:"watch_debounce_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Lectern.
//
// Sections by subsystem:
//   - Paths: input/output directories, the URL table, and the ledger file
//   - Extraction: ffmpeg audio extraction settings
//   - Transcriber: speech-to-text binary and model
//   - LLM: structuring model connection and prompt profile
//   - Downloader: URL table download settings
//   - Workflow: per-stage timeout and watch debounce
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Extraction  Extraction  `toml:"extraction"`
	Transcriber Transcriber `toml:"transcriber"`
	LLM         LLM         `toml:"llm"`
	Downloader  Downloader  `toml:"downloader"`
	Workflow    Workflow    `toml:"workflow"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lectern/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The bool reports
// whether a config file was found at the resolved path.
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

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
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

// EnsureDirectories creates the directories the pipeline needs before a run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.RecordingsDir,
		c.Paths.AudioDir,
		c.Paths.RawTextDir,
		c.Paths.TranscriptsDir,
		c.Paths.NotesDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if ledgerDir := filepath.Dir(c.Paths.LedgerPath); ledgerDir != "" {
		if err := os.MkdirAll(ledgerDir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory %q: %w", ledgerDir, err)
		}
	}
	return nil
}

// StagingDir returns the scratch directory used for in-flight stage outputs.
func (c *Config) StagingDir() string {
	return filepath.Join(c.Paths.LogDir, "staging")
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
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
