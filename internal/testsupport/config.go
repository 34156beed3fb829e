package testsupport

import (
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// NewConfig returns a validated configuration rooted in a per-test temp
// directory. Every pipeline directory exists when it returns.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.RecordingsDir = filepath.Join(base, "recordings")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.RawTextDir = filepath.Join(base, "raw_text")
	cfg.Paths.TranscriptsDir = filepath.Join(base, "transcripts")
	cfg.Paths.NotesDir = filepath.Join(base, "notes")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.URLTable = filepath.Join(base, "urls.csv")
	cfg.Paths.LedgerPath = filepath.Join(base, "log.csv")
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.PromptsPath = ""
	cfg.LLM.SaveHTML = false
	cfg.Transcriber.EmitSRT = false
	cfg.Transcriber.EmitJSON = false

	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create test directories: %v", err)
	}
	return &cfg
}
