package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lectern/internal/config"
)

func writeTestConfig(t *testing.T) string {
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

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(base, "lectern.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	output, err := executeCommand(t, "config", "init", path)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(output, path) {
		t.Fatalf("unexpected output: %q", output)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	// A second init without --force must refuse.
	if _, err := executeCommand(t, "config", "init", path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
}

func TestConfigShowRedactsAPIKey(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := executeCommand(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if strings.Contains(output, "test-key") {
		t.Fatal("api key must be redacted")
	}
	if !strings.Contains(output, "<set>") {
		t.Fatalf("redaction marker missing: %q", output)
	}
}

func TestStatusCommandEmptyLedger(t *testing.T) {
	configPath := writeTestConfig(t)
	output, err := executeCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output, "empty") {
		t.Fatalf("unexpected output: %q", output)
	}
}
