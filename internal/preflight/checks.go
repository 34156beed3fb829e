package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"lectern/internal/config"
	"lectern/internal/services/llm"
)

// Result is the outcome of one check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckBinary verifies the named executable is resolvable on PATH.
func CheckBinary(name, binary string) Result {
	path, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDirectory verifies the directory exists and is readable, writable, and
// traversable.
func CheckDirectory(name, dir string) Result {
	info, err := os.Stat(dir)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a directory", dir)}
	}
	if err := unix.Access(dir, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: insufficient permissions: %v", dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: dir}
}

// CheckLLM verifies the model API is reachable and the key is valid, with a
// 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, cfg config.LLM) Result {
	const name = "Model API"
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// Run executes every check for the configuration. Binary checks cover each
// enabled collaborator; the model check only runs when checkModel is set,
// since it costs a network round trip.
func Run(ctx context.Context, cfg *config.Config, checkModel bool) []Result {
	results := []Result{
		CheckBinary("ffmpeg", cfg.Extraction.Binary),
		CheckBinary("whisper", cfg.Transcriber.Binary),
	}
	if cfg.Downloader.Enabled {
		results = append(results, CheckBinary("yt-dlp", cfg.Downloader.Binary))
	}

	dirs := []struct {
		name string
		path string
	}{
		{"recordings dir", cfg.Paths.RecordingsDir},
		{"audio dir", cfg.Paths.AudioDir},
		{"transcripts dir", cfg.Paths.TranscriptsDir},
		{"notes dir", cfg.Paths.NotesDir},
		{"log dir", cfg.Paths.LogDir},
	}
	for _, dir := range dirs {
		results = append(results, CheckDirectory(dir.name, dir.path))
	}

	if checkModel {
		results = append(results, CheckLLM(ctx, cfg.LLM))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

func summarizeError(err error) string {
	if err == nil {
		return ""
	}
	message := err.Error()
	if idx := strings.Index(message, "\n"); idx >= 0 {
		message = message[:idx]
	}
	const limit = 160
	if len(message) > limit {
		message = message[:limit] + "..."
	}
	return message
}
