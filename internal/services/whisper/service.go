package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lectern/internal/services"
)

// Options controls how the whisper CLI is invoked.
type Options struct {
	Binary   string
	Model    string
	Language string
	EmitSRT  bool
	EmitJSON bool
}

// Result lists the transcript files one transcription produced. TextPath is
// always set on success; SRTPath and JSONPath are set when the corresponding
// outputs were requested.
type Result struct {
	TextPath string
	SRTPath  string
	JSONPath string
}

// Service invokes the whisper CLI.
type Service struct {
	opts   Options
	runner func(ctx context.Context, name string, args ...string) error
}

// New creates a transcription service with the given options.
func New(opts Options) *Service {
	if opts.Binary == "" {
		opts.Binary = "whisper"
	}
	if opts.Model == "" {
		opts.Model = "large-v3-turbo"
	}
	return &Service{opts: opts}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.runner = runner
}

// Binary returns the configured whisper executable name.
func (s *Service) Binary() string {
	return s.opts.Binary
}

// OutputExts returns the transcript extensions a successful run produces,
// dots included, text first.
func (s *Service) OutputExts() []string {
	exts := []string{".txt"}
	if s.opts.EmitSRT {
		exts = append(exts, ".srt")
	}
	if s.opts.EmitJSON {
		exts = append(exts, ".json")
	}
	return exts
}

// Transcribe runs whisper against the audio file at source, writing transcript
// files into outputDir. Output files are named after the source basename, so
// outputDir should be a staging directory the caller renames from.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string) (*Result, error) {
	args := []string{
		source,
		"--model", s.opts.Model,
		"--output_dir", outputDir,
		"--output_format", s.outputFormat(),
		"--verbose", "False",
	}
	if s.opts.Language != "" {
		args = append(args, "--language", s.opts.Language)
	}

	if err := s.run(ctx, s.opts.Binary, args...); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "whisper", source, err)
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result := &Result{TextPath: filepath.Join(outputDir, base+".txt")}
	if _, err := os.Stat(result.TextPath); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "transcribe", "whisper",
			fmt.Sprintf("no transcript produced for %s", source), err)
	}
	if s.opts.EmitSRT {
		result.SRTPath = filepath.Join(outputDir, base+".srt")
	}
	if s.opts.EmitJSON {
		result.JSONPath = filepath.Join(outputDir, base+".json")
	}
	return result, nil
}

// outputFormat maps the requested outputs onto the CLI's single-valued flag.
// Anything beyond plain text needs "all"; extra files whisper emits in that
// mode are left behind in the staging directory.
func (s *Service) outputFormat() string {
	if s.opts.EmitSRT || s.opts.EmitJSON {
		return "all"
	}
	return "txt"
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Segment is one timestamped span of a whisper JSON transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcriptFile struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// LoadSegments parses the segments out of a whisper JSON transcript.
func LoadSegments(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript %q: %w", path, err)
	}
	var parsed transcriptFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse transcript %q: %w", path, err)
	}
	return parsed.Segments, nil
}
