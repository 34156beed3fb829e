package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"lectern/internal/services"
)

// Options controls audio extraction output.
type Options struct {
	Binary     string
	Format     string // "wav" or "mp3"
	SampleRate int
}

// Extractor invokes ffmpeg to pull the audio track out of a recording.
type Extractor struct {
	opts   Options
	runner func(ctx context.Context, name string, args ...string) error
}

// NewExtractor creates an extractor with the given options.
func NewExtractor(opts Options) *Extractor {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.Format == "" {
		opts.Format = "wav"
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 16000
	}
	return &Extractor{opts: opts}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.runner = runner
}

// Binary returns the configured ffmpeg executable name.
func (e *Extractor) Binary() string {
	return e.opts.Binary
}

// OutputExt returns the file extension extraction produces, dot included.
func (e *Extractor) OutputExt() string {
	return "." + e.opts.Format
}

// ExtractAudio extracts the full audio stream from source into dest. The
// output is mono at the configured sample rate, pcm_s16le for wav or
// libmp3lame for mp3. dest should be a staging path; the caller renames it
// into place on success.
func (e *Extractor) ExtractAudio(ctx context.Context, source, dest string) error {
	codec, err := e.codec()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "extract", "codec", err.Error(), nil)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(e.opts.SampleRate),
		"-c:a", codec,
		dest,
	}
	if err := e.run(ctx, e.opts.Binary, args...); err != nil {
		return services.Wrap(services.ErrExtraction, "extract", "ffmpeg", source, err)
	}
	return nil
}

func (e *Extractor) codec() (string, error) {
	switch e.opts.Format {
	case "wav":
		return "pcm_s16le", nil
	case "mp3":
		return "libmp3lame", nil
	default:
		return "", fmt.Errorf("unsupported audio format %q", e.opts.Format)
	}
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	if e.runner != nil {
		return e.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
