package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"lectern/internal/services"
)

// Options controls how yt-dlp is invoked.
type Options struct {
	Binary      string
	AudioFormat string
}

// Downloader invokes yt-dlp to fetch the audio track of a remote recording.
type Downloader struct {
	opts   Options
	runner func(ctx context.Context, name string, args ...string) error
}

// New creates a downloader with the given options.
func New(opts Options) *Downloader {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	return &Downloader{opts: opts}
}

// WithCommandRunner sets a custom command runner (for testing).
func (d *Downloader) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	d.runner = runner
}

// Binary returns the configured yt-dlp executable name.
func (d *Downloader) Binary() string {
	return d.opts.Binary
}

// OutputExt returns the file extension downloads produce, dot included.
func (d *Downloader) OutputExt() string {
	return "." + d.opts.AudioFormat
}

// Download fetches the audio of url into dest. dest must carry the configured
// audio extension; yt-dlp is handed the matching output template so the final
// file lands exactly there.
func (d *Downloader) Download(ctx context.Context, url, dest string) error {
	wantExt := d.OutputExt()
	if filepath.Ext(dest) != wantExt {
		return services.Wrap(services.ErrConfiguration, "download", "yt-dlp",
			fmt.Sprintf("destination %q must end in %s", dest, wantExt), nil)
	}
	template := strings.TrimSuffix(dest, wantExt) + ".%(ext)s"

	args := []string{
		"--extract-audio",
		"--audio-format", d.opts.AudioFormat,
		"--audio-quality", "0",
		"--no-playlist",
		"--no-progress",
		"--output", template,
		url,
	}
	if err := d.run(ctx, d.opts.Binary, args...); err != nil {
		return services.Wrap(services.ErrDownload, "download", "yt-dlp", url, err)
	}
	if _, err := os.Stat(dest); err != nil {
		return services.Wrap(services.ErrDownload, "download", "yt-dlp",
			fmt.Sprintf("no output produced for %s", url), err)
	}
	return nil
}

func (d *Downloader) run(ctx context.Context, name string, args ...string) error {
	if d.runner != nil {
		return d.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
