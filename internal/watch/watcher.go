package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"lectern/internal/config"
	"lectern/internal/logging"
)

// RunFunc executes one pipeline pass.
type RunFunc func(ctx context.Context) error

// Watcher observes the input directories and fires runs.
type Watcher struct {
	cfg      *config.Config
	logger   *slog.Logger
	run      RunFunc
	debounce time.Duration
}

// New builds a watcher over the configured input directories.
func New(cfg *config.Config, logger *slog.Logger, run RunFunc) (*Watcher, error) {
	if run == nil {
		return nil, fmt.Errorf("watch: run func required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	debounce := time.Duration(cfg.Workflow.WatchDebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	return &Watcher{
		cfg:      cfg,
		logger:   logger.With(logging.FieldComponent, "watch"),
		run:      run,
		debounce: debounce,
	}, nil
}

// Watch runs once immediately, then blocks firing a run after each debounced
// burst of file events, until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.cfg.EnsureDirectories(); err != nil {
		return err
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create notifier: %w", err)
	}
	defer notifier.Close()

	dirs := []string{
		w.cfg.Paths.RecordingsDir,
		w.cfg.Paths.RawTextDir,
		w.cfg.Paths.AudioDir,
	}
	if w.cfg.Downloader.Enabled {
		dirs = append(dirs, filepath.Dir(w.cfg.Paths.URLTable))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := notifier.Add(dir); err != nil {
			return fmt.Errorf("watch %q: %w", dir, err)
		}
		w.logger.InfoContext(ctx, "watching directory", logging.String("dir", dir))
	}

	w.fire(ctx)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.DebugContext(ctx, "file event",
				logging.String("path", event.Name),
				logging.String("op", event.Op.String()),
			)
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "watch error", logging.Error(err))
		case <-timer.C:
			pending = false
			w.fire(ctx)
		}
	}
}

func (w *Watcher) fire(ctx context.Context) {
	if err := w.run(ctx); err != nil {
		w.logger.ErrorContext(ctx, "run failed", logging.Error(err))
	}
}

// relevant filters out temp files and events that cannot introduce work.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") || strings.HasSuffix(base, ".part") {
		return false
	}
	return true
}
