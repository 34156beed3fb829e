package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lectern/internal/config"
	"lectern/internal/history"
	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/services"
	"lectern/internal/stage"
)

// Run statuses persisted to history.
const (
	StatusCompleted    = "completed"
	StatusWithFailures = "completed_with_failures"
)

// Summary reports what one run did.
type Summary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []stage.Result
}

// Completed sums handler completions across stages.
func (s *Summary) Completed() int {
	total := 0
	for _, result := range s.Stages {
		total += result.Completed
	}
	return total
}

// Reconciled sums ledger catch-ups across stages.
func (s *Summary) Reconciled() int {
	total := 0
	for _, result := range s.Stages {
		total += result.Reconciled
	}
	return total
}

// Failed sums failures across stages.
func (s *Summary) Failed() int {
	total := 0
	for _, result := range s.Stages {
		total += result.Failed
	}
	return total
}

// Status returns the run status string persisted to history.
func (s *Summary) Status() string {
	if s.Failed() > 0 {
		return StatusWithFailures
	}
	return StatusCompleted
}

// Pipeline drives a full run over the configured stages.
type Pipeline struct {
	cfg    *config.Config
	base   *slog.Logger
	logger *slog.Logger
	defs   []stage.Definition
	store  *history.Store
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithHistory records run summaries to the given store.
func WithHistory(store *history.Store) Option {
	return func(p *Pipeline) {
		p.store = store
	}
}

// New builds a pipeline over the given stage definitions.
func New(cfg *config.Config, logger *slog.Logger, defs []stage.Definition, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:    cfg,
		base:   logger,
		logger: logger.With(logging.FieldComponent, "pipeline"),
		defs:   defs,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage in order against a freshly loaded ledger. The
// single-instance lock beside the ledger file guarantees only one run mutates
// it at a time; a second concurrent invocation fails fast instead of
// corrupting state.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.cfg.StagingDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	lock := flock.New(p.cfg.Paths.LedgerPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another run is already in progress (lock %s held)", lock.Path())
	}
	defer func() {
		_ = lock.Unlock()
	}()

	led, err := ledger.Load(p.cfg.Paths.LedgerPath, Columns())
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	runCtx := services.WithRunID(ctx, summary.RunID)
	p.logger.InfoContext(runCtx, "run started",
		logging.String(logging.FieldRunID, summary.RunID),
		logging.Int("stages", len(p.defs)),
	)

	for _, def := range p.defs {
		runner, err := stage.NewRunner(def, led, p.base, p.stageTimeout())
		if err != nil {
			return nil, err
		}
		result, err := runner.RunAll(runCtx, led.Save)
		summary.Stages = append(summary.Stages, result)
		if err != nil {
			summary.FinishedAt = time.Now()
			return summary, fmt.Errorf("stage %s: %w", def.Name, err)
		}
		p.logger.InfoContext(runCtx, "stage finished",
			logging.String(logging.FieldStage, def.Name),
			logging.Int("completed", result.Completed),
			logging.Int("reconciled", result.Reconciled),
			logging.Int("failed", result.Failed),
			logging.Duration("duration", result.Duration),
		)
	}

	// Items discovered but never completed still need to reach the file.
	if err := led.Save(); err != nil {
		summary.FinishedAt = time.Now()
		return summary, err
	}
	summary.FinishedAt = time.Now()

	if p.store != nil {
		if err := p.recordHistory(runCtx, summary); err != nil {
			p.logger.WarnContext(runCtx, "record run history", logging.Error(err))
		}
	}

	p.logger.InfoContext(runCtx, "run finished",
		logging.String(logging.FieldRunID, summary.RunID),
		logging.String("status", summary.Status()),
		logging.Int("completed", summary.Completed()),
		logging.Int("failed", summary.Failed()),
	)
	return summary, nil
}

func (p *Pipeline) stageTimeout() time.Duration {
	if p.cfg.Workflow.StageTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(p.cfg.Workflow.StageTimeoutSeconds) * time.Second
}

func (p *Pipeline) recordHistory(ctx context.Context, summary *Summary) error {
	run := history.Run{
		ID:         summary.RunID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Status:     summary.Status(),
		Completed:  summary.Completed(),
		Reconciled: summary.Reconciled(),
		Failed:     summary.Failed(),
	}
	counts := make([]history.StageCount, 0, len(summary.Stages))
	var failures []history.Failure
	for _, result := range summary.Stages {
		counts = append(counts, history.StageCount{
			Stage:      result.Stage,
			Completed:  result.Completed,
			Reconciled: result.Reconciled,
			Failed:     result.Failed,
			Duration:   result.Duration,
		})
		for _, failure := range result.Failures {
			failures = append(failures, history.Failure{
				Stage:   result.Stage,
				ItemKey: failure.Key,
				Kind:    failure.Details.Kind,
				Message: failure.Details.Message,
			})
		}
	}
	return p.store.RecordRun(ctx, run, counts, failures)
}
