package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lectern/internal/ledger"
	"lectern/internal/logging"
	"lectern/internal/services"
)

// Outcome classifies what RunOne did with an item.
type Outcome int

const (
	// OutcomeCompleted means the handler ran and the item finished.
	OutcomeCompleted Outcome = iota
	// OutcomeReconciled means the outputs already existed, so the ledger was
	// caught up without running the handler.
	OutcomeReconciled
	// OutcomeFailed means the handler failed; the ledger is untouched.
	OutcomeFailed
)

// Failure records one item the stage could not finish.
type Failure struct {
	Key     string
	Err     error
	Details services.FailureDetails
}

// Result summarizes one stage pass.
type Result struct {
	Stage        string
	Completed    int
	Reconciled   int
	SkippedDone  int
	SkippedGated int
	Failed       int
	Failures     []Failure
	Duration     time.Duration
}

// Processed returns how many items finished, by handler or by reconcile.
func (r Result) Processed() int {
	return r.Completed + r.Reconciled
}

// Runner executes one stage against the shared ledger.
type Runner struct {
	def     Definition
	ledger  *ledger.Ledger
	logger  *slog.Logger
	timeout time.Duration
}

// NewRunner validates the definition and binds it to the ledger. timeout
// bounds each handler invocation; zero means no bound.
func NewRunner(def Definition, led *ledger.Ledger, logger *slog.Logger, timeout time.Duration) (*Runner, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	if led == nil {
		return nil, fmt.Errorf("stage %q: ledger required", def.Name)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		def:     def,
		ledger:  led,
		logger:  logger.With(logging.FieldComponent, "stage."+def.Name),
		timeout: timeout,
	}, nil
}

// Name returns the stage name.
func (r *Runner) Name() string {
	return r.def.Name
}

// Column returns the ledger column the stage completes.
func (r *Runner) Column() string {
	return r.def.Column
}

// Pending discovers items and filters out those already complete or not yet
// eligible. Every discovered item is ensured in the ledger so status output
// shows it even before any stage finishes.
func (r *Runner) Pending(ctx context.Context) ([]Item, error) {
	pending, _, _, err := r.partition(ctx)
	return pending, err
}

func (r *Runner) partition(ctx context.Context) (pending []Item, skippedDone, skippedGated int, err error) {
	discovered, err := r.def.Discover(ctx)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("stage %s: discover: %w", r.def.Name, err)
	}

	pending = make([]Item, 0, len(discovered))
	for _, item := range discovered {
		r.ledger.Ensure(item.Key)
		if r.ledger.IsComplete(item.Key, r.def.Column) {
			skippedDone++
			continue
		}
		if !r.eligible(item.Key) {
			skippedGated++
			continue
		}
		pending = append(pending, item)
	}
	return pending, skippedDone, skippedGated, nil
}

func (r *Runner) eligible(key string) bool {
	if len(r.def.DependsOnAny) == 0 {
		return true
	}
	for _, upstream := range r.def.DependsOnAny {
		if r.ledger.IsComplete(key, upstream) {
			return true
		}
	}
	return false
}

// RunOne processes a single pending item. When every output already exists
// the ledger is reconciled without invoking the handler; otherwise the
// handler runs under the stage timeout. The completion flag is only set after
// the handler returned and the outputs are verified on disk.
func (r *Runner) RunOne(ctx context.Context, item Item) (Outcome, error) {
	if OutputsExist(item) {
		if err := r.ledger.Upsert(item.Key, r.def.Column, true); err != nil {
			return OutcomeFailed, err
		}
		r.logger.InfoContext(ctx, "reconciled from existing output", logging.FieldItemKey, item.Key)
		return OutcomeReconciled, nil
	}

	runCtx := services.WithItemKey(services.WithStage(ctx, r.def.Name), item.Key)
	cancel := func() {}
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, r.timeout)
	}
	defer cancel()

	start := time.Now()
	err := r.def.Handler(runCtx, item)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = services.Wrap(services.ErrTimeout, r.def.Name, item.Key,
				fmt.Sprintf("exceeded %s", r.timeout), err)
		}
		return OutcomeFailed, err
	}
	if !OutputsExist(item) {
		return OutcomeFailed, services.Wrap(services.ErrExternalTool, r.def.Name, item.Key,
			"handler succeeded but outputs are missing", nil)
	}

	if err := r.ledger.Upsert(item.Key, r.def.Column, true); err != nil {
		return OutcomeFailed, err
	}
	r.logger.InfoContext(ctx, "item completed",
		logging.FieldItemKey, item.Key,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return OutcomeCompleted, nil
}

// RunAll processes every pending item in key order. persist is called after
// each item whose flag changed, so progress survives a crash mid-batch. A
// failing item is recorded and the batch continues; RunAll only returns an
// error when the run as a whole cannot proceed.
func (r *Runner) RunAll(ctx context.Context, persist func() error) (Result, error) {
	result := Result{Stage: r.def.Name}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	pending, skippedDone, skippedGated, err := r.partition(ctx)
	if err != nil {
		return result, err
	}
	result.SkippedDone = skippedDone
	result.SkippedGated = skippedGated

	for _, item := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		outcome, err := r.RunOne(ctx, item)
		switch outcome {
		case OutcomeCompleted:
			result.Completed++
		case OutcomeReconciled:
			result.Reconciled++
		case OutcomeFailed:
			result.Failed++
			result.Failures = append(result.Failures, Failure{
				Key:     item.Key,
				Err:     err,
				Details: services.Details(err),
			})
			r.logger.ErrorContext(ctx, "item failed",
				logging.String(logging.FieldItemKey, item.Key),
				logging.Error(err),
			)
			continue
		}

		if persist != nil {
			if err := persist(); err != nil {
				return result, fmt.Errorf("stage %s: persist ledger: %w", r.def.Name, err)
			}
		}
	}
	return result, nil
}
