package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/history"
	"lectern/internal/pipeline"
	"lectern/internal/stage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var noHistory bool
	var only []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every pipeline stage once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			collab, err := pipeline.NewCollaborators(cfg)
			if err != nil {
				return err
			}

			defs := pipeline.Stages(cfg, collab)
			if len(only) > 0 {
				defs, err = filterStages(defs, only)
				if err != nil {
					return err
				}
			}

			var opts []pipeline.Option
			if !noHistory {
				historyPath, err := ctx.historyPath()
				if err != nil {
					return err
				}
				store, err := history.Open(historyPath)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, pipeline.WithHistory(store))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			pipe := pipeline.New(cfg, logger, defs, opts...)
			summary, err := pipe.Run(runCtx)
			if summary != nil {
				printSummary(cmd, summary)
			}
			if err != nil {
				return err
			}
			if summary.Failed() > 0 {
				return fmt.Errorf("%d item(s) failed; they stay pending and will be retried next run", summary.Failed())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Skip recording this run in the history database")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Run only the named stages (e.g. --only transcribe,structure)")
	return cmd
}

func filterStages(defs []stage.Definition, only []string) ([]stage.Definition, error) {
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}
	filtered := make([]stage.Definition, 0, len(defs))
	for _, def := range defs {
		if wanted[def.Name] {
			filtered = append(filtered, def)
			delete(wanted, def.Name)
		}
	}
	for name := range wanted {
		return nil, fmt.Errorf("unknown stage %q", name)
	}
	return filtered, nil
}

func printSummary(cmd *cobra.Command, summary *pipeline.Summary) {
	rows := make([][]string, 0, len(summary.Stages))
	for _, result := range summary.Stages {
		rows = append(rows, []string{
			result.Stage,
			strconv.Itoa(result.Completed),
			strconv.Itoa(result.Reconciled),
			strconv.Itoa(result.SkippedDone),
			strconv.Itoa(result.SkippedGated),
			strconv.Itoa(result.Failed),
			result.Duration.Round(10 * time.Millisecond).String(),
		})
	}
	cmd.Println(renderTable(
		[]string{"Stage", "Completed", "Reconciled", "Done", "Gated", "Failed", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	for _, result := range summary.Stages {
		for _, failure := range result.Failures {
			cmd.Printf("failed %s/%s: %s\n", result.Stage, failure.Key, failure.Details.Message)
		}
	}
}
