package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var showFailures bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recent runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			historyPath, err := ctx.historyPath()
			if err != nil {
				return err
			}
			store, err := history.Open(historyPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return printRunDetail(cmd, store, args[0])
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				cmd.Println("no runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format(time.DateTime),
					run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
					run.Status,
					strconv.Itoa(run.Completed),
					strconv.Itoa(run.Failed),
				})
			}
			cmd.Println(renderTable(
				[]string{"Run", "Started", "Duration", "Status", "Completed", "Failed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight},
			))

			if showFailures {
				return printRunDetail(cmd, store, runs[0].ID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&showFailures, "failures", false, "Also show failures of the most recent run")
	return cmd
}

func printRunDetail(cmd *cobra.Command, store *history.Store, runID string) error {
	counts, err := store.StageCounts(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(counts) > 0 {
		rows := make([][]string, 0, len(counts))
		for _, count := range counts {
			rows = append(rows, []string{
				count.Stage,
				strconv.Itoa(count.Completed),
				strconv.Itoa(count.Reconciled),
				strconv.Itoa(count.Failed),
				count.Duration.Round(10 * time.Millisecond).String(),
			})
		}
		cmd.Println(renderTable(
			[]string{"Stage", "Completed", "Reconciled", "Failed", "Duration"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}

	failures, err := store.RunFailures(cmd.Context(), runID)
	if err != nil {
		return err
	}
	for _, failure := range failures {
		cmd.Printf("failed %s/%s (%s): %s\n", failure.Stage, failure.ItemKey, failure.Kind, failure.Message)
	}
	return nil
}
