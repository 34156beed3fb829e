package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lectern/internal/history"
	"lectern/internal/pipeline"
	"lectern/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run continuously, triggering on new input files",
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
			historyPath, err := ctx.historyPath()
			if err != nil {
				return err
			}
			store, err := history.Open(historyPath)
			if err != nil {
				return err
			}
			defer store.Close()

			run := func(runCtx context.Context) error {
				pipe := pipeline.New(cfg, logger, pipeline.Stages(cfg, collab), pipeline.WithHistory(store))
				_, err := pipe.Run(runCtx)
				return err
			}

			watcher, err := watch.New(cfg, logger, run)
			if err != nil {
				return err
			}

			watchCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watcher.Watch(watchCtx)
		},
	}
}
