package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/pipeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the progress ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshot, err := pipeline.Status(cfg)
			if err != nil {
				return err
			}
			if len(snapshot.Items) == 0 {
				cmd.Printf("ledger %s is empty\n", snapshot.LedgerPath)
				return nil
			}

			headers := append([]string{"Item"}, snapshot.Columns...)
			aligns := make([]columnAlignment, len(headers))
			rows := make([][]string, 0, len(snapshot.Items))
			for _, item := range snapshot.Items {
				row := make([]string, 0, len(headers))
				row = append(row, item.Key)
				for _, column := range snapshot.Columns {
					if item.Done[column] {
						row = append(row, "O")
					} else {
						row = append(row, "")
					}
				}
				rows = append(rows, row)
			}
			cmd.Println(renderTable(headers, rows, aligns))

			counts := make([]string, 0, len(snapshot.Columns))
			for _, column := range snapshot.Columns {
				counts = append(counts, fmt.Sprintf("%s %d/%d", column, snapshot.Counts[column], len(snapshot.Items)))
			}
			cmd.Println(strings.Join(counts, "  "))
			return nil
		},
	}
}
