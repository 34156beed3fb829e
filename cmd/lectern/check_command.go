package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var checkModel bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, directories, and API access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			results := preflight.Run(cmd.Context(), cfg, checkModel)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				mark := "FAIL"
				if result.Passed {
					mark = "ok"
				}
				rows = append(rows, []string{result.Name, mark, result.Detail})
			}
			cmd.Println(renderTable(
				[]string{"Check", "Result", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if !preflight.AllPassed(results) {
				return fmt.Errorf("preflight failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkModel, "model", false, "Also ping the model API (costs one request)")
	return cmd
}
