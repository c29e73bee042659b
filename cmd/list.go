package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/report"
	"github.com/signalnine/letterbench/internal/result"
)

var flagListConfig string

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the test cases of the configured data file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, closer, err := setupLogging(cmd, "")
			if err != nil {
				return err
			}
			defer closer.Close()

			cfg, err := config.LoadRun(ctx, flagListConfig)
			if err != nil {
				return err
			}
			cases, err := result.LoadTestCases(cfg.DataFile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d test cases in %s\n\n", len(cases), cfg.DataFile)
			return report.RenderTable(cmd.OutOrStdout(), []string{"ID", "Notes", "Reference"}, caseRows(cases))
		},
	}
	cmd.Flags().StringVar(&flagListConfig, "config", "test/config.json", "config file path")
	return cmd
}

func caseRows(cases []result.TestCase) [][]string {
	rows := make([][]string, 0, len(cases))
	for _, c := range cases {
		id := c.ID
		if id == "" {
			id = "(no id)"
		}
		rows = append(rows, []string{id, sectionState(c.Notes), sectionState(c.Reference)})
	}
	return rows
}

func sectionState(s string) string {
	if s == "" {
		return "missing"
	}
	return fmt.Sprintf("%d chars", len([]rune(s)))
}
