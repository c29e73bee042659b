package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/letterbench/internal/evaluate"
)

func newRescoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rescore <eval-dir>",
		Short: "Re-score stored evaluations without calling the model",
		Long:  "Re-parse every <case>_evaluation.txt in an evaluation directory with the weights saved in its eval_config.json, then rewrite the per-case metrics, eval_summary.json and evaluation_report.md.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, closer, err := setupLogging(cmd, "eval.log")
			if err != nil {
				return err
			}
			defer closer.Close()

			dir, err := filepath.EvalSymlinks(args[0])
			if err != nil {
				return fmt.Errorf("resolving eval dir: %w", err)
			}
			s, err := evaluate.Rescore(ctx, dir, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rescored %d cases, average weighted score %.2f/5\n",
				len(s.CasesEvaluated), s.AverageMetrics.WeightedScore)
			return nil
		},
	}
}
