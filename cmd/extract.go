package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/letterbench/internal/extract"
)

var flagOutput string

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <input>",
		Short: "Extract patient notes and letters from a raw notes file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, closer, err := setupLogging(cmd, "extract.log")
			if err != nil {
				return err
			}
			defer closer.Close()

			path, err := extract.ExtractFile(ctx, args[0], flagOutput)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test data written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output JSON path (default test_data_<timestamp>.json)")
	return cmd
}
