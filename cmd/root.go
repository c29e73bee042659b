package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/signalnine/letterbench/internal/logging"
)

var (
	flagVerbose bool
	flagLogFile string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "letterbench",
		Short:        "Evaluation harness for clinical letter generation",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "log file path (defaults to a per-command file)")
	root.AddCommand(newRunCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newExtractCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newRescoreCmd())
	root.AddCommand(newListCmd())
	return root
}

// setupLogging installs the command logger. defaultFile is used unless
// --log-file was given.
func setupLogging(cmd *cobra.Command, defaultFile string) (context.Context, io.Closer, error) {
	file := defaultFile
	if flagLogFile != "" {
		file = flagLogFile
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.Setup(ctx, file, flagVerbose)
}
