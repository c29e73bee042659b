package cmd

import (
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/evaluate"
	"github.com/signalnine/letterbench/internal/inference"
)

var flagEvalConfig string

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score the letters of a previous run",
		Args:  cobra.NoArgs,
		RunE:  runEvaluation,
	}
	cmd.Flags().StringVar(&flagEvalConfig, "config", "test/eval-config.json", "config file path")
	cmd.Flags().BoolVar(&flagNoConfirm, "no-confirm", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&flagContainer, "container", false, "run the inference server in a docker container")
	return cmd
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	ctx, closer, err := setupLogging(cmd, "eval.log")
	if err != nil {
		return err
	}
	defer closer.Close()
	log := clog.FromContext(ctx)

	cfg, err := config.LoadEval(ctx, flagEvalConfig)
	if err != nil {
		log.Errorf("Evaluation error: %v", err)
		return err
	}
	if flagContainer {
		cfg.Container.Enabled = true
	}

	if !flagNoConfirm {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Proceed with this evaluation configuration?", cfg.Rows())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Evaluation cancelled")
			return nil
		}
	}

	client := inference.NewClient(cfg.Endpoint, cfg.Model, cfg.TimeoutDuration())
	stop, err := startContainer(ctx, cfg.Container, client)
	if err != nil {
		log.Errorf("Evaluation error: %v", err)
		return err
	}
	defer stop()

	e := evaluate.New(cfg, client, cmd.OutOrStdout())
	if err := e.Setup(ctx); err != nil {
		log.Errorf("Evaluation error: %v", err)
		return err
	}
	if err := e.Execute(ctx); err != nil {
		log.Errorf("Evaluation error: %v", err)
		return err
	}
	return nil
}
