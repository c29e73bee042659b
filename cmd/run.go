package cmd

import (
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/inference"
	"github.com/signalnine/letterbench/internal/pipeline"
)

var (
	flagRunConfig string
	flagNoConfirm bool
	flagSkipData  bool
	flagSkipGen   bool
	flagContainer bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate letters for every test case",
		Args:  cobra.NoArgs,
		RunE:  runGeneration,
	}
	cmd.Flags().StringVar(&flagRunConfig, "config", "test/config.json", "config file path")
	cmd.Flags().BoolVar(&flagNoConfirm, "no-confirm", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&flagSkipData, "skip-data", false, "skip loading test data and prompt")
	cmd.Flags().BoolVar(&flagSkipGen, "skip-gen", false, "skip letter generation")
	cmd.Flags().BoolVar(&flagContainer, "container", false, "run the inference server in a docker container")
	return cmd
}

func runGeneration(cmd *cobra.Command, args []string) error {
	ctx, closer, err := setupLogging(cmd, "pipeline.log")
	if err != nil {
		return err
	}
	defer closer.Close()
	log := clog.FromContext(ctx)

	cfg, err := config.LoadRun(ctx, flagRunConfig)
	if err != nil {
		log.Errorf("Pipeline error: %v", err)
		return err
	}
	if flagContainer {
		cfg.Container.Enabled = true
	}

	if !flagNoConfirm {
		ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Proceed with this configuration?", cfg.Rows())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Run cancelled")
			return nil
		}
	}

	client := inference.NewClient(cfg.Endpoint, cfg.Model, cfg.TimeoutDuration())
	stop, err := startContainer(ctx, cfg.Container, client)
	if err != nil {
		log.Errorf("Pipeline error: %v", err)
		return err
	}
	defer stop()

	p := pipeline.New(cfg, client, pipeline.Options{
		SkipData:       flagSkipData,
		SkipGeneration: flagSkipGen,
	})
	if err := p.Setup(ctx); err != nil {
		log.Errorf("Pipeline error: %v", err)
		return err
	}
	if err := p.Execute(ctx); err != nil {
		log.Errorf("Pipeline error: %v", err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run directory: %s\n", p.Dir())
	return nil
}
