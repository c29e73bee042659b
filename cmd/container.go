package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/signalnine/letterbench/internal/config"
	"github.com/signalnine/letterbench/internal/docker"
	"github.com/signalnine/letterbench/internal/inference"
)

const readyTimeout = 2 * time.Minute

// startContainer starts the configured Ollama container, waits for the
// endpoint and optionally pulls the model. The returned func stops it.
func startContainer(ctx context.Context, c config.Container, client *inference.Client) (func(), error) {
	if !c.Enabled {
		return func() {}, nil
	}
	o, err := docker.StartOllama(ctx, &docker.OllamaOpts{
		Image:  c.Image,
		Volume: c.Volume,
		Pull:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("starting inference container: %w", err)
	}
	stop := func() {
		if err := o.Stop(context.Background()); err != nil {
			clog.FromContext(ctx).Warnf("Stopping inference container: %v", err)
		}
	}
	if err := client.WaitReady(ctx, readyTimeout); err != nil {
		stop()
		return nil, err
	}
	if c.PullModel {
		clog.FromContext(ctx).Infof("Pulling model %s", client.Model())
		if err := client.Pull(ctx); err != nil {
			stop()
			return nil, err
		}
	}
	return stop, nil
}
