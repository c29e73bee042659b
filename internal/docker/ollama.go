package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/chainguard-dev/clog"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const (
	modelDir = "/root/.ollama"
	label    = "letterbench"
)

type OllamaOpts struct {
	Image  string
	Volume string
	Env    map[string]string
	// Pull fetches Image before creating the container.
	Pull bool
}

// Ollama is a running inference server container. It shares the host
// network so the configured endpoint reaches it unchanged.
type Ollama struct {
	cli *client.Client
	ID  string
}

func containerSpec(opts *OllamaOpts) (*container.Config, *container.HostConfig) {
	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	cfg := &container.Config{
		Image:  opts.Image,
		Env:    env,
		Labels: map[string]string{label: "true"},
	}
	hostCfg := &container.HostConfig{
		NetworkMode: container.NetworkMode("host"),
	}
	if opts.Volume != "" {
		hostCfg.Mounts = []mount.Mount{{
			Type:   mount.TypeVolume,
			Source: opts.Volume,
			Target: modelDir,
		}}
	}
	return cfg, hostCfg
}

// StartOllama creates and starts the server container. The caller must Stop it.
func StartOllama(ctx context.Context, opts *OllamaOpts) (*Ollama, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}

	if opts.Pull {
		clog.FromContext(ctx).Infof("Pulling image %s", opts.Image)
		rc, err := cli.ImagePull(ctx, opts.Image, client.ImagePullOptions{})
		if err != nil {
			cli.Close()
			return nil, fmt.Errorf("pulling image %s: %w", opts.Image, err)
		}
		_, _ = io.Copy(io.Discard, rc)
		rc.Close()
	}

	cfg, hostCfg := containerSpec(opts)
	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     cfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("creating container: %w", err)
	}
	o := &Ollama{cli: cli, ID: createResp.ID}

	if _, err := cli.ContainerStart(ctx, o.ID, client.ContainerStartOptions{}); err != nil {
		o.Stop(context.Background())
		return nil, fmt.Errorf("starting container: %w", err)
	}
	clog.FromContext(ctx).Infof("Started %s container %.12s", opts.Image, o.ID)
	return o, nil
}

// Logs returns the last tail lines of the container's output.
func (o *Ollama) Logs(ctx context.Context, tail string) string {
	logReader, _ := o.cli.ContainerLogs(ctx, o.ID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true, Tail: tail})
	if logReader == nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}

// Stop force-removes the container and closes the docker client.
func (o *Ollama) Stop(ctx context.Context) error {
	defer o.cli.Close()
	if logs := o.Logs(ctx, "50"); logs != "" {
		clog.FromContext(ctx).Debugf("Container logs:\n%s", logs)
	}
	if _, err := o.cli.ContainerRemove(ctx, o.ID, client.ContainerRemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("removing container %.12s: %w", o.ID, err)
	}
	return nil
}
