package launcher

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	docker "github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/dustin/go-humanize"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/crewhub/workspace/internal/environment"
	"github.com/crewhub/workspace/internal/gerrors"
	"github.com/crewhub/workspace/internal/log"
)

type ContainerExitedError struct {
	ExitCode int
}

func (e ContainerExitedError) Error() string {
	return fmt.Sprintf("container exited with code %d", e.ExitCode)
}

// Engine builds images and runs containers for launch specs through the
// Docker Engine API.
type Engine struct {
	client docker.APIClient
}

func NewEngine() (*Engine, error) {
	client, err := docker.NewClientWithOpts(docker.FromEnv, docker.WithAPIVersionNegotiation())
	if err != nil {
		return nil, gerrors.Wrap(err)
	}
	return &Engine{client: client}, nil
}

func NewEngineWithClient(client docker.APIClient) *Engine {
	return &Engine{client: client}
}

// Build renders the Dockerfile, packs the context and builds the image.
// A build failure is fatal to the caller; there is no retry.
func (e *Engine) Build(ctx context.Context, spec *Spec, logs io.Writer) (digest.Digest, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}
	if err := spec.CheckContext(); err != nil {
		return "", err
	}

	buildContext, err := spec.TarContext()
	if err != nil {
		return "", err
	}

	log.Info(ctx, "Building image", "image", spec.Image, "base", spec.Build.BaseImage)
	resp, err := e.client.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:       []string{spec.Image},
		Dockerfile: DockerfileName,
		Remove:     true,
	})
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(logs, resp.Body); err != nil {
		return "", gerrors.Wrap(err)
	}

	info, _, err := e.client.ImageInspectWithRaw(ctx, spec.Image)
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	imageID, err := digest.Parse(info.ID)
	if err != nil {
		return "", gerrors.Wrap(err)
	}
	log.Info(ctx, "Image built", "image", spec.Image, "id", imageID,
		"size", humanize.Bytes(uint64(info.Size)))
	return imageID, nil
}

// Run creates and starts the container, streams its output to logs, and
// blocks until it exits. There is no restart policy: a crash terminates
// the run and surfaces the exit code.
func (e *Engine) Run(ctx context.Context, spec *Spec, logs io.Writer) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	env := environment.New()
	env.AddMap(spec.Run.Env)
	config := &container.Config{
		Image:        spec.Image,
		Cmd:          spec.Run.Command(),
		Env:          env.ToSlice(),
		WorkingDir:   spec.Build.WorkingDir,
		ExposedPorts: exposePorts(spec.Run.ExposedPort),
		Tty:          true,
	}
	hostConfig := &container.HostConfig{
		PortBindings: bindPorts(spec.Run.ExposedPort),
	}

	createResp, err := e.client.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return gerrors.Wrap(err)
	}
	defer func() {
		_ = e.client.ContainerRemove(context.Background(), createResp.ID, types.ContainerRemoveOptions{Force: true})
	}()

	if err := e.client.ContainerStart(ctx, createResp.ID, types.ContainerStartOptions{}); err != nil {
		return gerrors.Wrap(err)
	}
	log.Info(ctx, "Container started", "id", createResp.ID, "port", spec.Run.ExposedPort)

	logReader, err := e.client.ContainerLogs(ctx, createResp.ID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return gerrors.Wrap(err)
	}
	defer func() { _ = logReader.Close() }()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Tty is set, so the stream is raw, not multiplexed
		_, err := io.Copy(logs, logReader)
		return err
	})
	g.Go(func() error {
		waitCh, errCh := e.client.ContainerWait(gCtx, createResp.ID, container.WaitConditionNotRunning)
		select {
		case body := <-waitCh:
			if body.StatusCode != 0 {
				return gerrors.Wrap(ContainerExitedError{ExitCode: int(body.StatusCode)})
			}
			return nil
		case err := <-errCh:
			return gerrors.Wrap(err)
		}
	})
	return g.Wait()
}

func exposePorts(ports ...int) nat.PortSet {
	portSet := make(nat.PortSet)
	for _, port := range ports {
		portSet[nat.Port(fmt.Sprintf("%d/tcp", port))] = struct{}{}
	}
	return portSet
}

// bindPorts does identity mapping on all interfaces
func bindPorts(ports ...int) nat.PortMap {
	portMap := make(nat.PortMap)
	for _, port := range ports {
		portMap[nat.Port(fmt.Sprintf("%d/tcp", port))] = []nat.PortBinding{
			{
				HostIP:   "0.0.0.0",
				HostPort: strconv.Itoa(port),
			},
		}
	}
	return portMap
}
