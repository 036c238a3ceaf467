package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/moby/moby/api/pkg/stdcopy"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"

	"github.com/signalnine/crossrun/internal/command"
)

type Options struct {
	Image string
	// Mounts are host directories bind-mounted at the same path inside the
	// container so absolute sample and artifact paths stay valid.
	Mounts  []string
	User    string
	Timeout time.Duration
}

// Executor runs each command in a fresh container of a toolchain image.
type Executor struct {
	cli  *client.Client
	opts Options
}

func NewExecutor(opts Options) (*Executor, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("docker image is required")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if opts.User == "" {
		opts.User = fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	}
	if opts.Timeout <= 0 {
		opts.Timeout = command.DefaultTimeout
	}
	return &Executor{cli: cli, opts: opts}, nil
}

func (e *Executor) Close() error {
	return e.cli.Close()
}

func (e *Executor) Run(ctx context.Context, c command.Command) command.Result {
	start := time.Now()
	res, err := e.run(ctx, c)
	if err != nil {
		res = command.Result{ExitCode: -1, Err: err}
	}
	res.Duration = time.Since(start)
	return res
}

func (e *Executor) run(ctx context.Context, c command.Command) (command.Result, error) {
	mounts := make([]mount.Mount, 0, len(e.opts.Mounts))
	for _, dir := range e.opts.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: dir,
			Target: dir,
		})
	}

	workDir := c.Dir
	if workDir == "" && len(e.opts.Mounts) > 0 {
		workDir = e.opts.Mounts[0]
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: mounts,
		Init:   &initTrue,
	}
	containerCfg := &container.Config{
		Image:      e.opts.Image,
		Cmd:        c.Argv(),
		WorkingDir: workDir,
		User:       e.opts.User,
		Labels:     map[string]string{"crossrun": "true"},
	}

	// The timeout covers create and start as well as the wait.
	timeoutCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	createResp, err := e.cli.ContainerCreate(timeoutCtx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return command.TimeoutResult(command.Result{}, e.opts.Timeout), nil
		}
		return command.Result{}, fmt.Errorf("creating container for %s: %w", c.Name, err)
	}
	containerID := createResp.ID
	defer func() {
		e.cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	if _, err := e.cli.ContainerStart(timeoutCtx, containerID, client.ContainerStartOptions{}); err != nil {
		if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return command.TimeoutResult(command.Result{}, e.opts.Timeout), nil
		}
		return command.Result{}, fmt.Errorf("starting container for %s: %w", c.Name, err)
	}

	waitResult := e.cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	errCh := waitResult.Error
	for {
		select {
		case err := <-errCh:
			if err == nil {
				// nil error means no error on this channel; wait for result
				errCh = nil
				continue
			}
			e.cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
			if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
				res, _ := e.logs(containerID)
				return command.TimeoutResult(res, e.opts.Timeout), nil
			}
			return command.Result{}, fmt.Errorf("waiting for %s: %w", c.Name, err)
		case status := <-waitResult.Result:
			res, err := e.logs(containerID)
			if err != nil {
				return command.Result{}, err
			}
			res.ExitCode = int(status.StatusCode)
			return res, nil
		}
	}
}

// logs splits the container's multiplexed log stream into stdout and
// stderr.
func (e *Executor) logs(containerID string) (command.Result, error) {
	logReader, err := e.cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return command.Result{}, fmt.Errorf("reading container logs: %w", err)
	}
	defer logReader.Close()
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logReader); err != nil {
		return command.Result{}, fmt.Errorf("demultiplexing container logs: %w", err)
	}
	return command.Result{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
