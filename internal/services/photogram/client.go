package photogram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"lathe/internal/services"
)

// stderrCaptureLimit bounds how much tool error output is retained. Failure
// diagnostics are excerpted further downstream; there is no reason to hold a
// runaway stderr stream in memory.
const stderrCaptureLimit = 4096

// Reconstructor defines the behaviour required by the execution worker.
type Reconstructor interface {
	// Available probes whether the reconstruction tool can be resolved on
	// the execution host.
	Available(ctx context.Context) error
	// Reconstruct runs the tool over the input directory, producing the
	// artifact at outputPath. The artifact's existence is verified before a
	// nil error is returned.
	Reconstruct(ctx context.Context, inputDir, outputPath string, area bool) error
}

// ExecError carries the exit diagnostics of a failed reconstruction run.
type ExecError struct {
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Stderr)
	}
	return e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) (stderr string, err error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps the external photogrammetry CLI.
type Client struct {
	binary       string
	areaFlag     string
	probeTimeout time.Duration
	maxRuntime   time.Duration
	exec         Executor
}

// New constructs a photogrammetry client. maxRuntime of zero leaves the
// subprocess unbounded.
func New(binary, areaFlag string, probeTimeout, maxRuntime time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("photogrammetry binary required")
	}
	if probeTimeout <= 0 {
		probeTimeout = 2 * time.Second
	}
	client := &Client{
		binary:       binary,
		areaFlag:     strings.TrimSpace(areaFlag),
		probeTimeout: probeTimeout,
		maxRuntime:   maxRuntime,
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured executable name.
func (c *Client) Binary() string { return c.binary }

// Available resolves the tool on PATH within the probe bound.
func (c *Client) Available(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := exec.LookPath(c.binary)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return services.Wrap(services.ErrToolUnavailable, "probe", fmt.Sprintf("binary %q not found", c.binary), err)
		}
		return nil
	case <-probeCtx.Done():
		return services.Wrap(services.ErrToolUnavailable, "probe", fmt.Sprintf("binary %q lookup timed out", c.binary), probeCtx.Err())
	}
}

// Reconstruct executes the tool with the input directory and artifact path.
// Area mode is forwarded only when an area flag is configured; the mode hint
// is best-effort and never fails a run on its own.
func (c *Client) Reconstruct(ctx context.Context, inputDir, outputPath string, area bool) error {
	if inputDir == "" {
		return errors.New("input directory required")
	}
	if outputPath == "" {
		return errors.New("output path required")
	}

	runCtx := ctx
	if c.maxRuntime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.maxRuntime)
		defer cancel()
	}

	args := []string{inputDir, outputPath}
	if area && c.areaFlag != "" {
		args = append(args, c.areaFlag)
	}

	stderr, err := c.exec.Run(runCtx, c.binary, args)
	if err != nil {
		return &ExecError{Stderr: stderr, Err: fmt.Errorf("%w: %v", services.ErrExternalTool, err)}
	}

	if _, statErr := os.Stat(outputPath); statErr != nil {
		return &ExecError{
			Stderr: stderr,
			Err:    fmt.Errorf("%w: tool produced no output artifact at %s", services.ErrExternalTool, outputPath),
		}
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = io.Discard
	capture := &cappedBuffer{limit: stderrCaptureLimit}
	cmd.Stderr = capture

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return capture.String(), err
}

// cappedBuffer retains only the first limit bytes written to it.
type cappedBuffer struct {
	limit int
	data  []byte
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if remaining := b.limit - len(b.data); remaining > 0 {
		if len(p) > remaining {
			b.data = append(b.data, p[:remaining]...)
		} else {
			b.data = append(b.data, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return strings.TrimSpace(string(b.data))
}
