// Package peer runs the Hyperledger Fabric `peer` command-line client.
//
// The ledger network, its ordering service and the chaincode itself are
// opaque to this service: all of that lives behind the CLI. This package
// only knows how to:
//   - render a chaincode invocation into an argument vector
//   - spawn exactly one child process for it
//   - capture stdout, stderr and the exit status verbatim
package peer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultWaitDelay bounds how long Run waits for the output pipes to close
// after the process was killed (e.g. a grandchild still holding stderr).
const DefaultWaitDelay = 5 * time.Second

// Options configure a Client.
type Options struct {
	// Timeout kills the process when exceeded. Zero means no timeout;
	// the process then lives as long as the caller's context.
	Timeout time.Duration
}

// Client spawns peer processes. It is safe for concurrent use.
//
// The client counts running processes so shutdown can wait until every
// killed child has been reaped.
type Client struct {
	timeout time.Duration
	running sync.WaitGroup
}

// NewClient creates a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout < 0 {
		return nil, fmt.Errorf("peer invoke timeout must be non-negative, got %s", opts.Timeout)
	}

	return &Client{timeout: opts.Timeout}, nil
}

// Result is everything observed about one finished child process.
type Result struct {
	// Stdout and Stderr hold the captured streams, unmodified.
	Stdout string
	Stderr string

	// ExitCode is the process exit status, or -1 when the process never
	// started or was terminated by a signal.
	ExitCode int

	// Duration is the wall time from spawn to exit.
	Duration time.Duration

	// Err is nil when the process exited with status 0.
	Err error
}

// Failed reports whether the process ended with an error
// (non-zero exit or spawn failure).
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Invoke runs the invocation and waits for it to finish.
//
// It never returns an error separately: a failure to spawn is folded into
// the Result the same way a shell would report it, as text on the error
// stream plus a non-nil Err.
func (c *Client) Invoke(ctx context.Context, inv ChaincodeInvoke) *Result {
	return c.run(ctx, inv.Binary, inv.Args()...)
}

// Version runs `peer version`. Used by the health check.
func (c *Client) Version(ctx context.Context, binary string) *Result {
	return c.run(ctx, binary, "version")
}

// Wait blocks until no process started by c is running, or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("peer processes still running: %w", ctx.Err())
	}
}

func (c *Client) run(ctx context.Context, binary string, args ...string) *Result {
	c.running.Add(1)
	defer c.running.Done()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := zerolog.Ctx(ctx)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.WaitDelay = DefaultWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	result := &Result{
		ExitCode: 0,
		Duration: duration,
		Err:      err,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Not started at all (missing binary, permissions, dead context).
			result.ExitCode = -1
			if stderr.Len() == 0 {
				fmt.Fprintf(&stderr, "%s: %v\n", binary, err)
			}
		}
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	logger.Debug().
		Str("binary", binary).
		Int("exit_code", result.ExitCode).
		Dur("duration", duration).
		Int("stdout_bytes", stdout.Len()).
		Int("stderr_bytes", stderr.Len()).
		Msg("peer process finished")

	return result
}
