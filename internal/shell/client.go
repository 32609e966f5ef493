package shell

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultWaitTimeout    = 10 * time.Second
	DefaultBatchSize      = 64
)

// Device is a borrowed handle to one connected device. The Client never
// closes it and never runs two commands on it at once.
type Device interface {
	Serial() string
	// ExecuteShell runs command on the device and feeds its output to r,
	// following the polling contract documented on Receiver. It returns when
	// the command exits, r reports Done, or ctx ends (returning ctx.Err()).
	ExecuteShell(ctx context.Context, command string, r Receiver) error
}

// WaitResult tells how a streaming wait ended.
type WaitResult int

const (
	// WaitSignaled means the receiver finished or the command returned.
	WaitSignaled WaitResult = iota
	// WaitTimedOut means the wait bound elapsed first.
	WaitTimedOut
)

func (w WaitResult) String() string {
	if w == WaitTimedOut {
		return "timed_out"
	}
	return "signaled"
}

// Client executes shell commands against a Device with bounded waits.
type Client struct {
	commandTimeout time.Duration
	waitTimeout    time.Duration
}

// NewClient builds a Client. Non-positive durations fall back to the defaults.
func NewClient(commandTimeout, waitTimeout time.Duration) *Client {
	if commandTimeout <= 0 {
		commandTimeout = DefaultCommandTimeout
	}
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Client{commandTimeout: commandTimeout, waitTimeout: waitTimeout}
}

func (c *Client) timeouts() (time.Duration, time.Duration) {
	if c == nil {
		return DefaultCommandTimeout, DefaultWaitTimeout
	}
	return c.commandTimeout, c.waitTimeout
}

// ExecuteCollecting runs command, buffers its whole output and returns it
// trimmed of surrounding whitespace. timeout bounds the command; a
// non-positive value uses the client's command timeout.
func (c *Client) ExecuteCollecting(ctx context.Context, dev Device, command string, timeout time.Duration) (string, error) {
	if dev == nil {
		return "", errors.New("shell: device is nil")
	}
	if timeout <= 0 {
		timeout, _ = c.timeouts()
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	receiver := &CollectingReceiver{}
	if err := dev.ExecuteShell(cmdCtx, command, receiver); err != nil {
		err = classify(err, dev.Serial(), command, ctx, cmdCtx)
		log.Debug().Err(err).
			Str("serial", dev.Serial()).
			Str("command", command).
			Dur("timeout", timeout).
			Msg("shell command failed")
		return "", err
	}
	output := strings.TrimSpace(receiver.Output())
	log.Debug().
		Str("serial", dev.Serial()).
		Str("command", command).
		Int("output_len", len(output)).
		Dur("elapsed", time.Since(start)).
		Msg("shell command collected")
	return output, nil
}

// ExecuteStreaming runs command feeding r, and waits until r reports Done,
// the command returns, or wait elapses (non-positive uses the client's wait
// timeout). A timed-out wait is not an error: the in-flight command is
// cancelled and WaitTimedOut is returned. Transport failures observed before
// r finishes are returned as errors.
func (c *Client) ExecuteStreaming(ctx context.Context, dev Device, command string, r Receiver, wait time.Duration) (WaitResult, error) {
	if dev == nil {
		return WaitSignaled, errors.New("shell: device is nil")
	}
	if r == nil {
		return WaitSignaled, errors.New("shell: receiver is nil")
	}
	commandTimeout, waitTimeout := c.timeouts()
	if wait <= 0 {
		wait = waitTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	latch := NewLatch()
	errCh := make(chan error, 1)
	go func() {
		errCh <- dev.ExecuteShell(cmdCtx, command, &signalingReceiver{Receiver: r, latch: latch})
		latch.Signal()
	}()

	signaled, err := latch.Wait(ctx, wait)
	if err != nil {
		return WaitSignaled, Interrupted(dev.Serial(), command, err)
	}
	if !signaled {
		log.Debug().
			Str("serial", dev.Serial()).
			Str("command", command).
			Dur("wait", wait).
			Msg("shell stream wait timed out")
		return WaitTimedOut, nil
	}
	if r.Done() {
		return WaitSignaled, nil
	}
	if err := <-errCh; err != nil {
		return WaitSignaled, classify(err, dev.Serial(), command, ctx, cmdCtx)
	}
	return WaitSignaled, nil
}
