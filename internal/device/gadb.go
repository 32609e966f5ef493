package device

import (
	"context"
	"strings"

	"github.com/httprunner/httprunner/v5/pkg/gadb"
	"github.com/pkg/errors"

	"github.com/httprunner/InstallAgent/internal/shell"
)

// GadbDevice 通过 adb server socket 执行 shell 命令。
//
// gadb returns the whole output at once, so batches are cut from the buffered
// result and Done is still polled between them.
type GadbDevice struct {
	dev       *gadb.Device
	batchSize int
}

func NewGadbDevice(dev *gadb.Device) *GadbDevice {
	return &GadbDevice{dev: dev, batchSize: shell.DefaultBatchSize}
}

func (d *GadbDevice) Serial() string {
	if d == nil || d.dev == nil {
		return ""
	}
	return d.dev.Serial()
}

type shellResult struct {
	output string
	err    error
}

func (d *GadbDevice) ExecuteShell(ctx context.Context, command string, r shell.Receiver) error {
	if d == nil || d.dev == nil {
		return errors.New("gadb device is nil")
	}
	done := make(chan shellResult, 1)
	go func() {
		output, err := d.dev.RunShellCommand(command)
		done <- shellResult{output: output, err: err}
	}()

	select {
	case <-ctx.Done():
		// the socket read has no deadline; the goroutine finishes when adbd closes the stream
		return ctx.Err()
	case res := <-done:
		if res.err != nil {
			return classifyFailure(d.Serial(), command, strings.TrimSpace(res.output), res.err)
		}
		return shell.Feed(ctx, shell.SplitLines(res.output), d.batchSize, r)
	}
}
