package device

import (
	"context"
	"strings"

	gocmd "github.com/go-cmd/cmd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/httprunner/InstallAgent/internal/shell"
)

const defaultADBPath = "adb"

// ExecDevice 通过本地 adb 可执行文件流式执行 shell 命令。
//
// stdout and stderr are merged into one line stream, like an interactive adb
// shell. The adb process is stopped as soon as the receiver is done.
type ExecDevice struct {
	adbPath   string
	serial    string
	batchSize int
}

func NewExecDevice(adbPath, serial string) *ExecDevice {
	if strings.TrimSpace(adbPath) == "" {
		adbPath = defaultADBPath
	}
	return &ExecDevice{adbPath: adbPath, serial: strings.TrimSpace(serial), batchSize: shell.DefaultBatchSize}
}

func (d *ExecDevice) Serial() string { return d.serial }

func (d *ExecDevice) ExecuteShell(ctx context.Context, command string, r shell.Receiver) error {
	if d == nil {
		return errors.New("exec device is nil")
	}
	c := gocmd.NewCmdOptions(gocmd.Options{
		Buffered:  false,
		Streaming: true,
	}, d.adbPath, "-s", d.serial, "shell", command)
	statusChan := c.Start()

	var stderr []string
	batch := make([]string, 0, d.batchSize)
	// flush hands the pending batch over and reports whether the receiver is done.
	flush := func() bool {
		if len(batch) == 0 {
			return r.Done()
		}
		r.AddLines(batch)
		batch = make([]string, 0, d.batchSize)
		return r.Done()
	}

	stdout, errout := c.Stdout, c.Stderr
	add := func(line string, fromStderr bool) {
		line = strings.TrimRight(line, "\r")
		if fromStderr {
			stderr = append(stderr, line)
		}
		batch = append(batch, line)
	}
	drain := func() {
		for stdout != nil || errout != nil {
			select {
			case line, ok := <-stdout:
				if !ok {
					stdout = nil
					continue
				}
				add(line, false)
			case line, ok := <-errout:
				if !ok {
					errout = nil
					continue
				}
				add(line, true)
			default:
				return
			}
		}
	}

	finished := c.Done()
	for finished != nil {
		select {
		case line, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			add(line, false)
		case line, ok := <-errout:
			if !ok {
				errout = nil
				continue
			}
			add(line, true)
		case <-finished:
			drain()
			finished = nil
			continue
		case <-ctx.Done():
			d.release(c, command)
			return ctx.Err()
		}
		// deliver when the batch is full or nothing else is queued
		if len(batch) >= d.batchSize || (len(c.Stdout) == 0 && len(c.Stderr) == 0) {
			if flush() {
				d.release(c, command)
				return nil
			}
		}
	}
	for len(batch) > 0 {
		n := min(len(batch), d.batchSize)
		head := batch[:n]
		batch = batch[n:]
		r.AddLines(head)
		if r.Done() {
			return nil
		}
	}

	var status gocmd.Status
	select {
	case status = <-statusChan:
	case <-ctx.Done():
		d.release(c, command)
		return ctx.Err()
	}
	if status.Error != nil {
		return shell.IOError(d.serial, command, errors.Wrap(status.Error, "run adb"))
	}
	// adb itself fails with "error: ..." on stderr; remote exit codes pass through untouched
	if status.Exit != 0 && len(stderr) > 0 && strings.HasPrefix(stderr[0], "error:") {
		detail := strings.Join(stderr, "\n")
		return classifyFailure(d.serial, command, detail, errors.New(detail))
	}
	return nil
}

// release stops the adb process and keeps reading its output until go-cmd
// closes the channels, so the child is reaped and no writer stays blocked.
func (d *ExecDevice) release(c *gocmd.Cmd, command string) {
	d.stop(c, command)
	go func() {
		for range c.Stdout {
		}
	}()
	go func() {
		for range c.Stderr {
		}
	}()
}

func (d *ExecDevice) stop(c *gocmd.Cmd, command string) {
	if err := c.Stop(); err != nil {
		log.Debug().Err(err).Str("serial", d.serial).Str("command", command).Msg("stop adb shell failed")
	}
}
