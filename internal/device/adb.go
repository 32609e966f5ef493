package device

import (
	"context"
	"strings"
	"time"

	gocmd "github.com/go-cmd/cmd"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/httprunner/InstallAgent/internal/shell"
)

const DefaultTransferTimeout = 5 * time.Minute

// ADB runs host-side adb transfers (push, install-multiple) for one invocation.
type ADB struct {
	path    string
	timeout time.Duration
}

func NewADB(path string, timeout time.Duration) *ADB {
	if strings.TrimSpace(path) == "" {
		path = defaultADBPath
	}
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}
	return &ADB{path: path, timeout: timeout}
}

// Push copies local to remote on the device.
func (a *ADB) Push(ctx context.Context, serial, local, remote string) error {
	_, err := a.run(ctx, serial, "push", local, remote)
	return err
}

// InstallMultiple installs apks as one package session and returns adb's output.
func (a *ADB) InstallMultiple(ctx context.Context, serial string, apks []string, args ...string) (string, error) {
	if len(apks) == 0 {
		return "", errors.New("adb install-multiple: no apks")
	}
	argv := append([]string{"install-multiple"}, args...)
	argv = append(argv, apks...)
	return a.run(ctx, serial, argv...)
}

func (a *ADB) run(ctx context.Context, serial string, args ...string) (string, error) {
	argv := append([]string{"-s", serial}, args...)
	command := strings.Join(args, " ")
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	c := gocmd.NewCmd(a.path, argv...)
	statusChan := c.Start()

	var status gocmd.Status
	select {
	case status = <-statusChan:
	case <-ctx.Done():
		_ = c.Stop()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", shell.Unresponsive(serial, command, ctx.Err())
		}
		return "", shell.Interrupted(serial, command, ctx.Err())
	}

	output := strings.TrimSpace(strings.Join(append(status.Stdout, status.Stderr...), "\n"))
	if status.Error != nil {
		return output, shell.IOError(serial, command, errors.Wrap(status.Error, "run adb"))
	}
	if status.Exit != 0 {
		return output, classifyFailure(serial, command, output, errors.Errorf("adb exited %d: %s", status.Exit, output))
	}
	log.Debug().
		Str("serial", serial).
		Str("command", command).
		Dur("elapsed", time.Since(start)).
		Msg("adb transfer finished")
	return output, nil
}
