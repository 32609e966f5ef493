// Package probe checks for files on a device.
package probe

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/httprunner/InstallAgent/internal/shell"
)

// LsTimeout bounds a single presence check.
const LsTimeout = 5 * time.Second

// NoSuchFile is the device's standard error suffix for missing paths.
const NoSuchFile = "No such file or directory"

// Prober answers whether a path exists on a device. It never returns an
// error: every transport failure means absent.
type Prober struct {
	client  *shell.Client
	timeout time.Duration
}

// New returns a Prober; a non-positive timeout uses LsTimeout.
func New(client *shell.Client, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = LsTimeout
	}
	return &Prober{client: client, timeout: timeout}
}

// Exists runs `ls <path>` and reports presence unless the output ends with
// NoSuchFile or the command failed.
func (p *Prober) Exists(ctx context.Context, dev shell.Device, path string) bool {
	if dev == nil || strings.TrimSpace(path) == "" {
		return false
	}
	output, err := p.client.ExecuteCollecting(ctx, dev, "ls "+shell.Quote(path), p.timeout)
	if err != nil {
		log.Debug().Err(err).Str("serial", dev.Serial()).Str("path", path).Msg("presence probe failed, treating as absent")
		return false
	}
	return !strings.HasSuffix(output, NoSuchFile)
}
