// Package version compares the build's declared versionName with the one
// installed on the device.
package version

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/httprunner/InstallAgent/internal/shell"
)

// dumpsys indents package fields, so leading whitespace is allowed.
var versionNamePattern = regexp.MustCompile(`^\s*versionName=([^']*)$`)

// NewVersionNameReceiver returns a receiver that stops at the first versionName line.
func NewVersionNameReceiver() *shell.MatchReceiver {
	return shell.NewMatchReceiver(versionNamePattern)
}

// DumpCommand returns the package-dump command for packageName.
func DumpCommand(packageName string) string {
	return "dumpsys package " + shell.Quote(packageName)
}

// Mismatch describes a declared/installed versionName disagreement.
type Mismatch struct {
	Project   string
	Package   string
	Declared  string
	Installed string
	Serial    string
}

func (m *Mismatch) String() string {
	return fmt.Sprintf("versionName declared at project %s value=(%s) has a different value=(%s) declared at device %s",
		m.Project, m.Declared, m.Installed, m.Serial)
}

// Reconciler fetches the installed versionName through a streaming shell
// command. It never fails: any problem skips the comparison.
type Reconciler struct {
	client *shell.Client
	wait   time.Duration
}

// NewReconciler builds a Reconciler; a non-positive wait uses the client's wait timeout.
func NewReconciler(client *shell.Client, wait time.Duration) *Reconciler {
	return &Reconciler{client: client, wait: wait}
}

// Installed returns the versionName installed on dev, or false when the
// package dump failed, timed out or carried no versionName line.
func (r *Reconciler) Installed(ctx context.Context, dev shell.Device, packageName string) (string, bool) {
	receiver := NewVersionNameReceiver()
	command := DumpCommand(packageName)
	res, err := r.client.ExecuteStreaming(ctx, dev, command, receiver, r.wait)
	if err != nil {
		log.Warn().Err(err).Str("serial", dev.Serial()).Str("package", packageName).
			Msg("read installed versionName failed, skip version check")
		return "", false
	}
	value, ok := receiver.Result()
	if !ok {
		log.Debug().Str("serial", dev.Serial()).Str("package", packageName).Str("wait", res.String()).
			Msg("installed versionName not found")
	}
	return value, ok
}

// Reconcile returns a Mismatch when the device reports a versionName that
// differs from declared, and nil otherwise. An empty declared version skips
// the check without touching the device.
func (r *Reconciler) Reconcile(ctx context.Context, dev shell.Device, project, packageName, declared string) *Mismatch {
	if r == nil || dev == nil || strings.TrimSpace(declared) == "" {
		return nil
	}
	installed, ok := r.Installed(ctx, dev, packageName)
	if !ok || installed == declared {
		return nil
	}
	return &Mismatch{
		Project:   project,
		Package:   packageName,
		Declared:  declared,
		Installed: installed,
		Serial:    dev.Serial(),
	}
}
