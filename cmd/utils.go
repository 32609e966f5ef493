package main

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/httprunner/InstallAgent/internal/config"
	"github.com/httprunner/InstallAgent/internal/device"
	"github.com/httprunner/InstallAgent/internal/shell"
)

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolveSerial() (string, error) {
	serial := firstNonEmpty(rootSerial, config.String("ANDROID_SERIAL", ""))
	if serial == "" {
		return "", errors.New("--serial or $ANDROID_SERIAL is required")
	}
	return serial, nil
}

func openDevice(cfg config.Install) (shell.Device, error) {
	serial, err := resolveSerial()
	if err != nil {
		return nil, err
	}
	return device.Open(cfg.Transport, cfg.ADBPath, serial)
}

func newShellClient(cfg config.Install) *shell.Client {
	return shell.NewClient(cfg.CommandTimeout, cfg.VersionWaitTimeout)
}
