package config

import (
	"time"

	"github.com/httprunner/InstallAgent/internal/changeset"
	"github.com/httprunner/InstallAgent/internal/device"
	"github.com/httprunner/InstallAgent/internal/probe"
	"github.com/httprunner/InstallAgent/internal/shell"
)

const (
	EnvADBPath            = "ADB_PATH"
	EnvADBTransport       = "ADB_TRANSPORT"
	EnvCommandTimeout     = "INSTALL_COMMAND_TIMEOUT"
	EnvLsTimeout          = "INSTALL_LS_TIMEOUT"
	EnvVersionWaitTimeout = "INSTALL_VERSION_WAIT_TIMEOUT"
	EnvTransferTimeout    = "INSTALL_TRANSFER_TIMEOUT"
	EnvMainIndexName      = "INSTALL_MAIN_INDEX_NAME"
	EnvStateDBPath        = "INSTALL_STATE_DB_PATH"
)

// Install holds installer settings resolved from the environment.
type Install struct {
	ADBPath            string
	Transport          string
	CommandTimeout     time.Duration
	LsTimeout          time.Duration
	VersionWaitTimeout time.Duration
	TransferTimeout    time.Duration
	MainIndexName      string
	// StateDBPath empty means the storage default.
	StateDBPath string
}

// Load reads Install from the environment (and the nearest .env).
func Load() Install {
	return Install{
		ADBPath:            String(EnvADBPath, "adb"),
		Transport:          String(EnvADBTransport, device.TransportExec),
		CommandTimeout:     Duration(EnvCommandTimeout, shell.DefaultCommandTimeout),
		LsTimeout:          Duration(EnvLsTimeout, probe.LsTimeout),
		VersionWaitTimeout: Duration(EnvVersionWaitTimeout, shell.DefaultWaitTimeout),
		TransferTimeout:    Duration(EnvTransferTimeout, device.DefaultTransferTimeout),
		MainIndexName:      String(EnvMainIndexName, changeset.DefaultMainIndexName),
		StateDBPath:        String(EnvStateDBPath, ""),
	}
}
