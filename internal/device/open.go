package device

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/httprunner/InstallAgent/internal/shell"
)

const (
	TransportExec = "exec"
	TransportGadb = "gadb"
)

// Open 根据传输方式返回设备句柄；调用方负责句柄生命周期。
func Open(transport, adbPath, serial string) (shell.Device, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, errors.New("device serial is empty")
	}
	switch strings.ToLower(strings.TrimSpace(transport)) {
	case "", TransportExec:
		return NewExecDevice(adbPath, serial), nil
	case TransportGadb:
		provider, err := NewDefaultProvider()
		if err != nil {
			return nil, err
		}
		dev, err := provider.Find(serial)
		if err != nil {
			return nil, err
		}
		return NewGadbDevice(dev), nil
	default:
		return nil, errors.Errorf("unknown adb transport %q", transport)
	}
}
