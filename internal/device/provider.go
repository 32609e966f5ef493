package device

import (
	"context"
	"sort"
	"strings"

	"github.com/httprunner/httprunner/v5/pkg/gadb"
	"github.com/pkg/errors"

	"github.com/httprunner/InstallAgent/internal/shell"
)

type deviceLister interface {
	DeviceList() ([]*gadb.Device, error)
}

// Info 是 adb server 报告的单台设备。
type Info struct {
	Serial string
	State  gadb.DeviceState
}

// Provider 通过 adb server 查找安装目标设备。
type Provider struct {
	client deviceLister
}

func NewProvider(client gadb.Client) *Provider {
	return &Provider{client: client}
}

// NewDefaultProvider connects to the local adb server.
func NewDefaultProvider() (*Provider, error) {
	client, err := gadb.NewClient()
	if err != nil {
		return nil, shell.IOError("", "host:devices", errors.Wrap(err, "connect adb server"))
	}
	return NewProvider(client), nil
}

// Devices returns every attached device ordered by serial. A device whose
// state cannot be read is reported as gadb.StateUnknown.
func (p *Provider) Devices(ctx context.Context) ([]Info, error) {
	devs, err := p.list()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, 0, len(devs))
	for _, dev := range devs {
		serial := strings.TrimSpace(dev.Serial())
		if serial == "" {
			continue
		}
		state, err := dev.State()
		if err != nil {
			state = gadb.StateUnknown
		}
		infos = append(infos, Info{Serial: serial, State: state})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Serial < infos[j].Serial })
	return infos, nil
}

// Find 返回可执行命令的设备；设备不存在或不在线时返回 Rejected 错误。
func (p *Provider) Find(serial string) (*gadb.Device, error) {
	target := strings.TrimSpace(serial)
	devs, err := p.list()
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if strings.TrimSpace(d.Serial()) != target {
			continue
		}
		if state, err := d.State(); err == nil && state != gadb.StateOnline {
			return nil, shell.Rejected(target, "", errors.Errorf("device %s is %s", target, state))
		}
		return d, nil
	}
	return nil, shell.Rejected(target, "", errors.Errorf("device %s not found", target))
}

func (p *Provider) list() ([]*gadb.Device, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("adb provider is nil")
	}
	devs, err := p.client.DeviceList()
	if err != nil {
		return nil, shell.IOError("", "host:devices", errors.Wrap(err, "list adb devices"))
	}
	out := devs[:0:0]
	for _, d := range devs {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}
