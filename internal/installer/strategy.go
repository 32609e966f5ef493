package installer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/httprunner/InstallAgent/internal/changeset"
	"github.com/httprunner/InstallAgent/internal/shell"
)

// Target carries everything a Strategy needs for one install.
type Target struct {
	// Mode is ModeIncremental when Artifacts is a subset of the split set.
	Mode      Mode
	Project   string
	Variant   string
	Package   string
	Device    shell.Device
	Artifacts changeset.Batch
}

// Strategy performs the format-specific install of an ordered batch.
type Strategy interface {
	Install(ctx context.Context, target Target) error
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, target Target) error

func (f StrategyFunc) Install(ctx context.Context, target Target) error {
	return f(ctx, target)
}

// Transfer moves files from the host to a device.
type Transfer interface {
	Push(ctx context.Context, serial, local, remote string) error
	InstallMultiple(ctx context.Context, serial string, apks []string, args ...string) (string, error)
}

// Kind names a variant kind and selects its install strategy.
type Kind string

const (
	KindMultiAPK Kind = "multi-apk"
	KindPatch    Kind = "patch"
)

// Registry maps variant kinds to strategies.
type Registry struct {
	mu         sync.RWMutex
	strategies map[Kind]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[Kind]Strategy)}
}

func (r *Registry) Register(kind Kind, s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[normalizeKind(kind)] = s
}

// Lookup returns the strategy registered for kind.
func (r *Registry) Lookup(kind Kind) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[normalizeKind(kind)]; ok && s != nil {
		return s, nil
	}
	return nil, errors.Errorf("no install strategy for variant kind %q (known: %s)", kind, strings.Join(r.kindsLocked(), ", "))
}

func (r *Registry) kindsLocked() []string {
	kinds := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	return kinds
}

func normalizeKind(kind Kind) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(string(kind))))
}
