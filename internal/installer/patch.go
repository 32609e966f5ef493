package installer

import (
	"context"
	"path"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/httprunner/InstallAgent/internal/probe"
	"github.com/httprunner/InstallAgent/internal/shell"
)

// PatchInstallDirectoryPrefix is where patch artifacts land on external storage.
const PatchInstallDirectoryPrefix = "/sdcard/Android/data/"

// PatchDir returns the on-device directory receiving patch artifacts of packageName.
func PatchDir(packageName string) string {
	return path.Join(PatchInstallDirectoryPrefix, packageName, "files")
}

// PatchStrategy pushes each artifact into the app's patch directory, in
// batch order, and force-stops the app so it loads them on next launch.
type PatchStrategy struct {
	Client   *shell.Client
	Prober   *probe.Prober
	Transfer Transfer
}

func (s *PatchStrategy) Install(ctx context.Context, target Target) error {
	if s == nil || s.Client == nil || s.Prober == nil || s.Transfer == nil {
		return errors.New("patch strategy: not configured")
	}
	dev := target.Device
	if len(target.Artifacts) == 0 {
		log.Info().Str("serial", dev.Serial()).Str("package", target.Package).Msg("patch install: nothing to push")
		return nil
	}

	dir := PatchDir(target.Package)
	if !s.Prober.Exists(ctx, dev, dir) {
		ok, err := RunCommand(ctx, s.Client, dev, "mkdir -p "+shell.Quote(dir))
		if err != nil {
			return errors.Wrapf(err, "create patch directory %s", dir)
		}
		if !ok {
			return errors.Errorf("create patch directory %s failed", dir)
		}
	}

	for _, artifact := range target.Artifacts {
		remote := path.Join(dir, artifact.Name())
		if err := s.Transfer.Push(ctx, dev.Serial(), string(artifact), remote); err != nil {
			return errors.Wrapf(err, "push %s", artifact)
		}
		log.Debug().Str("serial", dev.Serial()).Str("artifact", string(artifact)).Str("remote", remote).Msg("patch artifact pushed")
	}

	// a stale process would keep the old code loaded
	if _, err := RunCommand(ctx, s.Client, dev, "am force-stop "+shell.Quote(target.Package)); err != nil {
		return errors.Wrapf(err, "force-stop %s", target.Package)
	}
	log.Info().
		Str("serial", dev.Serial()).
		Str("package", target.Package).
		Int("artifacts", len(target.Artifacts)).
		Str("dir", dir).
		Msg("patch install finished")
	return nil
}
