package installer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MultiAPKStrategy installs the batch as one `adb install-multiple` session.
type MultiAPKStrategy struct {
	Transfer Transfer
	// Args precede the apk list; nil means "-r -t". Incremental targets
	// also get "-p <package>".
	Args []string
}

func (s *MultiAPKStrategy) Install(ctx context.Context, target Target) error {
	if s == nil || s.Transfer == nil {
		return errors.New("multi-apk strategy: transfer is nil")
	}
	if len(target.Artifacts) == 0 {
		log.Info().Str("serial", target.Device.Serial()).Str("package", target.Package).Msg("multi-apk install: nothing to install")
		return nil
	}
	args := s.Args
	if args == nil {
		args = []string{"-r", "-t"}
	}
	if target.Mode == ModeIncremental && target.Package != "" {
		// partial session on top of the installed package; the base apk may be unchanged
		args = append(append([]string(nil), args...), "-p", target.Package)
	}
	output, err := s.Transfer.InstallMultiple(ctx, target.Device.Serial(), target.Artifacts.Paths(), args...)
	if err != nil {
		return errors.Wrap(err, "adb install-multiple")
	}
	if !strings.Contains(output, "Success") {
		return errors.Errorf("adb install-multiple did not succeed: %s", output)
	}
	log.Info().
		Str("serial", target.Device.Serial()).
		Str("package", target.Package).
		Int("artifacts", len(target.Artifacts)).
		Msg("multi-apk install finished")
	return nil
}
