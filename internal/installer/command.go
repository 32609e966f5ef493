package installer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/httprunner/InstallAgent/internal/shell"
)

// RunCommand runs a command that prints nothing on success. Any output is
// logged as unexpected and reported as false; transport failures are errors.
func RunCommand(ctx context.Context, client *shell.Client, dev shell.Device, command string) (bool, error) {
	output, err := client.ExecuteCollecting(ctx, dev, command, 0)
	if err != nil {
		return false, err
	}
	if output != "" {
		log.Warn().
			Str("serial", dev.Serial()).
			Str("command", command).
			Str("output", output).
			Msg("unexpected shell output")
		return false, nil
	}
	return true, nil
}
