package device

import (
	"strings"

	"github.com/httprunner/InstallAgent/internal/shell"
)

// adb and adbd report refusals with these fragments.
var rejectionMarkers = []string{
	"device offline",
	"unauthorized",
	"not found",
	"no devices",
	"more than one device",
	"device still authorizing",
	"error: closed",
}

func isRejection(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range rejectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// classifyFailure wraps a transport error reported by adb.
func classifyFailure(serial, command, detail string, err error) error {
	if isRejection(detail) || (err != nil && isRejection(err.Error())) {
		return shell.Rejected(serial, command, err)
	}
	return shell.IOError(serial, command, err)
}
