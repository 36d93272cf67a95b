package recorder

import (
	"os"
	"strings"
)

// isPermissionError classifies capture-start failures caused by the OS
// refusing microphone access. Backends report this inconsistently, so fall
// back to message sniffing.
func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsPermission(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "not permitted")
}
