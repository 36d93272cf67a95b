//go:build !darwin

package securetmp

import (
	"os"
	"path/filepath"
)

// CACHEDIR.TAG is the convention backup tools (borg, restic, tar
// --exclude-caches) recognize for skip-this-directory.
const cachedirTag = "Signature: 8a477f597d28d172789f06886806bc55\n" +
	"# This directory holds transient voice recordings and is wiped after use.\n"

func excludeFromBackup(dir string) error {
	return os.WriteFile(filepath.Join(dir, "CACHEDIR.TAG"), []byte(cachedirTag), 0600)
}
