//go:build darwin

package securetmp

import "golang.org/x/sys/unix"

// Time Machine honors this xattr the same way NSURLIsExcludedFromBackupKey
// does for sandboxed apps.
const backupExcludeAttr = "com.apple.metadata:com_apple_backup_excludeItem"

func excludeFromBackup(dir string) error {
	return unix.Setxattr(dir, backupExcludeAttr, []byte("com.apple.backupd"), 0)
}
