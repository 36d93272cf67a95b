// Package securetmp manages the scratch files that hold raw voice audio
// between capture and transcription. Directories are owner-only and marked
// excluded from OS backup; files are zero-filled before removal so the
// recording never survives on disk.
package securetmp

import (
	"fmt"
	"os"
	"path/filepath"
)

const wipeChunkSize = 64 * 1024

// CleanupError reports a failed wipe and/or removal. The removal error is
// the primary diagnostic; a wipe failure alone still lets removal proceed.
type CleanupError struct {
	WipeErr   error
	RemoveErr error
}

func (e *CleanupError) Error() string {
	switch {
	case e.RemoveErr != nil && e.WipeErr != nil:
		return fmt.Sprintf("cleanup: remove: %v (wipe also failed: %v)", e.RemoveErr, e.WipeErr)
	case e.RemoveErr != nil:
		return fmt.Sprintf("cleanup: remove: %v", e.RemoveErr)
	default:
		return fmt.Sprintf("cleanup: wipe: %v", e.WipeErr)
	}
}

func (e *CleanupError) Unwrap() error {
	if e.RemoveErr != nil {
		return e.RemoveErr
	}
	return e.WipeErr
}

// NewScratchDir creates a uniquely named directory with 0700 permissions,
// excluded from the platform backup mechanism.
func NewScratchDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		os.Remove(dir)
		return "", fmt.Errorf("restricting scratch dir: %w", err)
	}
	if err := excludeFromBackup(dir); err != nil {
		os.Remove(dir)
		return "", fmt.Errorf("excluding scratch dir from backup: %w", err)
	}
	return dir, nil
}

// CreateFile creates an empty owner-only file inside dir.
func CreateFile(dir, name, ext string) (string, error) {
	path := filepath.Join(dir, name+"."+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("creating secure file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("creating secure file: %w", err)
	}
	return path, nil
}

// WipeAndRemove overwrites path with zeros, then removes it and its parent
// directory. A wipe failure does not stop the removal attempt. If path no
// longer exists the call is a no-op.
func WipeAndRemove(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &CleanupError{WipeErr: err}
	}

	wipeErr := wipe(path, info.Size())

	var removeErr error
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		removeErr = err
	}
	// The parent holds only this session's artifacts; leftover engine
	// output in the same dir goes with it.
	if err := os.RemoveAll(filepath.Dir(path)); err != nil && removeErr == nil {
		removeErr = err
	}

	if wipeErr != nil || removeErr != nil {
		return &CleanupError{WipeErr: wipeErr, RemoveErr: removeErr}
	}
	return nil
}

// wipe overwrites size bytes of path with zero-filled chunks. Chunked so a
// long recording never needs its full length in memory.
func wipe(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	zeros := make([]byte, wipeChunkSize)
	var written int64
	for written < size {
		n := int64(len(zeros))
		if size-written < n {
			n = size - written
		}
		if _, err := f.Write(zeros[:n]); err != nil {
			return err
		}
		written += n
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
