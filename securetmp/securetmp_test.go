package securetmp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newScratchFile(t *testing.T, size int) (dir, path string) {
	t.Helper()
	dir, err := NewScratchDir("fwk_test_")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path, err = CreateFile(dir, "recording", "wav")
	if err != nil {
		t.Fatal(err)
	}
	if size > 0 {
		data := bytes.Repeat([]byte{0xAB}, size)
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir, path
}

func TestNewScratchDirPermissions(t *testing.T) {
	dir, err := NewScratchDir("fwk_test_")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("scratch dir perm = %o, want 0700", perm)
	}
}

func TestCreateFilePermissions(t *testing.T) {
	_, path := newScratchFile(t, 0)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file perm = %o, want 0600", perm)
	}
	if !strings.HasSuffix(path, "recording.wav") {
		t.Errorf("unexpected file name: %s", path)
	}
}

func TestCreateFileExisting(t *testing.T) {
	dir, _ := newScratchFile(t, 0)
	if _, err := CreateFile(dir, "recording", "wav"); err == nil {
		t.Error("expected error creating duplicate file")
	}
}

func TestWipeZeroFills(t *testing.T) {
	// Larger than one wipe chunk so the chunk loop is exercised.
	size := wipeChunkSize + 1234
	_, path := newScratchFile(t, size)

	if err := wipe(path, int64(size)); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != size {
		t.Fatalf("wiped file size = %d, want %d", len(data), size)
	}
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d = %#x after wipe, want 0", i, b)
		}
	}
}

func TestWipeAndRemove(t *testing.T) {
	dir, path := newScratchFile(t, 10000)

	if err := WipeAndRemove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("audio file still exists after WipeAndRemove")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("scratch dir still exists after WipeAndRemove")
	}
}

func TestWipeAndRemoveMissingPath(t *testing.T) {
	if err := WipeAndRemove(filepath.Join(t.TempDir(), "nope.wav")); err != nil {
		t.Errorf("expected no-op for missing path, got %v", err)
	}
}

func TestWipeAndRemoveIdempotent(t *testing.T) {
	_, path := newScratchFile(t, 100)
	if err := WipeAndRemove(path); err != nil {
		t.Fatal(err)
	}
	if err := WipeAndRemove(path); err != nil {
		t.Errorf("second WipeAndRemove should be a no-op, got %v", err)
	}
}

func TestCleanupErrorPrecedence(t *testing.T) {
	wipeErr := errors.New("wipe failed")
	removeErr := errors.New("remove failed")

	e := &CleanupError{WipeErr: wipeErr, RemoveErr: removeErr}
	if !strings.HasPrefix(e.Error(), "cleanup: remove:") {
		t.Errorf("removal error should lead diagnostics, got %q", e.Error())
	}
	if !errors.Is(e, removeErr) {
		t.Error("Unwrap should yield the removal error when both are set")
	}

	e = &CleanupError{WipeErr: wipeErr}
	if !errors.Is(e, wipeErr) {
		t.Error("Unwrap should yield the wipe error when removal succeeded")
	}
}
