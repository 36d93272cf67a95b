//go:build !windows

package whisper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeEngine installs a shell script standing in for whisper-cli.
func writeEngine(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "whisper-cli")
	script := "#!/bin/sh\n" + body
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// parseOut is the script fragment extracting the -of argument into $out.
const parseOut = `out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-of" ]; then out="$2"; fi
  shift
done
`

func testRequest(t *testing.T, exe string) Request {
	t.Helper()
	dir := t.TempDir()
	audio := filepath.Join(dir, "recording.wav")
	model := filepath.Join(dir, "ggml-base.en.bin")
	for _, p := range []string{audio, model} {
		if err := os.WriteFile(p, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return Request{AudioPath: audio, ModelPath: model, Executable: exe}
}

func TestTranscribeSuccess(t *testing.T) {
	scratch := t.TempDir()
	exe := writeEngine(t, t.TempDir(), parseOut+`printf ' Testing one two. \n' > "$out.txt"`+"\n")

	inv := NewInvoker(scratch)
	text, err := inv.Transcribe(context.Background(), testRequest(t, exe))
	if err != nil {
		t.Fatal(err)
	}
	if text != "Testing one two." {
		t.Errorf("text = %q, want trimmed transcript", text)
	}
}

func TestTranscribeEngineFailure(t *testing.T) {
	exe := writeEngine(t, t.TempDir(), "echo 'model load failed' >&2\nexit 1\n")

	inv := NewInvoker(t.TempDir())
	_, err := inv.Transcribe(context.Background(), testRequest(t, exe))

	var engineErr *EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("got %v, want EngineError", err)
	}
	if engineErr.Stderr != "model load failed" {
		t.Errorf("Stderr = %q, want captured stderr", engineErr.Stderr)
	}
}

func TestTranscribeMissingOutput(t *testing.T) {
	exe := writeEngine(t, t.TempDir(), "exit 0\n")

	inv := NewInvoker(t.TempDir())
	if _, err := inv.Transcribe(context.Background(), testRequest(t, exe)); err == nil {
		t.Error("expected error when engine writes no output file")
	}
}

func TestTranscribeBundleMissing(t *testing.T) {
	inv := NewInvoker(t.TempDir())
	req := testRequest(t, filepath.Join(t.TempDir(), "nonexistent"))

	if _, err := inv.Transcribe(context.Background(), req); !errors.Is(err, ErrBundleMissing) {
		t.Errorf("got %v, want ErrBundleMissing", err)
	}
}

func TestTranscribeUniqueOutputBase(t *testing.T) {
	scratch := t.TempDir()
	caplog := filepath.Join(scratch, "bases.log")
	exe := writeEngine(t, t.TempDir(),
		parseOut+`echo "$out" >> `+caplog+"\n"+`printf 'ok\n' > "$out.txt"`+"\n")

	inv := NewInvoker(scratch)
	req := testRequest(t, exe)
	for range 2 {
		if _, err := inv.Transcribe(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(caplog)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Fields(string(data))
	if len(lines) != 2 || lines[0] == lines[1] {
		t.Errorf("output bases not unique per call: %v", lines)
	}
}

func TestResolveBundle(t *testing.T) {
	root := t.TempDir()
	writeEngine(t, root, "exit 0\n")
	modelsDir := filepath.Join(root, "models")
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		t.Fatal(err)
	}
	modelPath := filepath.Join(modelsDir, defaultModelName)
	if err := os.WriteFile(modelPath, []byte("m"), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := ResolveBundle(root)
	if err != nil {
		t.Fatal(err)
	}
	if b.DefaultModel != modelPath {
		t.Errorf("DefaultModel = %q, want %q", b.DefaultModel, modelPath)
	}

	got, err := b.Model("", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != modelPath {
		t.Errorf("Model() = %q, want default", got)
	}
}

func TestResolveBundleMissing(t *testing.T) {
	if _, err := ResolveBundle(t.TempDir()); !errors.Is(err, ErrBundleMissing) {
		t.Errorf("got %v, want ErrBundleMissing", err)
	}
}

func TestBundleModelPrecedence(t *testing.T) {
	root := t.TempDir()
	writeEngine(t, root, "exit 0\n")
	modelsDir := filepath.Join(root, "models")
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		t.Fatal(err)
	}
	selected := filepath.Join(modelsDir, "ggml-small.bin")
	if err := os.WriteFile(selected, []byte("m"), 0644); err != nil {
		t.Fatal(err)
	}
	custom := filepath.Join(t.TempDir(), "custom.bin")
	if err := os.WriteFile(custom, []byte("m"), 0644); err != nil {
		t.Fatal(err)
	}

	b, err := ResolveBundle(root)
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := b.Model("ggml-small.bin", custom); got != custom {
		t.Errorf("custom path should win, got %q", got)
	}
	if got, _ := b.Model("ggml-small.bin", ""); got != selected {
		t.Errorf("selected model should win over default, got %q", got)
	}
	if _, err := b.Model("ggml-absent.bin", ""); !errors.Is(err, ErrBundleMissing) {
		t.Errorf("missing selected model: got %v, want ErrBundleMissing", err)
	}
	if _, err := b.Model("", ""); !errors.Is(err, ErrBundleMissing) {
		t.Errorf("no default model: got %v, want ErrBundleMissing", err)
	}
}
