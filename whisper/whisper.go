// Package whisper invokes a whisper.cpp command-line binary against a
// recorded WAV file and returns the transcript text.
package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrBundleMissing = errors.New("transcription engine bundle missing")

// EngineError is a non-zero exit from the engine process, carrying its
// trimmed stderr.
type EngineError struct {
	Stderr string
	Err    error
}

func (e *EngineError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("transcription engine failed: %s", e.Stderr)
	}
	return fmt.Sprintf("transcription engine failed: %v", e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Request names the inputs of one engine invocation. Paths are resolved and
// validated by the caller; Transcribe only re-checks existence.
type Request struct {
	AudioPath  string
	ModelPath  string
	Executable string
}

// Invoker runs transcriptions. The zero value is not usable; construct with
// NewInvoker.
type Invoker struct {
	scratchDir string
}

// NewInvoker writes engine output files under scratchDir.
func NewInvoker(scratchDir string) *Invoker {
	return &Invoker{scratchDir: scratchDir}
}

// Transcribe runs the engine synchronously and returns the trimmed
// transcript. The output base name is unique per call so a slow cleanup of a
// previous session can never corrupt new output.
func (inv *Invoker) Transcribe(ctx context.Context, req Request) (string, error) {
	for _, p := range []string{req.Executable, req.ModelPath, req.AudioPath} {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%w: %s", ErrBundleMissing, p)
		}
	}

	outBase := filepath.Join(inv.scratchDir, "transcript_"+uuid.NewString())

	args := []string{
		"-m", req.ModelPath,
		"-f", req.AudioPath,
		"-np",   // no progress prints
		"-otxt", // plain text output
		"-of", outBase,
	}

	cmd := exec.CommandContext(ctx, req.Executable, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &EngineError{Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	outPath := outBase + ".txt"
	defer os.Remove(outPath)

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("reading engine output: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
