package whisper

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Candidate binary names; whisper-cli is what Homebrew and recent whisper.cpp
// builds install.
var engineNames = []string{"whisper-cli", "whisper-cpp", "whisper", "main"}

const defaultModelName = "ggml-base.en.bin"

// Bundle holds validated paths to the engine and its models.
type Bundle struct {
	Executable   string
	ModelsDir    string
	DefaultModel string
}

// ResolveBundle locates the engine executable and models below root, or in
// PATH when root is empty. All returned paths exist at resolution time.
func ResolveBundle(root string) (*Bundle, error) {
	exe, err := findExecutable(root)
	if err != nil {
		return nil, err
	}

	modelsDir := filepath.Join(root, "models")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBundleMissing, err)
		}
		modelsDir = filepath.Join(home, ".freewhisperkey", "models")
	}
	if info, err := os.Stat(modelsDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: models directory %s", ErrBundleMissing, modelsDir)
	}

	defaultModel := filepath.Join(modelsDir, defaultModelName)
	if _, err := os.Stat(defaultModel); err != nil {
		defaultModel = ""
	}

	return &Bundle{
		Executable:   exe,
		ModelsDir:    modelsDir,
		DefaultModel: defaultModel,
	}, nil
}

// Model resolves the model file for a session: an absolute custom path wins,
// then a filename inside the models dir, then the bundle default.
func (b *Bundle) Model(selected, customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err != nil {
			return "", fmt.Errorf("%w: custom model %s", ErrBundleMissing, customPath)
		}
		return customPath, nil
	}
	if selected != "" {
		path := filepath.Join(b.ModelsDir, selected)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: model %s", ErrBundleMissing, path)
		}
		return path, nil
	}
	if b.DefaultModel == "" {
		return "", fmt.Errorf("%w: no model found in %s", ErrBundleMissing, b.ModelsDir)
	}
	return b.DefaultModel, nil
}

func findExecutable(root string) (string, error) {
	if root != "" {
		for _, name := range engineNames {
			path := filepath.Join(root, name)
			if isExecutable(path) {
				return path, nil
			}
		}
		return "", fmt.Errorf("%w: no engine executable under %s", ErrBundleMissing, root)
	}
	for _, name := range engineNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no whisper.cpp binary in PATH", ErrBundleMissing)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
