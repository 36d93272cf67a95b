package settings

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func setConfigHome(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("config dir override relies on XDG_CONFIG_HOME")
	}
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	return tmp
}

func TestLoadDefaults(t *testing.T) {
	setConfigHome(t)

	s, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !s.AutoPaste {
		t.Error("AutoPaste should default to true")
	}
	if !s.PrependSpace {
		t.Error("PrependSpace should default to true")
	}
	if s.NewlineOnBreak {
		t.Error("NewlineOnBreak should default to false")
	}
	if s.BreakInterval() != 6*time.Second {
		t.Errorf("BreakInterval = %v, want 6s", s.BreakInterval())
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	tmp := setConfigHome(t)

	s, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	s.AutoPaste = false
	s.NewlineOnBreak = true
	s.SelectedModel = "ggml-small.bin"
	s.PasteBreakSeconds = 10
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(tmp, appName, settingsFileName)); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.AutoPaste || !loaded.NewlineOnBreak {
		t.Errorf("roundtrip lost toggles: %+v", loaded)
	}
	if loaded.SelectedModel != "ggml-small.bin" {
		t.Errorf("SelectedModel = %q", loaded.SelectedModel)
	}
	if loaded.BreakInterval() != 10*time.Second {
		t.Errorf("BreakInterval = %v, want 10s", loaded.BreakInterval())
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	tmp := setConfigHome(t)
	dir := filepath.Join(tmp, appName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, settingsFileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected error for corrupt settings file")
	}
}

func TestDeliveryConfigProjection(t *testing.T) {
	s := &Settings{AutoPaste: true, PrependSpace: false, NewlineOnBreak: true}
	cfg := s.DeliveryConfig()
	if !cfg.AutoPaste || cfg.PrependSpace || !cfg.NewlineOnBreak {
		t.Errorf("projection mismatch: %+v", cfg)
	}
}
