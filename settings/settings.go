// Package settings handles the persisted user preferences. The core reads
// them through delivery.Config and model-resolution calls; nothing else in
// the process touches the file.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/johannes-stelzer/FreeWhisperKey/delivery"
)

const (
	appName          = "freewhisperkey"
	settingsFileName = "settings.json"
)

type Settings struct {
	AutoPaste         bool   `json:"auto_paste"`
	PrependSpace      bool   `json:"prepend_space"`
	NewlineOnBreak    bool   `json:"newline_on_break"`
	PasteBreakSeconds int    `json:"paste_break_seconds"`
	SelectedModel     string `json:"selected_model,omitempty"`
	CustomModelPath   string `json:"custom_model_path,omitempty"`
}

// Default returns the out-of-the-box settings.
func Default() *Settings { return defaultSettings() }

func defaultSettings() *Settings {
	return &Settings{
		AutoPaste:         true,
		PrependSpace:      true,
		NewlineOnBreak:    false,
		PasteBreakSeconds: int(delivery.DefaultBreakInterval / time.Second),
	}
}

// Load reads the settings file, returning defaults if it doesn't exist.
func Load() (*Settings, error) {
	path, err := settingsPath()
	if err != nil {
		return nil, fmt.Errorf("get settings path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultSettings(), nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	s := defaultSettings()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if s.PasteBreakSeconds <= 0 {
		s.PasteBreakSeconds = int(delivery.DefaultBreakInterval / time.Second)
	}
	return s, nil
}

// Save persists the settings to disk.
func (s *Settings) Save() error {
	path, err := settingsPath()
	if err != nil {
		return fmt.Errorf("get settings path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// DeliveryConfig projects the persisted preferences into the read-only view
// the delivery pipeline consumes.
func (s *Settings) DeliveryConfig() delivery.Config {
	return delivery.Config{
		AutoPaste:      s.AutoPaste,
		PrependSpace:   s.PrependSpace,
		NewlineOnBreak: s.NewlineOnBreak,
	}
}

func (s *Settings) BreakInterval() time.Duration {
	return time.Duration(s.PasteBreakSeconds) * time.Second
}

func settingsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}
