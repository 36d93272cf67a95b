// Package clipboard places transcripts on the system clipboard and, for
// auto-paste, synthesizes the paste keystroke and restores the previous
// clipboard contents afterwards.
package clipboard

import (
	"errors"
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"
)

var (
	// ErrEventCreation means the paste keystroke could not be synthesized.
	ErrEventCreation = errors.New("could not create paste keystroke")
	// ErrAccessibilityDenied means the OS refused input injection for this
	// process (accessibility / uinput permission).
	ErrAccessibilityDenied = errors.New("input injection not permitted")
)

// restoreDelay gives the focused application time to consume the pasted
// clipboard before the previous contents come back.
const restoreDelay = 600 * time.Millisecond

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// PasteText copies text to the clipboard, sends the paste keystroke, and
// schedules restoration of the previous clipboard contents. The transcript
// stays on the clipboard if the keystroke fails, so the user can paste by
// hand.
func PasteText(text string) error {
	prev, readErr := Read()

	if err := Copy(text); err != nil {
		return fmt.Errorf("copying transcript: %w", err)
	}

	if err := sendPasteKeystroke(); err != nil {
		return err
	}

	if readErr == nil && prev != "" {
		go func() {
			time.Sleep(restoreDelay)
			Copy(prev)
		}()
	}
	return nil
}
