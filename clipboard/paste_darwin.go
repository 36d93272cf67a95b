//go:build darwin

package clipboard

import (
	"fmt"

	"github.com/micmonay/keybd_event"
)

// Init is a no-op on darwin; the event source is created per keystroke.
func Init() error { return nil }

func sendPasteKeystroke() error {
	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEventCreation, err)
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(true) // Cmd+V on macOS
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("%w: %v", ErrAccessibilityDenied, err)
	}
	return nil
}
