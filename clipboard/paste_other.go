//go:build !darwin

package clipboard

import (
	"fmt"
	"os"
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// Init opens the key injection device ahead of the first paste. On linux
// the uinput device needs a warm-up period after creation, so call this
// at startup rather than paying the delay on the first transcription.
func Init() error {
	return initKeyBonding()
}

func initKeyBonding() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

func sendPasteKeystroke() error {
	if err := initKeyBonding(); err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %v (try: sudo usermod -aG input $USER)", ErrAccessibilityDenied, err)
		}
		return fmt.Errorf("%w: %v", ErrEventCreation, err)
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	if err := kb.Launching(); err != nil {
		return fmt.Errorf("%w: %v", ErrEventCreation, err)
	}
	return nil
}
