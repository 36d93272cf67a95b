//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Raw evdev is used instead of an X11 grab so the hotkey works on Wayland
// too. Requires read access to /dev/input (the input group).
const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keySpace   = 57
)

const inputEventSize = 24

type linuxHotkey struct {
	press   chan struct{}
	release chan struct{}
	files   []*os.File
	stop    chan struct{}
	once    sync.Once
}

func New() Hotkey {
	return &linuxHotkey{
		press:   make(chan struct{}, 1),
		release: make(chan struct{}, 1),
	}
}

func (h *linuxHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	h.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.readEvents(f)
	}

	if len(h.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

// keyEvent is one decoded EV_KEY record.
type keyEvent struct {
	code  uint16
	value int32
}

// decodeKeyEvents extracts the EV_KEY records from a raw evdev read.
// Key repeats (value 2) pass through; chord.apply ignores them.
func decodeKeyEvents(buf []byte) []keyEvent {
	var evs []keyEvent
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		if binary.LittleEndian.Uint16(buf[i+16:]) != evKey {
			continue
		}
		evs = append(evs, keyEvent{
			code:  binary.LittleEndian.Uint16(buf[i+18:]),
			value: int32(binary.LittleEndian.Uint32(buf[i+20:])),
		})
	}
	return evs
}

// chord tracks the Ctrl+Shift+Space combination across events from one
// device. Space only fires while both modifiers are down, and the held
// flag deduplicates repeats into single press/release edges.
type chord struct {
	ctrl, shift, space bool
}

func (c *chord) apply(ev keyEvent) (press, release bool) {
	down := ev.value == keyPress
	up := ev.value == keyRelease

	switch ev.code {
	case keyLCtrl, keyRCtrl:
		if down {
			c.ctrl = true
		} else if up {
			c.ctrl = false
		}
	case keyLShift, keyRShift:
		if down {
			c.shift = true
		} else if up {
			c.shift = false
		}
	case keySpace:
		if down && !c.space && c.ctrl && c.shift {
			c.space = true
			return true, false
		}
		if up && c.space {
			c.space = false
			return false, true
		}
	}
	return false, false
}

func (h *linuxHotkey) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var st chord

	for {
		select {
		case <-h.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for _, ev := range decodeKeyEvents(buf[:n]) {
			press, release := st.apply(ev)
			if press {
				emit(h.press)
			}
			if release {
				emit(h.release)
			}
		}
	}
}

// emit never blocks; with a buffer of one, a pending edge is enough.
func emit(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *linuxHotkey) Unregister() {
	h.once.Do(func() {
		if h.stop != nil {
			close(h.stop)
		}
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *linuxHotkey) Press() <-chan struct{} {
	return h.press
}

func (h *linuxHotkey) Release() <-chan struct{} {
	return h.release
}

// Diagnose reports whether the hotkey backend can see a keyboard.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}
