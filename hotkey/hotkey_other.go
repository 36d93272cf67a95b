//go:build !linux

package hotkey

import (
	"golang.design/x/hotkey"
)

// xHotkey bridges golang.design/x/hotkey to the Press/Release interface.
// One forwarding goroutine alternates between the two edges — the backend
// guarantees a keyup between keydowns — and stops on Unregister.
type xHotkey struct {
	hk      *hotkey.Hotkey
	press   chan struct{}
	release chan struct{}
	stop    chan struct{}
}

func New() Hotkey {
	return &xHotkey{
		hk:      hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace),
		press:   make(chan struct{}, 1),
		release: make(chan struct{}, 1),
	}
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	h.stop = make(chan struct{})
	go h.forward()
	return nil
}

func (h *xHotkey) forward() {
	for {
		select {
		case <-h.hk.Keydown():
		case <-h.stop:
			return
		}
		select {
		case h.press <- struct{}{}:
		case <-h.stop:
			return
		}

		select {
		case <-h.hk.Keyup():
		case <-h.stop:
			return
		}
		select {
		case h.release <- struct{}{}:
		case <-h.stop:
			return
		}
	}
}

func (h *xHotkey) Unregister() {
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
	h.hk.Unregister()
}

func (h *xHotkey) Press() <-chan struct{} {
	return h.press
}

func (h *xHotkey) Release() <-chan struct{} {
	return h.release
}

func Diagnose() (string, error) {
	return "hotkey support available (Ctrl+Shift+Space)", nil
}
