// Package hotkey delivers global press/release signals for the
// push-to-talk key (Ctrl+Shift+Space).
package hotkey

type Hotkey interface {
	Register() error
	Unregister()
	Press() <-chan struct{}
	Release() <-chan struct{}
}
