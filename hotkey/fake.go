package hotkey

type FakeHotkey struct {
	press   chan struct{}
	release chan struct{}
}

func NewFake() *FakeHotkey {
	return &FakeHotkey{
		press:   make(chan struct{}, 1),
		release: make(chan struct{}, 1),
	}
}

func (f *FakeHotkey) Register() error          { return nil }
func (f *FakeHotkey) Unregister()              {}
func (f *FakeHotkey) Press() <-chan struct{}   { return f.press }
func (f *FakeHotkey) Release() <-chan struct{} { return f.release }

func (f *FakeHotkey) SimPress()   { f.press <- struct{}{} }
func (f *FakeHotkey) SimRelease() { f.release <- struct{}{} }
