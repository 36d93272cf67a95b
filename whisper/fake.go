package whisper

import "context"

// FakeInvoker returns a canned transcript or error; used by tests and by
// -test mode to exercise the full pipeline without an engine binary.
type FakeInvoker struct {
	Text string
	Err  error

	Calls []Request
}

func NewFake(text string, err error) *FakeInvoker {
	return &FakeInvoker{Text: text, Err: err}
}

func (f *FakeInvoker) Transcribe(_ context.Context, req Request) (string, error) {
	f.Calls = append(f.Calls, req)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}
