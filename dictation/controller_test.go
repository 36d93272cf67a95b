package dictation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/johannes-stelzer/FreeWhisperKey/delivery"
	"github.com/johannes-stelzer/FreeWhisperKey/recorder"
	"github.com/johannes-stelzer/FreeWhisperKey/whisper"
)

type fakeEngine struct {
	mu         sync.Mutex
	beginCalls int
	dest       string
	frames     uint64
	recording  bool
	beginErr   error
	stopErr    error
}

func (f *fakeEngine) Begin(dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beginCalls++
	if f.beginErr != nil {
		return f.beginErr
	}
	// Simulate captured audio so cleanup has something to wipe.
	if err := os.WriteFile(dest, bytes.Repeat([]byte{0x7F}, 1000), 0600); err != nil {
		return err
	}
	f.dest = dest
	f.recording = true
	return nil
}

func (f *fakeEngine) Stop() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.recording {
		return 0, nil
	}
	f.recording = false
	return f.frames, f.stopErr
}

func (f *fakeEngine) IsRecording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

type fakeClipboard struct {
	mu       sync.Mutex
	pasted   []string
	copied   []string
	pasteErr error
}

func (f *fakeClipboard) Paste(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pasteErr != nil {
		return f.pasteErr
	}
	f.pasted = append(f.pasted, text)
	return nil
}

func (f *fakeClipboard) Copy(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copied = append(f.copied, text)
	return nil
}

type recordingSink struct {
	events chan string
	errs   chan error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan string, 32), errs: make(chan error, 32)}
}

func (s *recordingSink) RecordingStarted()         { s.events <- "started" }
func (s *recordingSink) RecordingStopped()         { s.events <- "stopped" }
func (s *recordingSink) Delivered(delivery.Result) { s.events <- "delivered" }
func (s *recordingSink) NoSpeech()                 { s.events <- "nospeech" }
func (s *recordingSink) SessionError(err error)    { s.events <- "error"; s.errs <- err }

type harness struct {
	ctrl   *Controller
	engine *fakeEngine
	board  *fakeClipboard
	sink   *recordingSink
	deliv  *delivery.Deliverer
}

func newHarness(t *testing.T, tr Transcriber, cfg delivery.Config) *harness {
	t.Helper()
	h := &harness{
		engine: &fakeEngine{frames: recorder.SampleRate}, // one second captured
		board:  &fakeClipboard{},
		sink:   newRecordingSink(),
		deliv:  delivery.New(0),
	}
	h.ctrl = New(Config{
		Engine:         h.engine,
		Transcriber:    tr,
		Deliverer:      h.deliv,
		Clipboard:      h.board,
		Sink:           h.sink,
		DeliveryConfig: func() delivery.Config { return cfg },
		ModelPath:      "model.bin",
		Executable:     "whisper-cli",
	})
	return h
}

func (h *harness) runSession(t *testing.T) {
	t.Helper()
	h.ctrl.Press()
	done := h.ctrl.Done()
	if done == nil {
		t.Fatal("no live session after Press")
	}
	h.ctrl.Release()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not return to idle")
	}
}

func TestPressStartsRecording(t *testing.T) {
	h := newHarness(t, whisper.NewFake("hi", nil), delivery.Config{})

	h.ctrl.Press()
	if h.ctrl.State() != StateRecording {
		t.Errorf("state = %v, want recording", h.ctrl.State())
	}
	if h.engine.beginCalls != 1 {
		t.Errorf("beginCalls = %d, want 1", h.engine.beginCalls)
	}

	done := h.ctrl.Done()
	h.ctrl.Release()
	<-done
}

func TestPressWhileRecordingIgnored(t *testing.T) {
	h := newHarness(t, whisper.NewFake("hi", nil), delivery.Config{})

	h.ctrl.Press()
	h.ctrl.Press()

	if h.engine.beginCalls != 1 {
		t.Errorf("beginCalls = %d, second press must not start a session", h.engine.beginCalls)
	}

	done := h.ctrl.Done()
	h.ctrl.Release()
	<-done
}

type blockingTranscriber struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingTranscriber) Transcribe(context.Context, whisper.Request) (string, error) {
	b.entered <- struct{}{}
	<-b.release
	return "hi", nil
}

func TestPressWhileProcessingIgnored(t *testing.T) {
	tr := &blockingTranscriber{entered: make(chan struct{}, 1), release: make(chan struct{})}
	h := newHarness(t, tr, delivery.Config{})

	h.ctrl.Press()
	done := h.ctrl.Done()
	h.ctrl.Release()
	<-tr.entered

	if h.ctrl.State() != StateProcessing {
		t.Fatalf("state = %v, want processing", h.ctrl.State())
	}
	h.ctrl.Press()
	if h.engine.beginCalls != 1 {
		t.Errorf("beginCalls = %d, press during processing must be ignored", h.engine.beginCalls)
	}

	close(tr.release)
	<-done

	if h.ctrl.State() != StateIdle {
		t.Errorf("state = %v, want idle after session end", h.ctrl.State())
	}
}

func TestReleaseWhileIdleIgnored(t *testing.T) {
	h := newHarness(t, whisper.NewFake("hi", nil), delivery.Config{})

	h.ctrl.Release()

	if h.ctrl.State() != StateIdle {
		t.Errorf("state = %v, want idle", h.ctrl.State())
	}
	select {
	case ev := <-h.sink.events:
		t.Errorf("unexpected event %q for ignored release", ev)
	default:
	}
}

func TestFullSessionPaste(t *testing.T) {
	// Engine output with an embedded newline; with NewlineOnBreak off the
	// delivered text must be a single line.
	tr := whisper.NewFake("Testing\none two.", nil)
	h := newHarness(t, tr, delivery.Config{AutoPaste: true})

	h.runSession(t)

	if len(h.board.pasted) != 1 || h.board.pasted[0] != "Testing one two." {
		t.Errorf("pasted = %q, want [\"Testing one two.\"]", h.board.pasted)
	}
	if len(tr.Calls) != 1 {
		t.Fatalf("transcriber calls = %d, want 1", len(tr.Calls))
	}
	if _, err := os.Stat(tr.Calls[0].AudioPath); !os.IsNotExist(err) {
		t.Error("audio file must be wiped and removed after the session")
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("state = %v, want idle", h.ctrl.State())
	}
}

func TestFullSessionCopy(t *testing.T) {
	h := newHarness(t, whisper.NewFake("hello", nil), delivery.Config{AutoPaste: false})

	h.runSession(t)

	if len(h.board.copied) != 1 || h.board.copied[0] != "hello" {
		t.Errorf("copied = %q, want [\"hello\"]", h.board.copied)
	}
	if len(h.board.pasted) != 0 {
		t.Errorf("pasted = %q, want none", h.board.pasted)
	}
}

func TestEngineFailureReturnsToIdle(t *testing.T) {
	tr := whisper.NewFake("", errors.New("engine exploded"))
	h := newHarness(t, tr, delivery.Config{AutoPaste: true})

	h.runSession(t)

	select {
	case err := <-h.sink.errs:
		if err == nil {
			t.Error("expected session error")
		}
	case <-time.After(time.Second):
		t.Error("no error surfaced")
	}
	if h.ctrl.State() != StateIdle {
		t.Errorf("state = %v, want idle after failure", h.ctrl.State())
	}
	if _, err := os.Stat(tr.Calls[0].AudioPath); !os.IsNotExist(err) {
		t.Error("audio file must be cleaned up after failure")
	}
}

func TestBlankAudioNoDelivery(t *testing.T) {
	h := newHarness(t, whisper.NewFake("[BLANK_AUDIO]", nil), delivery.Config{AutoPaste: true})

	h.runSession(t)

	if len(h.board.pasted)+len(h.board.copied) != 0 {
		t.Error("blank audio must not be delivered")
	}
	if h.deliv.LastTranscript() != "" {
		t.Error("blank audio must not update the last transcript")
	}
}

func TestShortRecordingSkipsEngine(t *testing.T) {
	tr := whisper.NewFake("hi", nil)
	h := newHarness(t, tr, delivery.Config{})
	h.engine.frames = 100 // well under a tenth of a second

	h.runSession(t)

	if len(tr.Calls) != 0 {
		t.Errorf("transcriber calls = %d, want 0 for a tap", len(tr.Calls))
	}
}

func TestPasteFailureKeepsTranscript(t *testing.T) {
	h := newHarness(t, whisper.NewFake("hello", nil), delivery.Config{AutoPaste: true})
	h.board.pasteErr = errors.New("accessibility denied")

	h.runSession(t)

	select {
	case <-h.sink.errs:
	case <-time.After(time.Second):
		t.Error("paste failure not surfaced")
	}
	if h.deliv.LastTranscript() != "hello" {
		t.Errorf("lastTranscript = %q, transcript must survive a paste failure", h.deliv.LastTranscript())
	}
}

func TestBeginFailureStaysIdle(t *testing.T) {
	h := newHarness(t, whisper.NewFake("hi", nil), delivery.Config{})
	h.engine.beginErr = recorder.ErrPermissionDenied

	h.ctrl.Press()

	if h.ctrl.State() != StateIdle {
		t.Errorf("state = %v, want idle after failed start", h.ctrl.State())
	}
	select {
	case err := <-h.sink.errs:
		if !errors.Is(err, recorder.ErrPermissionDenied) {
			t.Errorf("got %v, want permission error", err)
		}
	case <-time.After(time.Second):
		t.Error("start failure not surfaced")
	}
}
