// Package dictation coordinates one press-to-talk session: microphone
// capture into a secure scratch file, the transcription engine run, and
// delivery of the transcript, with cleanup guaranteed afterwards.
package dictation

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johannes-stelzer/FreeWhisperKey/delivery"
	"github.com/johannes-stelzer/FreeWhisperKey/log"
	"github.com/johannes-stelzer/FreeWhisperKey/recorder"
	"github.com/johannes-stelzer/FreeWhisperKey/securetmp"
	"github.com/johannes-stelzer/FreeWhisperKey/whisper"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// minFrames filters out accidental taps: below a tenth of a second there is
// nothing the engine could transcribe.
const minFrames = recorder.SampleRate / 10

// Session is the per-recording state. At most one exists at a time, owned
// exclusively by the Controller.
type Session struct {
	ID        uuid.UUID
	AudioPath string
	StartedAt time.Time
}

// Engine is the capture surface the controller drives.
type Engine interface {
	Begin(dest string) error
	Stop() (uint64, error)
	IsRecording() bool
}

// Transcriber runs one engine invocation to completion.
type Transcriber interface {
	Transcribe(ctx context.Context, req whisper.Request) (string, error)
}

// Clipboard is the delivery back end: Paste injects the text into the
// focused application, Copy only places it on the clipboard.
type Clipboard interface {
	Paste(text string) error
	Copy(text string) error
}

// EventSink receives session lifecycle notifications. Implementations must
// not block; calls arrive from the controller's goroutines.
type EventSink interface {
	RecordingStarted()
	RecordingStopped()
	Delivered(res delivery.Result)
	NoSpeech()
	SessionError(err error)
}

type nopSink struct{}

func (nopSink) RecordingStarted()         {}
func (nopSink) RecordingStopped()         {}
func (nopSink) Delivered(delivery.Result) {}
func (nopSink) NoSpeech()                 {}
func (nopSink) SessionError(error)        {}

// Config wires a Controller. ModelPath and Executable are pre-validated by
// bundle resolution; DeliveryConfig is re-read at the start of each session
// and held constant until it ends.
type Config struct {
	Engine         Engine
	Transcriber    Transcriber
	Deliverer      *delivery.Deliverer
	Clipboard      Clipboard
	Sink           EventSink
	DeliveryConfig func() delivery.Config
	ModelPath      string
	Executable     string
}

type Controller struct {
	cfg Config

	mu      sync.Mutex
	state   State
	session *Session
	done    chan struct{} // closed when the current session fully ends
}

func New(cfg Config) *Controller {
	if cfg.Sink == nil {
		cfg.Sink = nopSink{}
	}
	return &Controller{cfg: cfg}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Press starts a new session. Ignored unless idle: no re-entrant or queued
// sessions. Blocks while the microphone permission prompt is unresolved.
func (c *Controller) Press() {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		log.Info("press_ignored: " + state.String())
		return
	}

	sess, err := newSession()
	if err != nil {
		c.mu.Unlock()
		log.Errorf("session setup error: %v", err)
		c.cfg.Sink.SessionError(err)
		return
	}

	if err := c.cfg.Engine.Begin(sess.AudioPath); err != nil {
		c.mu.Unlock()
		if cerr := securetmp.WipeAndRemove(sess.AudioPath); cerr != nil {
			log.Warnf("cleanup after failed start: %v", cerr)
		}
		log.Errorf("recording start error: %v", err)
		c.cfg.Sink.SessionError(err)
		return
	}

	c.state = StateRecording
	c.session = sess
	c.done = make(chan struct{})
	c.mu.Unlock()

	log.Info("recording_start")
	c.cfg.Sink.RecordingStarted()
}

// Release stops the recording and hands the audio to the engine off this
// goroutine. Ignored unless recording.
func (c *Controller) Release() {
	c.mu.Lock()
	if c.state != StateRecording {
		state := c.state
		c.mu.Unlock()
		log.Info("release_ignored: " + state.String())
		return
	}
	c.state = StateProcessing
	sess := c.session
	done := c.done
	c.mu.Unlock()

	frames, err := c.cfg.Engine.Stop()
	log.Info("recording_stop")
	c.cfg.Sink.RecordingStopped()

	if err != nil {
		log.Errorf("recorder error: %v", err)
		c.cfg.Sink.SessionError(err)
		c.finish(sess, done)
		return
	}
	if frames < minFrames {
		c.cfg.Sink.NoSpeech()
		c.finish(sess, done)
		return
	}

	go func() {
		c.process(sess, frames)
		c.finish(sess, done)
	}()
}

// Done returns a channel closed when the current session has fully ended
// (cleanup included). Returns nil when no session is live.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// process runs transcription and delivery. Cleanup happens in finish, so
// the audio file outlives the engine read no matter how this exits.
func (c *Controller) process(sess *Session, frames uint64) {
	req := whisper.Request{
		AudioPath:  sess.AudioPath,
		ModelPath:  c.cfg.ModelPath,
		Executable: c.cfg.Executable,
	}

	start := time.Now()
	text, err := c.cfg.Transcriber.Transcribe(context.Background(), req)
	if err != nil {
		log.Errorf("transcription error: %v", err)
		c.cfg.Sink.SessionError(err)
		return
	}

	audioS := float64(frames) / float64(recorder.SampleRate)
	log.Transcription(audioS, float64(time.Since(start).Milliseconds()), len(text))

	cfg := c.cfg.DeliveryConfig()
	res := c.cfg.Deliverer.Process(text, cfg)
	if res == nil {
		log.Info("no_speech")
		c.cfg.Sink.NoSpeech()
		return
	}

	switch res.Action {
	case delivery.ActionPaste:
		if err := c.cfg.Clipboard.Paste(res.Text); err != nil {
			// The transcript is already on the clipboard; surface the
			// failure and leave it there for a manual paste.
			log.Errorf("paste error: %v", err)
			c.cfg.Sink.SessionError(err)
		} else {
			c.cfg.Deliverer.MarkPasteCompleted()
		}
	case delivery.ActionCopy:
		if err := c.cfg.Clipboard.Copy(res.Text); err != nil {
			log.Errorf("copy error: %v", err)
			c.cfg.Sink.SessionError(err)
		}
	}

	log.TranscriptionText(res.Text)
	c.cfg.Sink.Delivered(*res)
}

// finish wipes the session's audio and returns to idle. Cleanup failures
// never block the transition.
func (c *Controller) finish(sess *Session, done chan struct{}) {
	if err := securetmp.WipeAndRemove(sess.AudioPath); err != nil {
		log.Warnf("cleanup error: %v", err)
		c.cfg.Sink.SessionError(err)
	}

	c.mu.Lock()
	c.state = StateIdle
	c.session = nil
	c.done = nil
	c.mu.Unlock()

	close(done)
}

func newSession() (*Session, error) {
	dir, err := securetmp.NewScratchDir("freewhisperkey_")
	if err != nil {
		return nil, err
	}
	path, err := securetmp.CreateFile(dir, "recording", "wav")
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &Session{
		ID:        uuid.New(),
		AudioPath: path,
		StartedAt: time.Now(),
	}, nil
}
