// Package recorder owns the microphone recording session: it pulls PCM from
// an audio.CaptureDevice and writes a mono 16 kHz 16-bit WAV file, the fixed
// format the transcription engine expects.
package recorder

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"encoding/binary"

	"github.com/johannes-stelzer/FreeWhisperKey/audio"
)

const (
	SampleRate = 16000
	Channels   = 1
)

var (
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrPermissionDenied = errors.New("microphone access denied")
)

// Authorizer resolves microphone permission before capture starts. Authorize
// blocks until the platform answers; platforms without an async prompt grant
// immediately.
type Authorizer interface {
	Authorize() error
}

// Granted is the Authorizer for platforms where opening the capture device
// is itself the permission gate.
type Granted struct{}

func (Granted) Authorize() error { return nil }

type Recorder struct {
	device audio.CaptureDevice
	auth   Authorizer

	mu        sync.Mutex
	recording bool
	w         *wavWriter
	frames    uint64
	writeErr  error

	level func(float64)
}

func New(device audio.CaptureDevice, auth Authorizer) *Recorder {
	if auth == nil {
		auth = Granted{}
	}
	return &Recorder{device: device, auth: auth}
}

// SetLevelHandler installs an amplitude callback (0.0..1.0) fired while
// recording. UI feedback only; must not be set mid-recording.
func (r *Recorder) SetLevelHandler(fn func(float64)) {
	r.level = fn
}

func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Begin starts capturing into dest, an existing file created by the caller.
// Blocks on the permission prompt when authorization is undetermined.
func (r *Recorder) Begin(dest string) error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.mu.Unlock()

	// Suspension point: may wait for the user's permission decision.
	if err := r.auth.Authorize(); err != nil {
		return err
	}

	w, err := newWAVWriter(dest, SampleRate, Channels)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}

	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		w.Close()
		return ErrAlreadyRecording
	}
	r.w = w
	r.frames = 0
	r.writeErr = nil
	r.recording = true
	r.mu.Unlock()

	r.device.SetCallback(r.onData)

	if err := r.device.Start(); err != nil {
		r.device.ClearCallback()
		r.mu.Lock()
		r.recording = false
		r.w = nil
		r.mu.Unlock()
		w.Close()
		if isPermissionError(err) {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return fmt.Errorf("recorder: starting capture: %w", err)
	}
	return nil
}

func (r *Recorder) onData(data []byte, frameCount uint32) {
	r.mu.Lock()
	if !r.recording || r.w == nil {
		r.mu.Unlock()
		return
	}
	if err := r.w.Write(data); err != nil && r.writeErr == nil {
		r.writeErr = err
	}
	r.frames += uint64(frameCount)
	level := r.level
	r.mu.Unlock()

	if level != nil && len(data) > 1 {
		level(rms(data))
	}
}

// Stop ends the active session and finalizes the WAV file. No-op when idle;
// always safe to call. Returns the captured frame count.
func (r *Recorder) Stop() (uint64, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return 0, nil
	}
	r.recording = false
	r.mu.Unlock()

	r.device.Stop()
	r.device.ClearCallback()

	r.mu.Lock()
	w := r.w
	r.w = nil
	frames := r.frames
	writeErr := r.writeErr
	r.mu.Unlock()

	closeErr := w.Close()
	if writeErr != nil {
		return frames, fmt.Errorf("recorder: writing audio: %w", writeErr)
	}
	if closeErr != nil {
		return frames, fmt.Errorf("recorder: finalizing audio: %w", closeErr)
	}
	return frames, nil
}

// rms computes a 0.0..1.0 amplitude over one callback's worth of samples.
func rms(data []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	v := math.Sqrt(sumSquares / float64(len(data)/2))
	return math.Min(v, 1.0)
}
