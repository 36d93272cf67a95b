package hotkey

import (
	"time"
)

type Mode string

const (
	ModePTT    Mode = "ptt"
	ModeToggle Mode = "toggle"
)

// StartEvent indicates a new recording should start with the given mode.
type StartEvent struct {
	Mode Mode
}

// Hybrid wraps a Hotkey to provide hybrid tap-to-toggle and hold-to-talk
// behavior on the same key. It emits Start events and a unified Stop channel
// signaling when recording should end, for both modes.
type Hybrid struct {
	startCh chan StartEvent
	stopCh  chan struct{}
}

// NewHybrid builds a Hybrid controller on top of an existing Hotkey.
// longPress is the hold duration that separates push-to-talk from a tap.
func NewHybrid(hk Hotkey, longPress time.Duration) *Hybrid {
	h := &Hybrid{
		startCh: make(chan StartEvent, 1),
		stopCh:  make(chan struct{}, 1),
	}
	go h.run(hk, longPress)
	return h
}

// Start returns a channel of StartEvent values signaling when to begin recording.
func (h *Hybrid) Start() <-chan StartEvent { return h.startCh }

// StopChan returns a channel that is signaled when to stop recording.
func (h *Hybrid) StopChan() <-chan struct{} { return h.stopCh }

type hybridState int

const (
	stIdle hybridState = iota
	stToggleRecording
)

func (h *Hybrid) run(hk Hotkey, longPress time.Duration) {
	state := stIdle
	for {
		switch state {
		case stIdle:
			// Any press starts immediately; mode is decided by hold duration.
			<-hk.Press()
			h.startCh <- StartEvent{Mode: ModeToggle}
			timer := time.NewTimer(longPress)
			select {
			case <-timer.C:
				// Held past the threshold: stop on release
				<-hk.Release()
				select {
				case h.stopCh <- struct{}{}:
				default:
				}
				state = stIdle
			case <-hk.Release():
				// Short tap: toggled on; the next press stops
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				state = stToggleRecording
			}
		case stToggleRecording:
			<-hk.Press()
			<-hk.Release()
			select {
			case h.stopCh <- struct{}{}:
			default:
			}
			state = stIdle
		default:
			state = stIdle
		}
	}
}
