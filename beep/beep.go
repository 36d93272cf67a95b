// Package beep plays short audible cues so the user knows the recorder
// state without looking at the terminal.
package beep

import "math"

var disabled bool

// Disable turns all cues into no-ops. Used by headless test mode.
func Disable() { disabled = true }

const sampleRate = 44100

// Cue shapes. Start is a short high tick, stop is a lower tick, error is
// a low double-beep.
const (
	startFreq  = 1100.0
	stopFreq   = 800.0
	errorFreq  = 320.0
	cueVolume  = 0.5
	errVolume  = 0.6
	startDecay = 55.0
	stopDecay  = 38.0
	errorDecay = 28.0
)

// tone synthesizes a decaying sine as mono 16-bit samples.
func tone(freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / sampleRate
		env := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * env)
	}
	return samples
}

func doubleTone(freq, beepDur, gapDur, volume, decay float64) []int16 {
	one := tone(freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur))
	out := make([]int16, 0, 2*len(one)+len(gap))
	out = append(out, one...)
	out = append(out, gap...)
	out = append(out, one...)
	return out
}
