//go:build linux

package beep

import (
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

var (
	startCue []int16
	stopCue  []int16
	errorCue []int16
	cueOnce  sync.Once
)

func initCues() {
	startCue = tone(startFreq, 0.15, cueVolume, startDecay)
	stopCue = tone(stopFreq, 0.18, cueVolume, stopDecay)
	errorCue = doubleTone(errorFreq, 0.08, 0.05, errVolume, errorDecay)
}

// play opens a short-lived pulse playback stream, drains the cue, and
// tears the connection down. Cues are rare enough that a persistent
// stream is not worth keeping open.
func play(samples []int16) {
	if disabled || len(samples) == 0 {
		return
	}
	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}

func Init() {
	cueOnce.Do(initCues)
}

func PlayStart() {
	cueOnce.Do(initCues)
	go play(startCue)
}

func PlayStop() {
	cueOnce.Do(initCues)
	go play(stopCue)
}

func PlayError() {
	cueOnce.Do(initCues)
	go play(errorCue)
}
