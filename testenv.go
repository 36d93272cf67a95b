package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/johannes-stelzer/FreeWhisperKey/audio"
	"github.com/johannes-stelzer/FreeWhisperKey/beep"
	"github.com/johannes-stelzer/FreeWhisperKey/delivery"
	"github.com/johannes-stelzer/FreeWhisperKey/dictation"
	"github.com/johannes-stelzer/FreeWhisperKey/hotkey"
	"github.com/johannes-stelzer/FreeWhisperKey/log"
	"github.com/johannes-stelzer/FreeWhisperKey/recorder"
	"github.com/johannes-stelzer/FreeWhisperKey/securetmp"
	"github.com/johannes-stelzer/FreeWhisperKey/settings"
	"github.com/johannes-stelzer/FreeWhisperKey/whisper"
)

// testSink prints events as single parseable lines so a driving script can
// assert on them.
type testSink struct {
	delivered *atomic.Int32
}

func (testSink) RecordingStarted() { fmt.Println("EVENT recording_start") }
func (testSink) RecordingStopped() { fmt.Println("EVENT recording_stop") }
func (s testSink) Delivered(res delivery.Result) {
	s.delivered.Add(1)
	fmt.Printf("EVENT delivered %s %q\n", res.Action, res.Text)
}
func (testSink) NoSpeech()              { fmt.Println("EVENT no_speech") }
func (testSink) SessionError(err error) { fmt.Printf("EVENT error %v\n", err) }

// runTestMode replays a WAV file through the full pipeline, driven by
// commands on stdin: KEYDOWN, KEYUP, WAIT, SLEEP <ms>, QUIT.
// Set FREEWHISPERKEY_FAKE_TRANSCRIPT to bypass the engine binary.
func runTestMode(wavPath string, bundle *whisper.Bundle, modelPath string, st *settings.Settings) {
	beep.Disable()
	defer log.Close()

	fakeCtx, err := audio.NewFakeContext(wavPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}
	capture, err := fakeCtx.NewCapture(nil, audio.CaptureConfig{
		SampleRate: recorder.SampleRate,
		Channels:   recorder.Channels,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	scratch, err := securetmp.NewScratchDir("freewhisperkey_out_")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating scratch directory: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(scratch)

	var transcriber dictation.Transcriber
	if fake := os.Getenv("FREEWHISPERKEY_FAKE_TRANSCRIPT"); fake != "" {
		transcriber = whisper.NewFake(fake, nil)
	} else {
		transcriber = whisper.NewInvoker(scratch)
	}

	var delivered atomic.Int32
	ctrl := dictation.New(dictation.Config{
		Engine:         recorder.New(capture, recorder.Granted{}),
		Transcriber:    transcriber,
		Deliverer:      delivery.New(st.BreakInterval()),
		Clipboard:      pasteBoard{},
		Sink:           testSink{delivered: &delivered},
		DeliveryConfig: st.DeliveryConfig,
		ModelPath:      modelPath,
		Executable:     bundle.Executable,
	})

	hk := hotkey.NewFake()
	recordingDone := make(chan struct{}, 1)

	// Stdin driver in background -- sends hotkey events, handles WAIT/SLEEP/QUIT
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmd := strings.TrimSpace(scanner.Text())
			switch cmd {
			case "KEYDOWN":
				hk.SimPress()
			case "KEYUP":
				hk.SimRelease()
			case "WAIT":
				<-recordingDone
			case "QUIT":
				log.SessionEnd(int(delivered.Load()))
				os.Exit(0)
			default:
				if strings.HasPrefix(cmd, "SLEEP ") {
					if ms, err := strconv.Atoi(cmd[6:]); err == nil {
						time.Sleep(time.Duration(ms) * time.Millisecond)
					}
				}
			}
		}
		os.Exit(0)
	}()

	// Event loop -- same pattern as run()
	for {
		select {
		case <-hk.Press():
			ctrl.Press()
		case <-hk.Release():
			done := ctrl.Done()
			ctrl.Release()
			go func() {
				if done != nil {
					<-done
				}
				select {
				case recordingDone <- struct{}{}:
				default:
				}
			}()
		}
	}
}
