// Package doctor runs interactive end-to-end diagnostics: engine bundle,
// hotkey, microphone, transcription, clipboard, and paste injection.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/johannes-stelzer/FreeWhisperKey/audio"
	"github.com/johannes-stelzer/FreeWhisperKey/clipboard"
	"github.com/johannes-stelzer/FreeWhisperKey/hotkey"
	"github.com/johannes-stelzer/FreeWhisperKey/recorder"
	"github.com/johannes-stelzer/FreeWhisperKey/securetmp"
	"github.com/johannes-stelzer/FreeWhisperKey/whisper"
)

// Run executes the checks in dependency order and returns an exit code
// (0 = all pass, 1 = any fail).
func Run(engineRoot string) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("freewhisperkey doctor - interactive system diagnostics")
	fmt.Println("======================================================")

	allPass := true
	bundle := checkBundle(engineRoot)
	if bundle == nil {
		allPass = false
	}
	if !checkHotkey() {
		allPass = false
	}
	if allPass && !checkMicAndTranscription(bundle) {
		allPass = false
	}
	if allPass && !checkClipboard() {
		allPass = false
	}
	if allPass && !checkPaste() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkBundle(engineRoot string) *whisper.Bundle {
	fmt.Println()
	fmt.Println("[1/5] Whisper engine bundle")

	bundle, err := whisper.ResolveBundle(engineRoot)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  Install whisper.cpp and place a ggml model under ~/.freewhisperkey/models")
		return nil
	}
	fmt.Printf("  engine: %s\n", bundle.Executable)
	model, err := bundle.Model("", "")
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return nil
	}
	fmt.Printf("  model:  %s\n", model)
	fmt.Println("  PASS: engine and model found")
	return bundle
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[2/5] Hotkey detection")
	fmt.Println("Press Ctrl+Shift+Space...")

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		if detail, derr := hotkey.Diagnose(); derr == nil {
			fmt.Printf("  %s\n", detail)
		}
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Press():
		fmt.Println("  PASS: hotkey detected")
		// Drain the release so it does not leak into the next check.
		select {
		case <-hk.Release():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicAndTranscription(bundle *whisper.Bundle) bool {
	fmt.Println()
	fmt.Println("[3/5] Microphone and transcription")

	reader := bufio.NewReader(os.Stdin)

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}

	var device *audio.DeviceInfo
	if len(devices) == 1 {
		device = &devices[0]
		fmt.Printf("Using device: %s\n", device.Name)
	} else {
		fmt.Println()
		fmt.Println("Select input device:")
		for i, d := range devices {
			fmt.Printf("  %d. %s\n", i+1, d.Name)
		}
		fmt.Printf("Choice [1-%d]: ", len(devices))

		choice, _ := reader.ReadString('\n')
		idx := 0
		fmt.Sscanf(strings.TrimSpace(choice), "%d", &idx)
		idx--
		if idx < 0 || idx >= len(devices) {
			fmt.Println("  FAIL: invalid choice")
			return false
		}
		device = &devices[idx]
		fmt.Printf("Selected: %s\n", device.Name)
	}

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	scratch, err := securetmp.NewScratchDir("freewhisperkey_doctor_")
	if err != nil {
		fmt.Printf("  FAIL: scratch dir: %v\n", err)
		return false
	}
	wavPath, err := securetmp.CreateFile(scratch, "recording", "wav")
	if err != nil {
		fmt.Printf("  FAIL: scratch file: %v\n", err)
		return false
	}
	defer func() {
		if err := securetmp.WipeAndRemove(wavPath); err != nil {
			fmt.Printf("  warning: cleanup: %v\n", err)
		}
	}()

	capture, err := ctx.NewCapture(device, audio.CaptureConfig{
		SampleRate: recorder.SampleRate,
		Channels:   recorder.Channels,
	})
	if err != nil {
		fmt.Printf("  FAIL: capture device: %v\n", err)
		return false
	}
	defer capture.Close()

	rec := recorder.New(capture, recorder.Granted{})
	if err := rec.Begin(wavPath); err != nil {
		fmt.Printf("  FAIL: recording start: %v\n", err)
		return false
	}
	fmt.Print("  Recording")
	for i := 0; i < 6; i++ {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	frames, err := rec.Stop()
	fmt.Println(" done")
	if err != nil {
		fmt.Printf("  FAIL: recording: %v\n", err)
		return false
	}
	if frames == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}
	fmt.Printf("  Recorded %.1fs, transcribing...\n", float64(frames)/recorder.SampleRate)

	model, err := bundle.Model("", "")
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	inv := whisper.NewInvoker(scratch)
	text, err := inv.Transcribe(context.Background(), whisper.Request{
		AudioPath:  wavPath,
		ModelPath:  model,
		Executable: bundle.Executable,
	})
	if err != nil {
		fmt.Printf("  FAIL: transcription: %v\n", err)
		return false
	}
	if strings.TrimSpace(text) == "" || text == "[BLANK_AUDIO]" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))
	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}
	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[4/5] Clipboard copy")

	testStr := fmt.Sprintf("freewhisperkey-doctor-%d", time.Now().UnixNano())

	type cbResult struct {
		readback string
		err      error
		phase    string
	}
	ch := make(chan cbResult, 1)
	go func() {
		if err := clipboard.Copy(testStr); err != nil {
			ch <- cbResult{err: err, phase: "write"}
			return
		}
		got, err := clipboard.Read()
		if err != nil {
			ch <- cbResult{err: err, phase: "read"}
			return
		}
		ch <- cbResult{readback: got}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			fmt.Printf("  FAIL: clipboard %s failed: %v\n", res.phase, res.err)
			return false
		}
		if res.readback != testStr {
			fmt.Printf("  FAIL: clipboard mismatch: wrote %q, got %q\n", testStr, res.readback)
			return false
		}
		fmt.Println("  PASS: clipboard write/read verified")
		return true
	case <-time.After(3 * time.Second):
		fmt.Println("  FAIL: clipboard timed out (clipboard tool hung?)")
		return false
	}
}

func checkPaste() bool {
	fmt.Println()
	fmt.Println("[5/5] Paste injection")

	if err := clipboard.Init(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		fmt.Println("  Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		return false
	}

	const want = "freewhisperkey"
	fmt.Println("Keep this terminal focused; the paste keystroke lands here.")
	fmt.Print("Press Enter to continue: ")
	bufio.NewReader(os.Stdin).ReadString('\n')

	go func() {
		time.Sleep(300 * time.Millisecond)
		clipboard.PasteText(want)
	}()

	lineCh := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		lineCh <- strings.TrimSpace(line)
	}()

	select {
	case got := <-lineCh:
		if got == want {
			fmt.Println("  PASS: paste keystroke verified")
			return true
		}
		fmt.Printf("  FAIL: expected %q, terminal received %q\n", want, got)
		return false
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: nothing arrived (press Enter after the pasted text)")
		return false
	}
}
