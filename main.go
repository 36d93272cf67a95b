package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/johannes-stelzer/FreeWhisperKey/audio"
	"github.com/johannes-stelzer/FreeWhisperKey/beep"
	"github.com/johannes-stelzer/FreeWhisperKey/clipboard"
	"github.com/johannes-stelzer/FreeWhisperKey/delivery"
	"github.com/johannes-stelzer/FreeWhisperKey/dictation"
	"github.com/johannes-stelzer/FreeWhisperKey/doctor"
	"github.com/johannes-stelzer/FreeWhisperKey/hotkey"
	"github.com/johannes-stelzer/FreeWhisperKey/log"
	"github.com/johannes-stelzer/FreeWhisperKey/recorder"
	"github.com/johannes-stelzer/FreeWhisperKey/securetmp"
	"github.com/johannes-stelzer/FreeWhisperKey/settings"
	"github.com/johannes-stelzer/FreeWhisperKey/shutdown"
	"github.com/johannes-stelzer/FreeWhisperKey/whisper"
)

var version = "dev"

var autoPaste bool

var (
	shutdownOnce  sync.Once
	outputScratch string
)

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		log.Close()
		if outputScratch != "" {
			os.RemoveAll(outputScratch)
		}
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func deviceLineText(dev *audio.DeviceInfo) string {
	name := "system default"
	if dev != nil {
		name = dev.Name
	}
	return "mic: " + name
}

func modeLineText(bundle *whisper.Bundle, modelPath string) string {
	return fmt.Sprintf("[%s | %s]",
		filepath.Base(bundle.Executable), filepath.Base(modelPath))
}

// pasteBoard adapts the clipboard package to the controller's interface.
type pasteBoard struct{}

func (pasteBoard) Paste(text string) error { return clipboard.PasteText(text) }
func (pasteBoard) Copy(text string) error  { return clipboard.Copy(text) }

// uiSink fans controller events out to the TUI and the audio cues. It also
// owns the per-recording duration ticker.
type uiSink struct {
	mu     sync.Mutex
	stopCh chan struct{}
}

func (s *uiSink) RecordingStarted() {
	go beep.PlayStart()
	tuiSend(RecordingStartMsg{})

	s.mu.Lock()
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	go func() {
		start := time.Now()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				tuiSend(RecordingTickMsg{Duration: time.Since(start).Seconds()})
			}
		}
	}()
}

func (s *uiSink) stopTicker() {
	s.mu.Lock()
	if s.stopCh != nil {
		close(s.stopCh)
		s.stopCh = nil
	}
	s.mu.Unlock()
}

func (s *uiSink) RecordingStopped() {
	s.stopTicker()
	go beep.PlayStop()
	tuiSend(ProcessingMsg{})
}

func (s *uiSink) Delivered(res delivery.Result) {
	tuiSend(TranscriptionMsg{Text: res.Text, Pasted: res.Action == delivery.ActionPaste})
}

func (s *uiSink) NoSpeech() {
	tuiSend(TranscriptionMsg{Text: "(no speech detected)", NoSpeech: true})
}

func (s *uiSink) SessionError(err error) {
	s.stopTicker()
	go beep.PlayError()
	log.Errorf("session error: %v", err)
	tuiSend(SessionErrorMsg{Text: err.Error()})
}

func run() {
	autoPasteFlag := flag.Bool("autopaste", true, "Auto-paste to focused window after transcription")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	modelFlag := flag.String("model", "", "Whisper model name or path (overrides saved setting)")
	engineFlag := flag.String("engine", "", "Directory containing the whisper engine and models")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	hybridFlag := flag.Bool("hybrid", false, "Enable hybrid tap+hold recording mode")
	longPressFlag := flag.Duration("longpress", 350*time.Millisecond, "Long-press threshold for push-to-talk vs tap (e.g., 350ms)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *versionFlag {
		fmt.Printf("freewhisperkey %s\n", version)
		os.Exit(0)
	}

	if *doctorFlag {
		os.Exit(doctor.Run(*engineFlag))
	}

	st, err := settings.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load settings: %v\n", err)
		st = settings.Default()
	}
	autoPaste = st.AutoPaste
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "autopaste" {
			autoPaste = *autoPasteFlag
		}
	})
	selectedModel := st.SelectedModel
	if *modelFlag != "" {
		selectedModel = *modelFlag
	}

	// Headless test runs with a canned transcript skip the engine lookup.
	bundle := &whisper.Bundle{}
	var modelPath string
	if !*testFlag || os.Getenv("FREEWHISPERKEY_FAKE_TRANSCRIPT") == "" {
		bundle, err = whisper.ResolveBundle(*engineFlag)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			fmt.Println("Install whisper.cpp and place a ggml model under ~/.freewhisperkey/models")
			os.Exit(1)
		}
		modelPath, err = bundle.Model(selectedModel, st.CustomModelPath)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Resolve -setup into -device early (before daemonization)
	if *setupFlag && *deviceFlag == "" {
		ctx, err := audio.NewContext()
		if err != nil {
			fmt.Printf("Error initializing audio: %v\n", err)
			os.Exit(1)
		}
		if dev, _ := audio.SelectDevice(ctx); dev != nil {
			*deviceFlag = dev.Name
		}
		ctx.Close()
	}

	// Daemonize in non-TUI mode: re-exec in background, return shell prompt
	if !*tuiFlag && !*testFlag && os.Getenv("_FREEWHISPERKEY_BG") == "" {
		args := os.Args[1:]
		if *deviceFlag != "" {
			args = append(args, "-device", *deviceFlag)
		}
		exe, _ := os.Executable()
		cmd := exec.Command(exe, args...)
		cmd.Env = append(os.Environ(), "_FREEWHISPERKEY_BG=1")
		devnull, _ := os.Open(os.DevNull)
		cmd.Stdin, cmd.Stdout, cmd.Stderr = devnull, devnull, devnull
		if err := cmd.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	} else {
		log.SessionStart(filepath.Base(bundle.Executable), filepath.Base(modelPath))
	}

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: freewhisperkey -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(args[0], bundle, modelPath, st)
		return
	}

	if autoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Printf("Warning: paste init failed: %v\n", err)
			fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureDevice, err := ctx.NewCapture(selectedDevice, audio.CaptureConfig{
		SampleRate: recorder.SampleRate,
		Channels:   recorder.Channels,
	})
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer captureDevice.Close()

	outputScratch, err = securetmp.NewScratchDir("freewhisperkey_out_")
	if err != nil {
		log.Errorf("scratch dir init error: %v", err)
		fmt.Printf("Error creating scratch directory: %v\n", err)
		os.Exit(1)
	}

	rec := recorder.New(captureDevice, recorder.Granted{})
	rec.SetLevelHandler(func(level float64) {
		tuiSend(AudioLevelMsg{Level: level})
	})

	sink := &uiSink{}
	ctrl := dictation.New(dictation.Config{
		Engine:      rec,
		Transcriber: whisper.NewInvoker(outputScratch),
		Deliverer:   delivery.New(st.BreakInterval()),
		Clipboard:   pasteBoard{},
		Sink:        sink,
		DeliveryConfig: func() delivery.Config {
			cfg := st.DeliveryConfig()
			cfg.AutoPaste = autoPaste
			return cfg
		},
		ModelPath:  modelPath,
		Executable: bundle.Executable,
	})

	if !*tuiFlag {
		tuiReadyOnce.Do(func() { close(tuiReady) })
	} else {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown()
		}()

		<-tuiReady
	}

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	go beep.Init()

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	tuiSend(ModeLineMsg{Text: modeLineText(bundle, modelPath)})
	tuiSend(DeviceLineMsg{Text: deviceLineText(selectedDevice)})
	tuiSend(HybridHelpMsg{Enabled: *hybridFlag})

	log.Info("recording_device: " + captureDevice.DeviceName())

	if *hybridFlag {
		hy := hotkey.NewHybrid(hk, *longPressFlag)
		for {
			select {
			case ev := <-hy.Start():
				log.Info("hotkey_start_" + string(ev.Mode))
				ctrl.Press()
			case <-hy.StopChan():
				ctrl.Release()
			}
		}
	} else {
		for {
			select {
			case <-hk.Press():
				log.Info("hotkey_down")
				ctrl.Press()
			case <-hk.Release():
				ctrl.Release()
			}
		}
	}
}
