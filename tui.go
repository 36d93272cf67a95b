package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TUI message types
type RecordingStartMsg struct{}
type ProcessingMsg struct{}
type RecordingTickMsg struct{ Duration float64 }
type AudioLevelMsg struct{ Level float64 }
type TranscriptionMsg struct {
	Text     string
	Pasted   bool
	NoSpeech bool
}
type SessionErrorMsg struct{ Text string }
type ModeLineMsg struct{ Text string }   // engine/model info
type DeviceLineMsg struct{ Text string } // microphone device name
type HybridHelpMsg struct{ Enabled bool }
type tickMsg time.Time

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
	tuiStateProcessing
)

type tuiModel struct {
	state             tuiState
	frame             int
	recordingDuration float64
	audioLevel        float64
	peakLevel         float64
	msgCount          int
	width, height     int
	modeLine          string
	deviceLine        string
	hybridHelp        bool
	lastText          string
	lastPasted        bool
	noSpeech          bool
	errLine           string
}

var (
	tuiProgram   *tea.Program
	tuiMu        sync.Mutex
	tuiReady     = make(chan struct{})
	tuiReadyOnce sync.Once
)

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleProc    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleMode    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleHelpKey = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	styleMeter   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	styleMeterBg = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func NewTUIProgram() *tea.Program {
	return tea.NewProgram(tuiModel{}, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	tuiReadyOnce.Do(func() { close(tuiReady) })
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case RecordingStartMsg:
		m.state = tuiStateRecording
		m.recordingDuration = 0
		m.audioLevel = 0
		m.peakLevel = 0
		m.errLine = ""

	case ProcessingMsg:
		m.state = tuiStateProcessing
		m.audioLevel = 0

	case RecordingTickMsg:
		m.recordingDuration = msg.Duration

	case AudioLevelMsg:
		if m.state == tuiStateRecording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			if msg.Level > m.peakLevel {
				m.peakLevel = msg.Level
			}
		}

	case TranscriptionMsg:
		m.state = tuiStateIdle
		m.msgCount++
		m.lastText = msg.Text
		m.lastPasted = msg.Pasted
		m.noSpeech = msg.NoSpeech

	case SessionErrorMsg:
		m.state = tuiStateIdle
		m.errLine = msg.Text

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text

	case HybridHelpMsg:
		m.hybridHelp = msg.Enabled
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string

	switch m.state {
	case tuiStateRecording:
		lines = append(lines, styleRec.Render(fmt.Sprintf("● REC %.1fs", m.recordingDuration)))
		lines = append(lines, renderMeter(m.audioLevel, 30))
		if m.recordingDuration > 1.0 && m.peakLevel < 0.02 {
			lines = append(lines, styleWarn.Render("  ⚠ no voice detected"))
		}
	case tuiStateProcessing:
		spin := spinnerFrames[m.frame%len(spinnerFrames)]
		lines = append(lines, styleProc.Render(spin+" TRANSCRIBING"))
		lines = append(lines, "")
	default:
		lines = append(lines, styleIdle.Render("○ STANDBY"))
		lines = append(lines, "")
	}

	if m.modeLine != "" {
		lines = append(lines, styleMode.Render(m.modeLine))
	}
	if m.deviceLine != "" {
		lines = append(lines, styleDim.Render(m.deviceLine))
	}
	lines = append(lines, "")

	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}
	if m.errLine != "" {
		for _, l := range wrapText("Error: "+m.errLine, wrapWidth) {
			lines = append(lines, styleErr.Render(l))
		}
		lines = append(lines, "")
	}

	if m.lastText != "" {
		lines = append(lines, styleDim.Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount)))
		ts := styleText
		if m.noSpeech {
			ts = styleWarn
		}
		wrapped := wrapText(m.lastText, wrapWidth)
		for i, l := range wrapped {
			line := ts.Render(l)
			if i == len(wrapped)-1 && !m.noSpeech {
				if m.lastPasted {
					line += " " + styleOK.Render("[✓ pasted]")
				} else {
					line += " " + styleOK.Render("[✓ copied]")
				}
			}
			lines = append(lines, line)
		}
	} else {
		lines = append(lines, styleDim.Render("No transcriptions yet"))
	}
	lines = append(lines, "")

	help := styleHelpKey.Render("Ctrl+Shift+Space") + styleHelp.Render(" hold to dictate")
	if m.hybridHelp {
		help += styleHelp.Render(" (tap to toggle)")
	}
	lines = append(lines, help)
	lines = append(lines, styleHelp.Render("freewhisperkey "+version))

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}

// renderMeter draws a simple horizontal level bar; level is RMS in 0..1,
// scaled up since speech rarely exceeds 0.3 RMS.
func renderMeter(level float64, width int) string {
	scaled := level * 3
	if scaled > 1 {
		scaled = 1
	}
	filled := int(scaled * float64(width))
	return styleMeter.Render(strings.Repeat("█", filled)) +
		styleMeterBg.Render(strings.Repeat("░", width-filled))
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func wrapText(text string, width int) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			if len(cur)+1+len(w) > width {
				lines = append(lines, cur)
				cur = w
				continue
			}
			cur += " " + w
		}
		lines = append(lines, cur)
	}
	return lines
}
