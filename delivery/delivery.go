// Package delivery turns raw engine transcripts into a paste or copy action:
// newline/whitespace normalization, the blank-audio sentinel, the prepended
// space, and the automatic line break after a dictation pause.
package delivery

import (
	"strings"
	"time"
)

// BlankSentinel is what whisper.cpp emits for silence; it is never delivered.
const BlankSentinel = "[BLANK_AUDIO]"

// DefaultBreakInterval is the pause after which the next pasted transcript
// starts on a new line (when NewlineOnBreak is on).
const DefaultBreakInterval = 6 * time.Second

// Config is read-only to this package and constant for the duration of one
// Process call.
type Config struct {
	AutoPaste      bool
	PrependSpace   bool
	NewlineOnBreak bool
}

type Action int

const (
	ActionPaste Action = iota
	ActionCopy
)

func (a Action) String() string {
	if a == ActionPaste {
		return "paste"
	}
	return "copy"
}

// Result is the delivery decision for one transcript. Text carries the
// paste-prepared text for ActionPaste and the normalized text for ActionCopy.
type Result struct {
	Action Action
	Text   string
}

// Deliverer holds the per-process delivery state: the last transcript and
// the time of the last successful paste. Not safe for concurrent use; the
// single-session invariant upstream makes that a non-issue.
type Deliverer struct {
	breakInterval time.Duration
	now           func() time.Time

	lastTranscript string
	lastPasteAt    time.Time
	hasPasted      bool
}

func New(breakInterval time.Duration) *Deliverer {
	if breakInterval <= 0 {
		breakInterval = DefaultBreakInterval
	}
	return &Deliverer{breakInterval: breakInterval, now: time.Now}
}

// Normalize collapses newlines to spaces and runs of spaces to one, unless
// NewlineOnBreak is on — that feature manages line structure at paste time,
// so normalization leaves the text alone.
func Normalize(text string, cfg Config) string {
	if cfg.NewlineOnBreak {
		return text
	}
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	return text
}

// Process decides what to do with a transcript. Returns nil for blank audio
// (sentinel or empty after trimming); lastTranscript is only updated for a
// real delivery.
func (d *Deliverer) Process(text string, cfg Config) *Result {
	normalized := Normalize(text, cfg)
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" || trimmed == BlankSentinel {
		return nil
	}

	d.lastTranscript = normalized

	if !cfg.AutoPaste {
		return &Result{Action: ActionCopy, Text: normalized}
	}
	return &Result{Action: ActionPaste, Text: d.prepareForPaste(normalized, cfg)}
}

// prepareForPaste conditionally prepends a line break, then a space. Both
// conditions are decided against the incoming text; when both fire the
// break starts the new line and the space pads the text on that line.
func (d *Deliverer) prepareForPaste(text string, cfg Config) string {
	trimmed := strings.TrimSpace(text)

	addNewline := cfg.NewlineOnBreak &&
		d.hasPasted &&
		d.now().Sub(d.lastPasteAt) >= d.breakInterval &&
		!strings.HasPrefix(text, "\n") &&
		trimmed != ""

	addSpace := cfg.PrependSpace &&
		trimmed != "" &&
		!startsWithWhitespace(text)

	if addSpace {
		text = " " + text
	}
	if addNewline {
		text = "\n" + text
	}
	return text
}

// MarkPasteCompleted records the time of a paste that actually went through.
// Callers must not invoke it after a copy or a failed paste.
func (d *Deliverer) MarkPasteCompleted() {
	d.lastPasteAt = d.now()
	d.hasPasted = true
}

// ResetPasteHistory forgets the last paste time, so the next paste cannot
// receive an automatic line break.
func (d *Deliverer) ResetPasteHistory() {
	d.lastPasteAt = time.Time{}
	d.hasPasted = false
}

// LastTranscript returns the most recent delivered transcript, for re-copy.
func (d *Deliverer) LastTranscript() string {
	return d.lastTranscript
}

func startsWithWhitespace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[0] == '\t' || s[0] == '\n' || s[0] == '\r'
}
