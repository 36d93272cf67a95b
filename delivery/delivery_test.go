package delivery

import (
	"strings"
	"testing"
	"time"
)

// fixedClock lets tests advance time deterministically.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDeliverer() (*Deliverer, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	d := New(0)
	d.now = clock.now
	return d, clock
}

func TestNormalizeCollapsesNewlines(t *testing.T) {
	cfg := Config{NewlineOnBreak: false}
	for _, tt := range []struct{ name, input, want string }{
		{"newlines", "one\ntwo\nthree", "one two three"},
		{"crlf", "one\r\ntwo", "one two"},
		{"space runs", "one  two   three", "one two three"},
		{"newline makes run", "one \n two", "one two"},
		{"clean", "already clean", "already clean"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input, cfg)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if strings.Contains(got, "\n") || strings.Contains(got, "  ") {
				t.Errorf("output %q has newline or double space", got)
			}
		})
	}
}

func TestNormalizePassThroughWithBreaks(t *testing.T) {
	cfg := Config{NewlineOnBreak: true}
	input := "line one\nline two"
	if got := Normalize(input, cfg); got != input {
		t.Errorf("Normalize = %q, want unchanged input", got)
	}
}

func TestProcessBlankSentinel(t *testing.T) {
	d, _ := newTestDeliverer()
	d.lastTranscript = "earlier"

	for _, input := range []string{BlankSentinel, "  [BLANK_AUDIO]  ", "", "   ", "\n\n"} {
		if res := d.Process(input, Config{}); res != nil {
			t.Errorf("Process(%q) = %+v, want nil", input, res)
		}
	}
	if d.LastTranscript() != "earlier" {
		t.Error("blank input must not alter lastTranscript")
	}
}

func TestProcessCopy(t *testing.T) {
	d, _ := newTestDeliverer()

	res := d.Process("hello", Config{AutoPaste: false})
	if res == nil || res.Action != ActionCopy || res.Text != "hello" {
		t.Fatalf("got %+v, want Copy(hello)", res)
	}
	if d.LastTranscript() != "hello" {
		t.Errorf("lastTranscript = %q, want hello", d.LastTranscript())
	}
}

func TestProcessPastePrependsSpace(t *testing.T) {
	d, _ := newTestDeliverer()
	cfg := Config{AutoPaste: true, PrependSpace: true, NewlineOnBreak: false}

	res := d.Process("hi", cfg)
	if res == nil || res.Action != ActionPaste {
		t.Fatalf("got %+v, want Paste", res)
	}
	if res.Text != " hi" {
		t.Errorf("Text = %q, want %q", res.Text, " hi")
	}
}

func TestProcessNoSpaceWhenAlreadyWhitespace(t *testing.T) {
	d, _ := newTestDeliverer()
	cfg := Config{AutoPaste: true, PrependSpace: true, NewlineOnBreak: true}

	res := d.Process(" hi", cfg)
	if res.Text != " hi" {
		t.Errorf("Text = %q, should not double the leading space", res.Text)
	}
}

func TestNoNewlineWithoutPriorPaste(t *testing.T) {
	d, clock := newTestDeliverer()
	cfg := Config{AutoPaste: true, NewlineOnBreak: true}

	clock.advance(time.Hour) // elapsed time is irrelevant with no paste recorded
	res := d.Process("hi", cfg)
	if strings.HasPrefix(res.Text, "\n") {
		t.Errorf("Text = %q: first paste must never get an automatic newline", res.Text)
	}
}

func TestNewlineAfterBreakInterval(t *testing.T) {
	d, clock := newTestDeliverer()
	cfg := Config{AutoPaste: true, NewlineOnBreak: true}

	d.MarkPasteCompleted()
	clock.advance(6 * time.Second)

	res := d.Process("hi", cfg)
	if !strings.HasPrefix(res.Text, "\n") {
		t.Errorf("Text = %q, want newline prefix after break interval", res.Text)
	}
}

func TestNoNewlineWithinBreakInterval(t *testing.T) {
	d, clock := newTestDeliverer()
	cfg := Config{AutoPaste: true, NewlineOnBreak: true}

	d.MarkPasteCompleted()
	clock.advance(3 * time.Second)

	res := d.Process("hi", cfg)
	if strings.HasPrefix(res.Text, "\n") {
		t.Errorf("Text = %q, break interval not yet elapsed", res.Text)
	}
}

func TestNewlineThenSpaceOrder(t *testing.T) {
	d, clock := newTestDeliverer()
	cfg := Config{AutoPaste: true, PrependSpace: true, NewlineOnBreak: true}

	d.MarkPasteCompleted()
	clock.advance(10 * time.Second)

	res := d.Process("hi", cfg)
	if !strings.HasPrefix(res.Text, "\n ") {
		t.Errorf("Text = %q, want newline then space", res.Text)
	}
}

func TestNoNewlineWhenTextStartsWithNewline(t *testing.T) {
	d, clock := newTestDeliverer()
	cfg := Config{AutoPaste: true, NewlineOnBreak: true}

	d.MarkPasteCompleted()
	clock.advance(10 * time.Second)

	res := d.Process("\nhi", cfg)
	if strings.HasPrefix(res.Text, "\n\n") {
		t.Errorf("Text = %q, must not double the newline", res.Text)
	}
}

func TestResetPasteHistory(t *testing.T) {
	d, clock := newTestDeliverer()
	cfg := Config{AutoPaste: true, NewlineOnBreak: true}

	d.MarkPasteCompleted()
	clock.advance(time.Minute)
	d.ResetPasteHistory()

	res := d.Process("hi", cfg)
	if strings.HasPrefix(res.Text, "\n") {
		t.Errorf("Text = %q, reset history must disable the break", res.Text)
	}
}

func TestEngineNewlineCollapsed(t *testing.T) {
	// End-to-end shape: engine output with an embedded newline arrives as a
	// single line when NewlineOnBreak is off.
	d, _ := newTestDeliverer()
	cfg := Config{AutoPaste: false, NewlineOnBreak: false}

	res := d.Process("Testing\none two.", cfg)
	if res.Text != "Testing one two." {
		t.Errorf("Text = %q, want %q", res.Text, "Testing one two.")
	}
}
