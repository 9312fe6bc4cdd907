package editor

import (
	"strings"
	"sync"

	"typeahead/types"
)

// Metrics describes the monospace geometry model the TextArea uses to
// report caret rectangles.
type Metrics struct {
	CharWidth  float64
	LineHeight float64
}

// DefaultMetrics are plausible pixel metrics for a monospace font.
var DefaultMetrics = Metrics{CharWidth: 8, LineHeight: 18}

// TextArea is an in-memory Adapter. It models a plain multi-line input
// as the two caret-relative strings plus a monospace geometry model, and
// is the reference binding used by the engine tests and the local-source
// examples.
type TextArea struct {
	mu      sync.Mutex
	before  string
	after   string
	bounds  types.Position
	metrics Metrics
	focused bool
	events  *Events
	history *History
}

// NewTextArea returns an empty TextArea occupying bounds.
func NewTextArea(bounds types.Position) *TextArea {
	return &TextArea{
		bounds:  bounds,
		metrics: DefaultMetrics,
		events:  NewEvents(),
		history: NewHistory(),
	}
}

// SetMetrics overrides the geometry model.
func (t *TextArea) SetMetrics(m Metrics) {
	t.mu.Lock()
	t.metrics = m
	t.mu.Unlock()
}

// Events implements Adapter.
func (t *TextArea) Events() *Events { return t.events }

// TextBeforeCaret implements Adapter.
func (t *TextArea) TextBeforeCaret() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.before
}

// TextAfterCaret implements Adapter.
func (t *TextArea) TextAfterCaret() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.after
}

// SetTextBeforeCaret implements Adapter. The edit is recorded in the
// adapter's history.
func (t *TextArea) SetTextBeforeCaret(s string) {
	t.mu.Lock()
	old := t.before + t.after
	t.before = s
	t.history.Record(old, t.before+t.after)
	t.mu.Unlock()
}

// SetTextAfterCaret implements Adapter. The edit is recorded in the
// adapter's history.
func (t *TextArea) SetTextAfterCaret(s string) {
	t.mu.Lock()
	old := t.before + t.after
	t.after = s
	t.history.Record(old, t.before+t.after)
	t.mu.Unlock()
}

// Text returns the whole buffer content.
func (t *TextArea) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.before + t.after
}

// Caret returns the caret offset in characters from the start of the text.
func (t *TextArea) Caret() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.before)
}

// History returns the adapter's edit history.
func (t *TextArea) History() *History { return t.history }

// SetText replaces the whole content and places the caret at offset,
// clamped into the text. Emits a selectionChange notification.
func (t *TextArea) SetText(text string, caret int) {
	t.mu.Lock()
	if caret < 0 {
		caret = 0
	}
	if caret > len(text) {
		caret = len(text)
	}
	t.before = text[:caret]
	t.after = text[caret:]
	t.mu.Unlock()
	t.events.EmitSelectionChange()
}

// Type appends s at the caret as user input and emits an input
// notification, the way a real binding relays keystrokes.
func (t *TextArea) Type(s string) {
	t.mu.Lock()
	t.before += s
	t.mu.Unlock()
	t.events.EmitInput()
}

// MoveCaret places the caret at offset and emits selectionChange.
func (t *TextArea) MoveCaret(offset int) {
	t.mu.Lock()
	text := t.before + t.after
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	t.before = text[:offset]
	t.after = text[offset:]
	t.mu.Unlock()
	t.events.EmitSelectionChange()
}

// Focus implements Adapter.
func (t *TextArea) Focus() {
	t.mu.Lock()
	already := t.focused
	t.focused = true
	t.mu.Unlock()
	if !already {
		t.events.EmitFocus()
	}
}

// Blur removes focus and emits a blur notification.
func (t *TextArea) Blur() {
	t.mu.Lock()
	had := t.focused
	t.focused = false
	t.mu.Unlock()
	if had {
		t.events.EmitBlur()
	}
}

// Focused reports whether the TextArea currently has focus.
func (t *TextArea) Focused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.focused
}

// CaretPosition implements Adapter.
func (t *TextArea) CaretPosition() types.Position {
	return t.CaretPositionAt(0)
}

// CaretPositionAt implements Adapter.
func (t *TextArea) CaretPositionAt(offset int) types.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	text := t.before + t.after
	at := len(t.before) + offset
	if at < 0 {
		at = 0
	}
	if at > len(text) {
		at = len(text)
	}

	head := text[:at]
	row := strings.Count(head, "\n")
	col := at
	if i := strings.LastIndexByte(head, '\n'); i >= 0 {
		col = at - i - 1
	}

	left := t.bounds.Left + float64(col)*t.metrics.CharWidth
	top := t.bounds.Top + float64(row)*t.metrics.LineHeight
	return types.Position{
		Top:    top,
		Left:   left,
		Right:  left + t.metrics.CharWidth,
		Bottom: top + t.metrics.LineHeight,
	}
}

// EditorPosition implements Adapter.
func (t *TextArea) EditorPosition() types.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bounds
}

// SetBounds moves the editor rectangle and emits a resize notification.
func (t *TextArea) SetBounds(bounds types.Position) {
	t.mu.Lock()
	t.bounds = bounds
	t.mu.Unlock()
	t.events.EmitResize()
}

// Destroy implements Adapter. The TextArea holds no external resources;
// only the history is dropped.
func (t *TextArea) Destroy() {
	t.history.Reset()
}
