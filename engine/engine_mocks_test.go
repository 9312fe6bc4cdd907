package engine

import (
	"sync"
	"time"

	"typeahead/editor"
	"typeahead/types"
)

// --- Mock implementations ---

// mockAdapter implements editor.Adapter over plain strings.
type mockAdapter struct {
	mu     sync.Mutex
	before string
	after  string
	caret  types.Position
	bounds types.Position
	events *editor.Events

	focusCalls   int
	destroyCalls int
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{
		caret:  types.Position{Top: 10, Left: 40, Right: 48, Bottom: 28},
		bounds: types.Position{Top: 0, Left: 0, Right: 400, Bottom: 200},
		events: editor.NewEvents(),
	}
}

func (a *mockAdapter) TextBeforeCaret() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.before
}

func (a *mockAdapter) SetTextBeforeCaret(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.before = s
}

func (a *mockAdapter) TextAfterCaret() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.after
}

func (a *mockAdapter) SetTextAfterCaret(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.after = s
}

func (a *mockAdapter) CaretPosition() types.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.caret
}

func (a *mockAdapter) CaretPositionAt(offset int) types.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.caret
	p.Left += float64(offset) * 8
	p.Right += float64(offset) * 8
	return p
}

func (a *mockAdapter) EditorPosition() types.Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bounds
}

func (a *mockAdapter) Focus() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.focusCalls++
}

func (a *mockAdapter) Events() *editor.Events { return a.events }

func (a *mockAdapter) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.destroyCalls++
}

// setText updates both sides of the caret without emitting anything.
func (a *mockAdapter) setText(before, after string) {
	a.mu.Lock()
	a.before = before
	a.after = after
	a.mu.Unlock()
}

// text returns the whole buffer content.
func (a *mockAdapter) text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.before + a.after
}

// --- Mock clock ---

type mockClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*mockTimer
}

type mockTimer struct {
	mu      sync.Mutex
	at      time.Duration
	f       func()
	stopped bool
}

func newMockClock() *mockClock {
	return &mockClock{}
}

func (c *mockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	t := &mockTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	c.mu.Unlock()
	return t
}

// Advance moves the clock forward and fires every due timer. Callbacks
// run outside the clock lock.
func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*mockTimer
	var rest []*mockTimer
	for _, t := range c.timers {
		if t.at <= c.now {
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	for _, t := range due {
		t.fire()
	}
}

func (t *mockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (t *mockTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	f := t.f
	t.mu.Unlock()
	if f != nil {
		f()
	}
}
