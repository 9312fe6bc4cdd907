package editor

import (
	"sort"
	"sync"
)

// KeyEvent describes one key-down or key-up notification. Listeners that
// consume the key set Handled, which tells the binding to suppress the
// editor's default behavior for it.
type KeyEvent struct {
	// Key is the logical key name: "Enter", "Escape" or "Esc",
	// "ArrowUp" or "Up", "ArrowDown" or "Down", " " for space,
	// single characters for printable keys.
	Key string

	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool

	// Handled is set by a listener that consumed the key.
	Handled bool
}

// KeyFunc is a key event listener.
type KeyFunc func(ev *KeyEvent)

// Events is a typed callback registry for the closed set of adapter
// notifications. Dispatch is synchronous and runs listeners in
// registration order. Subscribing returns a removal func; removal during
// dispatch takes effect on the next emit.
type Events struct {
	mu     sync.Mutex
	nextID int

	keyDown         map[int]KeyFunc
	keyUp           map[int]KeyFunc
	input           map[int]func()
	scroll          map[int]func()
	resize          map[int]func()
	selectionChange map[int]func()
	focus           map[int]func()
	blur            map[int]func()
}

// NewEvents returns an empty registry.
func NewEvents() *Events {
	return &Events{
		keyDown:         make(map[int]KeyFunc),
		keyUp:           make(map[int]KeyFunc),
		input:           make(map[int]func()),
		scroll:          make(map[int]func()),
		resize:          make(map[int]func()),
		selectionChange: make(map[int]func()),
		focus:           make(map[int]func()),
		blur:            make(map[int]func()),
	}
}

func (e *Events) addKey(m map[int]KeyFunc, fn KeyFunc) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	m[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(m, id)
		e.mu.Unlock()
	}
}

func (e *Events) add(m map[int]func(), fn func()) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	m[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(m, id)
		e.mu.Unlock()
	}
}

func (e *Events) emitKey(m map[int]KeyFunc, ev *KeyEvent) {
	e.mu.Lock()
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]KeyFunc, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m[id])
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (e *Events) emit(m map[int]func()) {
	e.mu.Lock()
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m[id])
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// OnKeyDown subscribes to key-down notifications.
func (e *Events) OnKeyDown(fn KeyFunc) func() { return e.addKey(e.keyDown, fn) }

// OnKeyUp subscribes to key-up notifications.
func (e *Events) OnKeyUp(fn KeyFunc) func() { return e.addKey(e.keyUp, fn) }

// OnInput subscribes to text change notifications.
func (e *Events) OnInput(fn func()) func() { return e.add(e.input, fn) }

// OnScroll subscribes to scroll notifications.
func (e *Events) OnScroll(fn func()) func() { return e.add(e.scroll, fn) }

// OnResize subscribes to resize notifications.
func (e *Events) OnResize(fn func()) func() { return e.add(e.resize, fn) }

// OnSelectionChange subscribes to caret/selection move notifications.
func (e *Events) OnSelectionChange(fn func()) func() { return e.add(e.selectionChange, fn) }

// OnFocus subscribes to focus notifications.
func (e *Events) OnFocus(fn func()) func() { return e.add(e.focus, fn) }

// OnBlur subscribes to blur notifications.
func (e *Events) OnBlur(fn func()) func() { return e.add(e.blur, fn) }

// EmitKeyDown dispatches a key-down notification to all listeners.
func (e *Events) EmitKeyDown(ev *KeyEvent) { e.emitKey(e.keyDown, ev) }

// EmitKeyUp dispatches a key-up notification to all listeners.
func (e *Events) EmitKeyUp(ev *KeyEvent) { e.emitKey(e.keyUp, ev) }

// EmitInput dispatches a text change notification.
func (e *Events) EmitInput() { e.emit(e.input) }

// EmitScroll dispatches a scroll notification.
func (e *Events) EmitScroll() { e.emit(e.scroll) }

// EmitResize dispatches a resize notification.
func (e *Events) EmitResize() { e.emit(e.resize) }

// EmitSelectionChange dispatches a caret/selection move notification.
func (e *Events) EmitSelectionChange() { e.emit(e.selectionChange) }

// EmitFocus dispatches a focus notification.
func (e *Events) EmitFocus() { e.emit(e.focus) }

// EmitBlur dispatches a blur notification.
func (e *Events) EmitBlur() { e.emit(e.blur) }
