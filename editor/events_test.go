package editor

import (
	"testing"

	"typeahead/assert"
)

func TestEventsDispatchAndRemoval(t *testing.T) {
	ev := NewEvents()

	calls := 0
	remove := ev.OnInput(func() { calls++ })
	ev.OnInput(func() { calls++ })

	ev.EmitInput()
	assert.Equal(t, 2, calls, "both listeners run")

	remove()
	ev.EmitInput()
	assert.Equal(t, 3, calls, "removed listener skipped")

	remove() // removal funcs are idempotent
	ev.EmitInput()
	assert.Equal(t, 4, calls, "double removal is harmless")
}

func TestEventsKeyDispatchSharesEvent(t *testing.T) {
	ev := NewEvents()

	var sawHandled bool
	ev.OnKeyDown(func(e *KeyEvent) { e.Handled = true })
	ev.OnKeyDown(func(e *KeyEvent) { sawHandled = e.Handled })

	ke := &KeyEvent{Key: "Enter"}
	ev.EmitKeyDown(ke)

	assert.True(t, ke.Handled, "listener marks the event")
	assert.True(t, sawHandled, "later listeners see the mark")
}

func TestEventsChannelsAreIndependent(t *testing.T) {
	ev := NewEvents()

	var got []string
	ev.OnScroll(func() { got = append(got, "scroll") })
	ev.OnResize(func() { got = append(got, "resize") })
	ev.OnBlur(func() { got = append(got, "blur") })

	ev.EmitResize()
	assert.Equal(t, 1, len(got), "only resize listeners fired")
	assert.Equal(t, "resize", got[0], "resize listener fired")
}

func TestEventsEmitWithNoListeners(t *testing.T) {
	ev := NewEvents()
	ev.EmitInput()
	ev.EmitFocus()
	ev.EmitKeyUp(&KeyEvent{Key: "a"})
}
