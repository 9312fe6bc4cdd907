package editor

import (
	"testing"

	"typeahead/assert"
	"typeahead/types"
)

func testBounds() types.Position {
	return types.Position{Top: 0, Left: 0, Right: 400, Bottom: 200}
}

func TestTextAreaTyping(t *testing.T) {
	ta := NewTextArea(testBounds())

	inputs := 0
	ta.Events().OnInput(func() { inputs++ })

	ta.Type("hello")
	ta.Type(" @jo")

	assert.Equal(t, "hello @jo", ta.Text(), "text")
	assert.Equal(t, "hello @jo", ta.TextBeforeCaret(), "before caret")
	assert.Equal(t, "", ta.TextAfterCaret(), "after caret")
	assert.Equal(t, 9, ta.Caret(), "caret offset")
	assert.Equal(t, 2, inputs, "one input per Type")
}

func TestTextAreaSetTextClampsCaret(t *testing.T) {
	ta := NewTextArea(testBounds())

	selections := 0
	ta.Events().OnSelectionChange(func() { selections++ })

	ta.SetText("hello", 2)
	assert.Equal(t, "he", ta.TextBeforeCaret(), "before caret")
	assert.Equal(t, "llo", ta.TextAfterCaret(), "after caret")

	ta.SetText("hello", 99)
	assert.Equal(t, 5, ta.Caret(), "caret clamped to end")

	ta.SetText("hello", -3)
	assert.Equal(t, 0, ta.Caret(), "caret clamped to start")

	assert.Equal(t, 3, selections, "selectionChange per SetText")
}

func TestTextAreaMoveCaret(t *testing.T) {
	ta := NewTextArea(testBounds())
	ta.SetText("hello world", 0)

	ta.MoveCaret(5)
	assert.Equal(t, "hello", ta.TextBeforeCaret(), "before caret")
	assert.Equal(t, " world", ta.TextAfterCaret(), "after caret")

	ta.MoveCaret(99)
	assert.Equal(t, 11, ta.Caret(), "clamped to end")
}

func TestTextAreaProgrammaticSettersAreSilent(t *testing.T) {
	ta := NewTextArea(testBounds())
	ta.SetText("say @al", 7)

	fired := 0
	ta.Events().OnInput(func() { fired++ })
	ta.Events().OnSelectionChange(func() { fired++ })

	ta.SetTextBeforeCaret("say Alice")
	ta.SetTextAfterCaret(" rest")

	assert.Equal(t, 0, fired, "engine-driven edits emit nothing")
	assert.Equal(t, "say Alice rest", ta.Text(), "text")
}

func TestTextAreaFocusBlur(t *testing.T) {
	ta := NewTextArea(testBounds())

	focuses, blurs := 0, 0
	ta.Events().OnFocus(func() { focuses++ })
	ta.Events().OnBlur(func() { blurs++ })

	ta.Focus()
	ta.Focus()
	assert.True(t, ta.Focused(), "focused")
	assert.Equal(t, 1, focuses, "focus emitted once")

	ta.Blur()
	ta.Blur()
	assert.False(t, ta.Focused(), "blurred")
	assert.Equal(t, 1, blurs, "blur emitted once")
}

func TestTextAreaCaretGeometry(t *testing.T) {
	bounds := types.Position{Top: 10, Left: 20, Right: 420, Bottom: 210}
	ta := NewTextArea(bounds)
	ta.SetMetrics(Metrics{CharWidth: 10, LineHeight: 20})
	ta.SetText("ab\ncde", 6)

	// Caret after "cde" on the second line: col 3, row 1.
	got := ta.CaretPosition()
	want := types.Position{Top: 30, Left: 50, Right: 60, Bottom: 50}
	assert.Equal(t, want, got, "caret rectangle")

	// Anchored at the start of the matched text, two characters back.
	got = ta.CaretPositionAt(-2)
	want = types.Position{Top: 30, Left: 30, Right: 40, Bottom: 50}
	assert.Equal(t, want, got, "offset caret rectangle")

	assert.Equal(t, bounds, ta.EditorPosition(), "editor bounds")
}

func TestTextAreaCaretPositionAtClamps(t *testing.T) {
	ta := NewTextArea(testBounds())
	ta.SetText("abc", 3)

	assert.Equal(t, ta.CaretPositionAt(-99), ta.CaretPositionAt(-3), "clamped to text start")
	assert.Equal(t, ta.CaretPositionAt(99), ta.CaretPositionAt(0), "clamped to text end")
}

func TestTextAreaSetBounds(t *testing.T) {
	ta := NewTextArea(testBounds())

	resizes := 0
	ta.Events().OnResize(func() { resizes++ })

	moved := types.Position{Top: 50, Left: 60, Right: 460, Bottom: 250}
	ta.SetBounds(moved)

	assert.Equal(t, moved, ta.EditorPosition(), "bounds updated")
	assert.Equal(t, 1, resizes, "resize emitted")
}

func TestTextAreaHistoryRecordsEngineEdits(t *testing.T) {
	ta := NewTextArea(testBounds())
	ta.SetText("say @al", 7)

	ta.SetTextBeforeCaret("say Alice")

	entries := ta.History().Entries()
	assert.Equal(t, 1, len(entries), "one entry per edit")
	assert.Equal(t, "@al", entries[0].Original, "changed span original")
	assert.Equal(t, "Alice", entries[0].Updated, "changed span updated")

	ta.Destroy()
	assert.Equal(t, 0, len(ta.History().Entries()), "history dropped on destroy")
}
