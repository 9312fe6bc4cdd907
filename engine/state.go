package engine

import (
	"slices"

	"typeahead/types"
)

// ViewState is the derived render state. Sub-states of an active engine
// follow a fixed priority: error beats items, items beat loading.
type ViewState int

const (
	ViewInactive ViewState = iota
	ViewLoading
	ViewItems
	ViewError
	ViewBlank
)

// String returns a human-readable name for the view state.
func (s ViewState) String() string {
	switch s {
	case ViewInactive:
		return "Inactive"
	case ViewLoading:
		return "Loading"
	case ViewItems:
		return "Items"
	case ViewError:
		return "Error"
	case ViewBlank:
		return "Blank"
	default:
		return "Unknown"
	}
}

// action is the scheduled state transition requested for the next frame.
// Within one frame only the last requested action survives.
type action int

const (
	actionNone action = iota
	actionMatch
	actionClear
	actionUpdatePosition
)

func (e *Engine) setActiveLocked(v bool) {
	if e.active != v {
		e.active = v
		e.markLocked(FieldActive)
	}
}

func (e *Engine) setMatchedTextLocked(s string) {
	if e.matchedText != s {
		e.matchedText = s
		e.markLocked(FieldMatchedText)
	}
}

func (e *Engine) setItemsLocked(items []types.Item) {
	if !slices.Equal(e.items, items) {
		e.items = items
		e.markLocked(FieldItems)
	}
}

func (e *Engine) setSelectedLocked(n int) {
	if e.selectedIndex != n {
		e.selectedIndex = n
		e.markLocked(FieldSelectedIndex)
	}
}

func (e *Engine) setCaretPosLocked(p types.Position) {
	if e.caretPos != p {
		e.caretPos = p
		e.markLocked(FieldCaretPosition)
	}
}

func (e *Engine) setEditorPosLocked(p types.Position) {
	if e.editorPos != p {
		e.editorPos = p
		e.markLocked(FieldEditorPosition)
	}
}

func (e *Engine) setErrLocked(err error) {
	if e.err != err {
		e.err = err
		e.markLocked(FieldError)
	}
}

func (e *Engine) setLoadingLocked(v bool) {
	if e.loading != v {
		e.loading = v
		e.markLocked(FieldLoading)
	}
}

// wrapIndex maps n into [0, length-1] by modular wraparound, the
// documented selection policy. Empty item lists pin the index at -1.
func wrapIndex(n, length int) int {
	if length <= 0 {
		return -1
	}
	return ((n % length) + length) % length
}
