// Package editor defines the adapter contract every concrete editor
// binding implements, plus an in-memory reference implementation.
//
// An Adapter presents a text surface as two strings split at the caret.
// Writing either side replaces that side wholesale and collapses any
// selection onto the new caret. Geometry is reported in viewport pixels
// so that dropdown views can be placed without knowing the editor kind.
package editor

import "typeahead/types"

// Adapter is the uniform surface the engine drives. Implementations own
// their editor-specific listeners and release them in Destroy; Destroy
// never touches engine state.
//
// The setters are for engine-driven edits and must not emit input or
// selectionChange notifications: the engine calls them while holding
// its state lock, and a notification would re-enter it.
type Adapter interface {
	// TextBeforeCaret returns the text from the start of the input to
	// the caret.
	TextBeforeCaret() string
	// SetTextBeforeCaret replaces the text before the caret and leaves
	// the caret at the end of the new text.
	SetTextBeforeCaret(s string)

	// TextAfterCaret returns the text from the caret to the end of the
	// input.
	TextAfterCaret() string
	// SetTextAfterCaret replaces the text after the caret without moving
	// the caret.
	SetTextAfterCaret(s string)

	// CaretPosition returns the caret rectangle in viewport pixels.
	CaretPosition() types.Position
	// CaretPositionAt returns the caret rectangle as if the caret were
	// shifted by offset characters. Negative offsets move toward the
	// start of the text. Used to anchor dropdowns at the start of the
	// matched text rather than the live caret.
	CaretPositionAt(offset int) types.Position
	// EditorPosition returns the editor's visible-area bounding box.
	EditorPosition() types.Position

	// Focus moves input focus to the editor.
	Focus()

	// Events returns the adapter's notification registry. The registry
	// is owned by the adapter and stays valid until Destroy.
	Events() *Events

	// Destroy detaches the adapter's internal listeners.
	Destroy()
}
