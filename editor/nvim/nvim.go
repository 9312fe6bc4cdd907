// Package nvimadapter binds a Neovim instance to the editor adapter
// contract. The adapter scopes text to the cursor line, reports
// geometry in screen cells, and receives editor notifications through
// an RPC bridge the companion plugin drives.
package nvimadapter

import (
	"github.com/neovim/go-client/nvim"

	"typeahead/editor"
	"typeahead/logger"
	"typeahead/types"
)

// EventMethod is the RPC method the plugin uses to relay editor
// notifications into the adapter.
const EventMethod = "typeahead_event"

// KeyMethod is the RPC method for key-down events. It is a request,
// not a notification, so the plugin learns whether the key was
// consumed and should be suppressed.
const KeyMethod = "typeahead_key"

// Adapter implements editor.Adapter over a Neovim RPC connection. Text
// before and after the caret covers the cursor line only; multi-line
// completion is not this system's concern.
type Adapter struct {
	client  *nvim.Nvim
	events  *editor.Events
	history *editor.History
}

// New binds the adapter to a connected client and registers the RPC
// bridge handlers.
func New(client *nvim.Nvim) (*Adapter, error) {
	a := &Adapter{
		client:  client,
		events:  editor.NewEvents(),
		history: editor.NewHistory(),
	}

	if err := client.RegisterHandler(EventMethod, a.handleEvent); err != nil {
		return nil, err
	}
	if err := client.RegisterHandler(KeyMethod, a.handleKey); err != nil {
		return nil, err
	}
	return a, nil
}

// handleEvent relays a plugin notification into the event registry.
func (a *Adapter) handleEvent(name string) {
	switch name {
	case "input":
		a.events.EmitInput()
	case "scroll":
		a.events.EmitScroll()
	case "resize":
		a.events.EmitResize()
	case "selection_change":
		a.events.EmitSelectionChange()
	case "focus":
		a.events.EmitFocus()
	case "blur":
		a.events.EmitBlur()
	default:
		logger.Debug("nvim: unknown event %q", name)
	}
}

// handleKey relays a key-down request and answers whether a listener
// consumed it.
func (a *Adapter) handleKey(key string, ctrl, alt, shift, meta bool) (bool, error) {
	ev := &editor.KeyEvent{Key: key, Ctrl: ctrl, Alt: alt, Shift: shift, Meta: meta}
	a.events.EmitKeyDown(ev)
	return ev.Handled, nil
}

// line reads the cursor line and position in one round trip. col is a
// byte offset into the line, row is 1-indexed.
func (a *Adapter) line() (line string, row, col int, ok bool) {
	batch := a.client.NewBatch()
	var cursor [2]int
	var raw []byte
	batch.WindowCursor(nvim.Window(0), &cursor)
	batch.CurrentLine(&raw)
	if err := batch.Execute(); err != nil {
		logger.Warn("nvim: reading cursor line: %v", err)
		return "", 0, 0, false
	}
	line = string(raw)
	row, col = cursor[0], cursor[1]
	if col > len(line) {
		col = len(line)
	}
	return line, row, col, true
}

// TextBeforeCaret implements editor.Adapter.
func (a *Adapter) TextBeforeCaret() string {
	line, _, col, ok := a.line()
	if !ok {
		return ""
	}
	return line[:col]
}

// TextAfterCaret implements editor.Adapter.
func (a *Adapter) TextAfterCaret() string {
	line, _, col, ok := a.line()
	if !ok {
		return ""
	}
	return line[col:]
}

// SetTextBeforeCaret implements editor.Adapter. The cursor line is
// rewritten and the cursor placed at the end of the new before-text.
func (a *Adapter) SetTextBeforeCaret(s string) {
	line, row, col, ok := a.line()
	if !ok {
		return
	}
	a.writeLine(line, s+line[col:], row, len(s))
}

// SetTextAfterCaret implements editor.Adapter. The cursor stays put.
func (a *Adapter) SetTextAfterCaret(s string) {
	line, row, col, ok := a.line()
	if !ok {
		return
	}
	a.writeLine(line, line[:col]+s, row, col)
}

// writeLine replaces the cursor line and places the cursor at col.
func (a *Adapter) writeLine(old, new string, row, col int) {
	batch := a.client.NewBatch()
	batch.SetBufferLines(nvim.Buffer(0), row-1, row, false, [][]byte{[]byte(new)})
	batch.SetWindowCursor(nvim.Window(0), [2]int{row, col})
	if err := batch.Execute(); err != nil {
		logger.Warn("nvim: writing cursor line: %v", err)
		return
	}
	a.history.Record(old, new)
}

// History returns the trail of engine-driven edits.
func (a *Adapter) History() *editor.History { return a.history }

// CaretPosition implements editor.Adapter. Geometry is in screen
// cells, one cell per unit.
func (a *Adapter) CaretPosition() types.Position {
	return a.CaretPositionAt(0)
}

// CaretPositionAt implements editor.Adapter.
func (a *Adapter) CaretPositionAt(offset int) types.Position {
	var pos [2]int
	err := a.client.ExecLua(`
		local off = ...
		local cur = vim.api.nvim_win_get_cursor(0)
		local col = math.max(1, cur[2] + 1 + off)
		local sp = vim.fn.screenpos(0, cur[1], col)
		return { sp.row, sp.col }
	`, &pos, offset)
	if err != nil {
		logger.Warn("nvim: screenpos: %v", err)
		return types.Position{}
	}

	left := float64(pos[1] - 1)
	top := float64(pos[0] - 1)
	return types.Position{Top: top, Left: left, Right: left + 1, Bottom: top + 1}
}

// EditorPosition implements editor.Adapter: the current window
// rectangle in screen cells.
func (a *Adapter) EditorPosition() types.Position {
	var rect [4]int
	err := a.client.ExecLua(`
		local pos = vim.api.nvim_win_get_position(0)
		local w = vim.api.nvim_win_get_width(0)
		local h = vim.api.nvim_win_get_height(0)
		return { pos[1], pos[2], w, h }
	`, &rect)
	if err != nil {
		logger.Warn("nvim: window geometry: %v", err)
		return types.Position{}
	}

	top := float64(rect[0])
	left := float64(rect[1])
	return types.Position{
		Top:    top,
		Left:   left,
		Right:  left + float64(rect[2]),
		Bottom: top + float64(rect[3]),
	}
}

// Focus implements editor.Adapter: Neovim keeps focus on the current
// window, so this is a no-op beyond ensuring the window is current.
func (a *Adapter) Focus() {
	if err := a.client.ExecLua(`vim.api.nvim_set_current_win(vim.api.nvim_get_current_win())`, nil); err != nil {
		logger.Debug("nvim: focus: %v", err)
	}
}

// Events implements editor.Adapter.
func (a *Adapter) Events() *editor.Events { return a.events }

// Destroy implements editor.Adapter. The RPC handlers die with the
// connection; only local state is dropped.
func (a *Adapter) Destroy() {
	a.history.Reset()
}
