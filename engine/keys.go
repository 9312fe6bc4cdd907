package engine

import "typeahead/editor"

// handleKeyDown consumes the navigation keys while the engine is active
// and the manual trigger chord in any state. Everything else passes
// through unhandled.
func (e *Engine) handleKeyDown(ev *editor.KeyEvent) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}

	// Ctrl+Space is the manual trigger and works in any state.
	if (ev.Key == " " || ev.Key == "Space") && ev.Ctrl && !ev.Alt && !ev.Shift && !ev.Meta {
		e.requestLocked(actionMatch)
		ev.Handled = true
		e.mu.Unlock()
		return
	}

	if ev.Ctrl || ev.Alt || ev.Shift || ev.Meta {
		e.mu.Unlock()
		return
	}

	var accept bool
	switch ev.Key {
	case "Enter":
		if e.active && len(e.items) > 0 {
			accept = true
			ev.Handled = true
		}
	case "ArrowUp", "Up":
		if e.active && len(e.items) > 0 {
			e.setSelectedLocked(wrapIndex(e.selectedIndex-1, len(e.items)))
			ev.Handled = true
		}
	case "ArrowDown", "Down":
		if e.active && len(e.items) > 0 {
			e.setSelectedLocked(wrapIndex(e.selectedIndex+1, len(e.items)))
			ev.Handled = true
		}
	case "Escape", "Esc":
		if e.active {
			e.requestLocked(actionClear)
			ev.Handled = true
		}
	}

	obs, fields := e.takeDirtyLocked()
	e.mu.Unlock()
	flush(obs, fields)

	if accept {
		e.Accept()
	}
}
