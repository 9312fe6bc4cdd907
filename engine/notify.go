package engine

// Field names one observable engine state field. Observers receive the
// field whose value identity changed.
type Field int

const (
	FieldActive Field = iota
	FieldMatchedText
	FieldItems
	FieldSelectedIndex
	FieldCaretPosition
	FieldEditorPosition
	FieldError
	FieldLoading
)

// String returns a human-readable name for the field.
func (f Field) String() string {
	switch f {
	case FieldActive:
		return "active"
	case FieldMatchedText:
		return "matchedText"
	case FieldItems:
		return "items"
	case FieldSelectedIndex:
		return "selectedIndex"
	case FieldCaretPosition:
		return "caretPosition"
	case FieldEditorPosition:
		return "editorPosition"
	case FieldError:
		return "error"
	case FieldLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// ObserverFunc receives change notifications. Notifications are emitted
// after the mutating section returns, never from inside a setter, and
// only while at least one observer is registered.
type ObserverFunc func(Field)

// Subscribe registers an observer and returns its removal func.
func (e *Engine) Subscribe(fn ObserverFunc) func() {
	e.mu.Lock()
	id := e.nextObserver
	e.nextObserver++
	e.observers[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

// markLocked records a changed field for the post-mutation flush.
func (e *Engine) markLocked(f Field) {
	for _, d := range e.dirty {
		if d == f {
			return
		}
	}
	e.dirty = append(e.dirty, f)
}

// takeDirtyLocked snapshots and clears the pending notifications. The
// observer list is only materialized when something changed and someone
// is listening.
func (e *Engine) takeDirtyLocked() ([]ObserverFunc, []Field) {
	if len(e.dirty) == 0 || len(e.observers) == 0 {
		e.dirty = e.dirty[:0]
		return nil, nil
	}
	fields := make([]Field, len(e.dirty))
	copy(fields, e.dirty)
	e.dirty = e.dirty[:0]
	obs := make([]ObserverFunc, 0, len(e.observers))
	for _, fn := range e.observers {
		obs = append(obs, fn)
	}
	return obs, fields
}

// flush emits the snapshot taken by takeDirtyLocked. Called without the
// lock held.
func flush(obs []ObserverFunc, fields []Field) {
	for _, f := range fields {
		for _, fn := range obs {
			fn(f)
		}
	}
}
