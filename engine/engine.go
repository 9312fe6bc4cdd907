// Package engine coordinates trigger matching, candidate fetching, and
// render state for one editor adapter.
//
// All externally triggered transitions are requested, not applied: the
// request is coalesced to at most one application per frame interval,
// and within a frame only the last request survives. Candidate fetches
// run off the loop; a generation counter decides which fetch is
// authoritative, so a stale fetch can never clobber a newer one no
// matter the order results arrive in.
package engine

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	"typeahead/editor"
	"typeahead/logger"
	"typeahead/pattern"
	"typeahead/types"
)

// Config holds engine tuning knobs.
type Config struct {
	// FrameInterval is the coalescing window for scheduled actions.
	FrameInterval time.Duration
	// FetchTimeout bounds each candidate fetch.
	FetchTimeout time.Duration
}

const (
	defaultFrameInterval = 16 * time.Millisecond
	defaultFetchTimeout  = 5 * time.Second
)

// Engine owns the autocomplete state for one adapter. View bindings read
// it through the getters and drive it through Match, Clear,
// UpdatePosition, Accept, Replace, and SetSelectedIndex.
type Engine struct {
	adapter  editor.Adapter
	handlers []*pattern.Handler
	config   Config
	clock    Clock

	mu sync.RWMutex

	// Observable state. Inactive is a single canonical snapshot: when
	// active is false every other field here holds its zero default.
	active        bool
	matchedText   string
	items         []types.Item
	selectedIndex int
	caretPos      types.Position
	editorPos     types.Position
	err           error
	loading       bool

	// activeHandler is the handler that produced the current match.
	activeHandler *pattern.Handler

	pending    action
	frameTimer Timer

	fetchGen    uint64
	fetchCancel context.CancelFunc

	eventChan  chan Event
	mainCtx    context.Context
	mainCancel context.CancelFunc
	stopped    bool
	stopOnce   sync.Once

	observers    map[int]ObserverFunc
	nextObserver int
	dirty        []Field

	detach []func()

	loopRestarts int
}

// New creates an engine bound to one adapter and an ordered handler
// list. The first handler that matches wins; registration order is a
// load-bearing priority contract. A nil clock selects the system clock.
// Passing a nil adapter or no handlers is integration misuse and fails.
func New(adapter editor.Adapter, handlers []*pattern.Handler, config Config, clock Clock) (*Engine, error) {
	if adapter == nil {
		return nil, errors.New("engine: nil adapter")
	}
	if len(handlers) == 0 {
		return nil, errors.New("engine: no pattern handlers")
	}
	if config.FrameInterval <= 0 {
		config.FrameInterval = defaultFrameInterval
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaultFetchTimeout
	}
	if clock == nil {
		clock = SystemClock()
	}

	return &Engine{
		adapter:       adapter,
		handlers:      handlers,
		config:        config,
		clock:         clock,
		selectedIndex: -1,
		eventChan:     make(chan Event, 64),
		observers:     make(map[int]ObserverFunc),
	}, nil
}

// Adapter returns the adapter the engine is bound to. The engine never
// destroys it.
func (e *Engine) Adapter() editor.Adapter { return e.adapter }

// Start wires the adapter's events and runs the engine loop until ctx
// is cancelled or Destroy is called.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.stopped || e.mainCtx != nil {
		e.mu.Unlock()
		return
	}
	e.mainCtx, e.mainCancel = context.WithCancel(ctx)
	e.mu.Unlock()

	e.attachAdapter()
	go e.eventLoop(e.mainCtx)
	logger.Debug("engine started")
}

// attachAdapter subscribes the engine to the adapter's notifications.
func (e *Engine) attachAdapter() {
	ev := e.adapter.Events()
	e.detach = append(e.detach,
		ev.OnKeyDown(e.handleKeyDown),
		ev.OnInput(e.Match),
		ev.OnScroll(e.UpdatePosition),
		ev.OnResize(e.UpdatePosition),
		ev.OnSelectionChange(e.handleSelectionChange),
		ev.OnBlur(e.Clear),
	)
}

// Destroy detaches all listeners and resets the engine to the inactive
// snapshot. Safe to call once; engine methods no-op afterwards. The
// adapter is left alive for its owner to destroy.
func (e *Engine) Destroy() {
	e.stopOnce.Do(func() {
		for _, d := range e.detach {
			d()
		}
		e.detach = nil

		e.mu.Lock()
		e.stopped = true
		if e.frameTimer != nil {
			e.frameTimer.Stop()
			e.frameTimer = nil
		}
		e.pending = actionNone
		if e.mainCancel != nil {
			e.mainCancel()
		}
		e.clearNowLocked()
		obs, fields := e.takeDirtyLocked()
		e.mu.Unlock()

		flush(obs, fields)
		logger.Debug("engine destroyed")
	})
}

const maxLoopRestarts = 3

func (e *Engine) eventLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.loopRestarts++
			logger.Error("engine loop panic [%d/%d]: %v\n%s",
				e.loopRestarts, maxLoopRestarts, r, debug.Stack())
			if e.loopRestarts < maxLoopRestarts {
				e.eventLoop(ctx)
			} else {
				logger.Error("max loop restarts reached, destroying engine")
				go e.Destroy()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-e.eventChan:
			e.mu.RLock()
			stopped := e.stopped
			e.mu.RUnlock()
			if stopped {
				return
			}
			e.handleEvent(event)
		}
	}
}

func (e *Engine) handleEvent(event Event) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}

	switch event.Type {
	case EventFrame:
		e.frameTimer = nil
		act := e.pending
		e.pending = actionNone
		switch act {
		case actionMatch:
			e.matchNowLocked()
		case actionClear:
			e.clearNowLocked()
		case actionUpdatePosition:
			e.updatePositionNowLocked()
		}
	case EventFetchReady, EventFetchError:
		e.handleFetchResultLocked(event.Data.(fetchResult))
	}

	obs, fields := e.takeDirtyLocked()
	e.mu.Unlock()
	flush(obs, fields)
}

// post delivers an event to the loop unless the engine is shutting down.
func (e *Engine) post(event Event) {
	e.mu.RLock()
	ctx := e.mainCtx
	e.mu.RUnlock()
	if ctx == nil {
		return
	}
	select {
	case e.eventChan <- event:
	case <-ctx.Done():
	}
}

// requestLocked records a pending action (last request wins within the
// frame) and arms the frame timer if none is armed. Requests before
// Start are ignored: a timer armed then would fire into a nil loop
// context, and the dropped frame would leave the timer field set so no
// later request could ever arm one.
func (e *Engine) requestLocked(a action) {
	if e.stopped || e.mainCtx == nil {
		return
	}
	e.pending = a
	if e.frameTimer == nil {
		e.frameTimer = e.clock.AfterFunc(e.config.FrameInterval, func() {
			e.post(Event{Type: EventFrame})
		})
	}
}

// Match requests a match cycle before the next frame.
func (e *Engine) Match() {
	e.mu.Lock()
	e.requestLocked(actionMatch)
	e.mu.Unlock()
}

// Clear requests a reset to the inactive snapshot before the next frame.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.requestLocked(actionClear)
	e.mu.Unlock()
}

// UpdatePosition requests a geometry refresh before the next frame.
func (e *Engine) UpdatePosition() {
	e.mu.Lock()
	e.requestLocked(actionUpdatePosition)
	e.mu.Unlock()
}

// handleSelectionChange clears on caret moves, except when a match is
// already pending this frame: the caret move then belongs to the edit
// that requested the match.
func (e *Engine) handleSelectionChange() {
	e.mu.Lock()
	if e.pending != actionMatch {
		e.requestLocked(actionClear)
	}
	e.mu.Unlock()
}

// matchNowLocked runs one match cycle: evaluate handlers in priority
// order, snapshot geometry, and issue the fetch for the matched text.
func (e *Engine) matchNowLocked() {
	before := e.adapter.TextBeforeCaret()
	after := e.adapter.TextAfterCaret()

	var handler *pattern.Handler
	var matched string
	for _, h := range e.handlers {
		if m, ok := h.MatchText(before, after); ok {
			handler, matched = h, m
			break
		}
	}
	if handler == nil {
		e.clearNowLocked()
		return
	}

	e.activeHandler = handler
	e.setActiveLocked(true)
	e.setMatchedTextLocked(matched)
	e.setCaretPosLocked(e.adapter.CaretPosition())
	e.setEditorPosLocked(e.adapter.EditorPosition())

	e.issueFetchLocked(handler, matched)
}

// issueFetchLocked starts the fetch for the current match. The previous
// fetch, if any, loses authority: its context is cancelled best-effort
// and its generation is superseded.
func (e *Engine) issueFetchLocked(handler *pattern.Handler, matched string) {
	e.fetchGen++
	gen := e.fetchGen
	if e.fetchCancel != nil {
		e.fetchCancel()
	}

	parent := e.mainCtx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, e.config.FetchTimeout)
	e.fetchCancel = cancel
	e.setLoadingLocked(true)

	go func() {
		defer cancel()
		items, err := handler.FetchItems(ctx, matched)
		if err != nil {
			e.post(Event{Type: EventFetchError, Data: fetchResult{gen: gen, err: err}})
			return
		}
		e.post(Event{Type: EventFetchReady, Data: fetchResult{gen: gen, items: items}})
	}()
}

// handleFetchResultLocked applies a fetch settlement if it is still
// authoritative. Only recency of issuance matters, not settlement order.
func (e *Engine) handleFetchResultLocked(res fetchResult) {
	if res.gen != e.fetchGen {
		logger.Debug("discarding superseded fetch (gen %d, current %d)", res.gen, e.fetchGen)
		return
	}
	if !e.active {
		return
	}

	if res.err != nil {
		logger.Debug("fetch failed for %q: %v", e.matchedText, res.err)
		e.setItemsLocked([]types.Item{})
		e.setSelectedLocked(-1)
		e.setErrLocked(res.err)
		e.setLoadingLocked(false)
		return
	}

	items := res.items
	if items == nil {
		items = []types.Item{}
	}
	e.setItemsLocked(items)
	if len(items) > 0 {
		e.setSelectedLocked(0)
	} else {
		e.setSelectedLocked(-1)
	}
	e.setErrLocked(nil)
	e.setLoadingLocked(false)
}

// clearNowLocked resets to the canonical inactive snapshot and revokes
// any outstanding fetch's authority.
func (e *Engine) clearNowLocked() {
	e.fetchGen++
	if e.fetchCancel != nil {
		e.fetchCancel()
		e.fetchCancel = nil
	}
	e.activeHandler = nil
	e.setActiveLocked(false)
	e.setMatchedTextLocked("")
	e.setItemsLocked(nil)
	e.setSelectedLocked(-1)
	e.setCaretPosLocked(types.Position{})
	e.setEditorPosLocked(types.Position{})
	e.setErrLocked(nil)
	e.setLoadingLocked(false)
}

// updatePositionNowLocked refreshes geometry from the adapter. No-op
// while inactive.
func (e *Engine) updatePositionNowLocked() {
	if !e.active {
		return
	}
	e.setCaretPosLocked(e.adapter.CaretPosition())
	e.setEditorPosLocked(e.adapter.EditorPosition())
}

// Accept applies the selected item: focus the editor, let the matched
// handler splice the item in, then clear and re-focus. The double focus
// brackets the replace so the editor keeps focus and a visible caret
// even if the replacement reflows the surface. No-op without an active
// selection.
func (e *Engine) Accept() {
	e.mu.Lock()
	if e.stopped || !e.active || e.selectedIndex < 0 || e.selectedIndex >= len(e.items) {
		e.mu.Unlock()
		return
	}
	item := e.items[e.selectedIndex]
	handler := e.activeHandler
	e.adapter.Focus()
	handler.AcceptItem(e.adapter, item)
	e.clearNowLocked()
	e.adapter.Focus()
	obs, fields := e.takeDirtyLocked()
	e.mu.Unlock()
	flush(obs, fields)
}

// Replace splices text over the current match span, re-running the
// matcher against the live adapter text. Does nothing when the trigger
// has been edited away.
func (e *Engine) Replace(text string) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	handlers := e.handlers
	e.mu.Unlock()

	for _, h := range handlers {
		if _, ok := h.Match(e.adapter); ok {
			h.Replace(e.adapter, text)
			return
		}
	}
}

// Active reports whether a trigger is currently matched.
func (e *Engine) Active() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active
}

// MatchedText returns the trigger text recognized at match time.
func (e *Engine) MatchedText() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.matchedText
}

// Items returns a snapshot of the current candidates.
func (e *Engine) Items() []types.Item {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Item, len(e.items))
	copy(out, e.items)
	return out
}

// SelectedIndex returns the highlighted candidate index, -1 when there
// are no candidates.
func (e *Engine) SelectedIndex() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.selectedIndex
}

// SetSelectedIndex moves the highlight, wrapping modularly into the
// item range. Forced to -1 while the item list is empty.
func (e *Engine) SetSelectedIndex(n int) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.setSelectedLocked(wrapIndex(n, len(e.items)))
	obs, fields := e.takeDirtyLocked()
	e.mu.Unlock()
	flush(obs, fields)
}

// CaretPosition returns the caret geometry captured at match time, or
// refreshed by the last position update.
func (e *Engine) CaretPosition() types.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.caretPos
}

// EditorPosition returns the editor bounding box captured at match time,
// or refreshed by the last position update.
func (e *Engine) EditorPosition() types.Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.editorPos
}

// Err returns the last fetch failure. Cleared by the next successful
// fetch and by clears.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Loading reports whether an authoritative fetch is outstanding.
func (e *Engine) Loading() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loading
}

// View returns the derived render state: error beats items, items beat
// loading.
func (e *Engine) View() ViewState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case !e.active:
		return ViewInactive
	case e.err != nil:
		return ViewError
	case len(e.items) > 0:
		return ViewItems
	case e.loading:
		return ViewLoading
	default:
		return ViewBlank
	}
}
