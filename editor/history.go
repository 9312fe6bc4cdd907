package editor

import (
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffEntry records one programmatic edit as the minimal changed span:
// the text that was replaced and the text that replaced it, with the
// common prefix and suffix stripped.
type DiffEntry struct {
	Original string
	Updated  string
}

// History accumulates the DiffEntry trail of engine-driven edits.
// Sources that send edit context to a remote service read it through
// Entries; everything else can ignore it.
type History struct {
	mu      sync.Mutex
	dmp     *diffmatchpatch.DiffMatchPatch
	entries []DiffEntry
	limit   int
}

// historyLimit caps the number of retained entries. Oldest entries are
// dropped first.
const historyLimit = 64

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{
		dmp:   diffmatchpatch.New(),
		limit: historyLimit,
	}
}

// Record stores the difference between old and new, if any. The common
// prefix and suffix are trimmed so the entry holds only the changed span.
func (h *History) Record(old, new string) {
	if old == new {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.dmp.DiffCommonPrefix(old, new)
	o, n := old[p:], new[p:]
	s := h.dmp.DiffCommonSuffix(o, n)

	h.entries = append(h.entries, DiffEntry{
		Original: o[:len(o)-s],
		Updated:  n[:len(n)-s],
	})
	if len(h.entries) > h.limit {
		h.entries = h.entries[len(h.entries)-h.limit:]
	}
}

// Entries returns a copy of the recorded entries, oldest first.
func (h *History) Entries() []DiffEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]DiffEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reset drops all recorded entries.
func (h *History) Reset() {
	h.mu.Lock()
	h.entries = nil
	h.mu.Unlock()
}
