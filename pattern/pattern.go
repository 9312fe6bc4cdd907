// Package pattern implements trigger detection around the caret.
//
// A Handler owns one trigger: two independent sub-patterns decide how
// much of the text before and after the caret belongs to the match, and
// the handler also owns fetching candidates for the matched text and
// accepting one. Handlers are registered with the engine in priority
// order; the first one that matches wins.
package pattern

import (
	"context"
	"regexp"
	"unicode"

	"typeahead/editor"
	"typeahead/types"
)

// SubPattern reports how many characters of text participate in a match,
// or -1 for no match. For the before-caret side the count runs backward
// from the end of the text; for the after-caret side it runs forward
// from the start.
type SubPattern func(text string) int

// FetchFunc produces candidate items for a matched trigger. It may block;
// the engine calls it off its loop with a deadline context and discards
// results that have been superseded.
type FetchFunc func(ctx context.Context, matched string) ([]types.Item, error)

// AcceptFunc applies a chosen item to the editor.
type AcceptFunc func(ad editor.Adapter, h *Handler, item types.Item)

// Handler is one trigger. Zero-value fields fall back to defaults:
// Before never matches, After matches zero characters iff the after-text
// is empty or starts with whitespace, Fetch yields no items, and Accept
// replaces the matched span with item.Text.
type Handler struct {
	Before SubPattern
	After  SubPattern
	Fetch  FetchFunc
	Accept AcceptFunc
}

// Trigger builds a Handler whose before-caret side is the given
// end-anchored expression and whose other behaviors are the defaults.
func Trigger(re *regexp.Regexp, group int) *Handler {
	return &Handler{Before: Suffix(re, group)}
}

// Suffix adapts a regular expression into a before-caret SubPattern: the
// expression is applied to the whole text and the length of the chosen
// capture group is the match length. The group must end at the end of
// the text, otherwise the sub-pattern fails; triggers are anchored with
// `$` in practice.
func Suffix(re *regexp.Regexp, group int) SubPattern {
	return func(text string) int {
		m := re.FindStringSubmatchIndex(text)
		if m == nil || 2*group+1 >= len(m) {
			return -1
		}
		start, end := m[2*group], m[2*group+1]
		if start < 0 || end != len(text) {
			return -1
		}
		return end - start
	}
}

// Prefix adapts a regular expression into an after-caret SubPattern. The
// chosen capture group must start at the beginning of the text.
func Prefix(re *regexp.Regexp, group int) SubPattern {
	return func(text string) int {
		m := re.FindStringSubmatchIndex(text)
		if m == nil || 2*group+1 >= len(m) {
			return -1
		}
		start, end := m[2*group], m[2*group+1]
		if start != 0 {
			return -1
		}
		return end - start
	}
}

// defaultAfter is the After fallback: an empty after-text or one that
// begins with whitespace contributes zero characters to the match.
func defaultAfter(text string) int {
	if text == "" {
		return 0
	}
	for _, r := range text {
		if unicode.IsSpace(r) {
			return 0
		}
		return -1
	}
	return 0
}

func (h *Handler) beforeLen(text string) int {
	if h.Before == nil {
		return -1
	}
	return h.Before(text)
}

func (h *Handler) afterLen(text string) int {
	if h.After == nil {
		return defaultAfter(text)
	}
	return h.After(text)
}

// spans evaluates both sub-patterns against the given caret-relative
// texts. ok is false when either side fails.
func (h *Handler) spans(before, after string) (lb, la int, ok bool) {
	lb = h.beforeLen(before)
	if lb < 0 || lb > len(before) {
		return 0, 0, false
	}
	la = h.afterLen(after)
	if la < 0 || la > len(after) {
		return 0, 0, false
	}
	return lb, la, true
}

// MatchText evaluates the handler against caret-relative texts and
// returns the matched text: the lb-character suffix of before joined
// with the la-character prefix of after.
func (h *Handler) MatchText(before, after string) (string, bool) {
	lb, la, ok := h.spans(before, after)
	if !ok {
		return "", false
	}
	return before[len(before)-lb:] + after[:la], true
}

// Match evaluates the handler against the adapter's live text.
func (h *Handler) Match(ad editor.Adapter) (string, bool) {
	return h.MatchText(ad.TextBeforeCaret(), ad.TextAfterCaret())
}

// Replace splices text over the currently matched span, leaving the
// caret at the end of the inserted text. It re-evaluates the
// sub-patterns against the live adapter state and does nothing,
// returning false, if the trigger is no longer present.
func (h *Handler) Replace(ad editor.Adapter, text string) bool {
	before := ad.TextBeforeCaret()
	after := ad.TextAfterCaret()
	lb, la, ok := h.spans(before, after)
	if !ok {
		return false
	}
	ad.SetTextBeforeCaret(before[:len(before)-lb] + text)
	ad.SetTextAfterCaret(after[la:])
	return true
}

// FetchItems returns candidates for the matched text, or no items when
// the handler has no fetch function.
func (h *Handler) FetchItems(ctx context.Context, matched string) ([]types.Item, error) {
	if h.Fetch == nil {
		return nil, nil
	}
	return h.Fetch(ctx, matched)
}

// AcceptItem applies the chosen item. The default replaces the matched
// span with item.Text.
func (h *Handler) AcceptItem(ad editor.Adapter, item types.Item) {
	if h.Accept != nil {
		h.Accept(ad, h, item)
		return
	}
	h.Replace(ad, item.Text)
}
