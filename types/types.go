// Package types holds the plain value types shared between the engine,
// editor adapters, and item sources.
package types

// Position is a rectangle in viewport pixel coordinates. Editor adapters
// report the caret and the editor's visible area with it.
type Position struct {
	Top    float64
	Left   float64
	Right  float64
	Bottom float64
}

// IsZero reports whether p is the degenerate all-zero rectangle, the
// default geometry of an inactive engine.
func (p Position) IsZero() bool {
	return p.Top == 0 && p.Left == 0 && p.Right == 0 && p.Bottom == 0
}

// Width returns the horizontal extent of the rectangle.
func (p Position) Width() float64 { return p.Right - p.Left }

// Height returns the vertical extent of the rectangle.
func (p Position) Height() float64 { return p.Bottom - p.Top }

// Item is a single candidate completion. ID gives rendered lists a stable
// identity, Text is the default replacement content, Title is an optional
// display hint.
type Item struct {
	ID    string
	Text  string
	Title string
}
