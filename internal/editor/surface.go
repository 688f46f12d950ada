// Package editor implements the rich-text mutation engine: structural
// edits against a live styled buffer (attachment insertion, formatting,
// paragraph repair) performed without visible caret or scroll jumps,
// plus the controller mediating between the UI layer and the engine.
package editor

import "github.com/kobzarvs/qnote/internal/richtext"

// Rect is a rectangle in surface cell coordinates.
type Rect struct {
	X, Y, W, H int
}

// Contains reports whether (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Surface is the live text-editing view attached to the buffer. The
// engine holds it as a non-owning handle and never extends its
// lifetime; once Alive reports false every operation degrades to a
// silent no-op.
//
// All Surface methods are UI-goroutine only, like the buffer itself.
type Surface interface {
	// Alive reports whether the surface is still attached.
	Alive() bool

	Selection() richtext.Selection
	SetSelection(richtext.Selection)

	// ScrollOffset is the index of the first visible layout row.
	ScrollOffset() int
	SetScrollOffset(int)

	// CaretRect is the caret's cell rectangle in viewport coordinates,
	// valid after the last layout pass.
	CaretRect() Rect
	ViewportRect() Rect

	// ContainerWidth is the width available to attachment bounds.
	ContainerWidth() int

	// Batch runs fn as one atomic edit: observers and layout fire once
	// at the end, not per sub-edit.
	Batch(fn func())

	// AfterLayout schedules fn exactly once after the next layout pass
	// settles. Dropped silently if the surface is torn down first.
	AfterLayout(fn func())
}
