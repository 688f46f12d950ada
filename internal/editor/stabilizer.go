package editor

import "github.com/kobzarvs/qnote/internal/richtext"

// Stabilizer wraps buffer mutations with selection and scroll
// preservation so structural edits never visibly move the caret or the
// viewport. The reapplication is deferred one layout pass (AfterLayout)
// and the final observable state is stable within that pass.
type Stabilizer struct {
	surface Surface
	length  func() int // current buffer length, for clamping
	margin  int        // rows around the caret that count as visible
}

// NewStabilizer builds a stabilizer over the given surface. length
// reports the buffer length after mutations; margin is the number of
// rows near the viewport edge still treated as in view.
func NewStabilizer(surface Surface, length func() int, margin int) *Stabilizer {
	if margin < 0 {
		margin = 0
	}
	return &Stabilizer{surface: surface, length: length, margin: margin}
}

// Run executes mutate as a single batched edit and then restores the
// selection and scroll position. target is the selection to apply after
// the mutation; nil means keep the pre-mutation selection. If the
// surface has been torn down this is a no-op.
func (st *Stabilizer) Run(target *richtext.Selection, mutate func()) {
	s := st.surface
	if s == nil || !s.Alive() {
		return
	}
	desired := s.Selection()
	if target != nil {
		desired = *target
	}
	prevScroll := s.ScrollOffset()

	s.Batch(mutate)

	s.AfterLayout(func() {
		if !s.Alive() {
			return
		}
		s.SetSelection(desired.Clamp(st.length()))
		// Visibility is judged against the restored offset, never
		// against whatever offset the relayout left behind.
		s.SetScrollOffset(prevScroll)

		vp := s.ViewportRect()
		if vp.H <= 2*st.margin {
			// Degenerate viewport, nothing sensible to stabilize.
			return
		}
		caret := s.CaretRect()
		top := vp.Y + st.margin
		bottom := vp.Y + vp.H - st.margin
		switch {
		case caret.Y < top:
			// Scroll up by the minimum amount that re-enters the view.
			s.SetScrollOffset(s.ScrollOffset() - (top - caret.Y))
		case caret.Y+caret.H > bottom:
			s.SetScrollOffset(s.ScrollOffset() + (caret.Y + caret.H - bottom))
		}
	})
}
