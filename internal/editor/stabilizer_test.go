package editor

import (
	"testing"

	"github.com/kobzarvs/qnote/internal/richtext"
)

func TestStabilizerRestoresScrollWhenCaretVisible(t *testing.T) {
	s := newFakeSurface(func() int { return 100 })
	s.scroll = 20
	s.sel = richtext.Selection{Loc: 25} // row 5 of a 10-row viewport
	st := NewStabilizer(s, func() int { return 100 }, 2)

	ran := false
	st.Run(nil, func() {
		ran = true
		s.scroll = 0 // relayout reset the scroll mid-edit
	})
	if !ran {
		t.Fatalf("mutation never ran")
	}
	if s.scroll != 20 {
		t.Fatalf("scroll = %d, want 20 restored", s.scroll)
	}
	if s.sel != (richtext.Selection{Loc: 25}) {
		t.Fatalf("selection = %+v, want unchanged", s.sel)
	}
	if s.batches != 1 {
		t.Fatalf("batches = %d, want 1", s.batches)
	}
}

func TestStabilizerAppliesAndClampsTarget(t *testing.T) {
	s := newFakeSurface(func() int { return 5 })
	st := NewStabilizer(s, func() int { return 5 }, 2)

	st.Run(&richtext.Selection{Loc: 99}, func() {})
	if s.sel != (richtext.Selection{Loc: 5}) {
		t.Fatalf("selection = %+v, want clamped to 5", s.sel)
	}
}

func TestStabilizerScrollsDownMinimally(t *testing.T) {
	s := newFakeSurface(func() int { return 100 })
	st := NewStabilizer(s, func() int { return 100 }, 2)

	st.Run(&richtext.Selection{Loc: 50}, func() {})
	// Viewport is 10 rows with margin 2: the caret must land on the last
	// row inside the margin, scrolled by the minimum amount.
	if s.scroll != 43 {
		t.Fatalf("scroll = %d, want 43", s.scroll)
	}
	if got := s.CaretRect().Y; got != 7 {
		t.Fatalf("caret row = %d, want 7", got)
	}
}

func TestStabilizerScrollsUpMinimally(t *testing.T) {
	s := newFakeSurface(func() int { return 100 })
	s.scroll = 60
	s.sel = richtext.Selection{Loc: 65}
	st := NewStabilizer(s, func() int { return 100 }, 2)

	st.Run(&richtext.Selection{Loc: 50}, func() {})
	if s.scroll != 48 {
		t.Fatalf("scroll = %d, want 48", s.scroll)
	}
	if got := s.CaretRect().Y; got != 2 {
		t.Fatalf("caret row = %d, want 2", got)
	}
}

func TestStabilizerScrollsFromRestoredOffset(t *testing.T) {
	s := newFakeSurface(func() int { return 100 })
	st := NewStabilizer(s, func() int { return 100 }, 2)

	// The relayout leaves the scroll far away; the minimal adjustment
	// must be computed from the original offset, not the perturbed one.
	st.Run(&richtext.Selection{Loc: 50}, func() {
		s.scroll = 50
	})
	if s.scroll != 43 {
		t.Fatalf("scroll = %d, want 43", s.scroll)
	}
	if got := s.CaretRect().Y; got != 7 {
		t.Fatalf("caret row = %d, want 7", got)
	}
}

func TestStabilizerDegenerateViewportKeepsScroll(t *testing.T) {
	s := newFakeSurface(func() int { return 100 })
	s.height = 3 // smaller than twice the margin
	s.scroll = 7
	st := NewStabilizer(s, func() int { return 100 }, 2)

	st.Run(&richtext.Selection{Loc: 90}, func() {})
	if s.scroll != 7 {
		t.Fatalf("scroll = %d, want 7 untouched", s.scroll)
	}
}

func TestStabilizerDeadSurfaceSkipsMutation(t *testing.T) {
	s := newFakeSurface(func() int { return 10 })
	s.alive = false
	st := NewStabilizer(s, func() int { return 10 }, 2)

	ran := false
	st.Run(nil, func() { ran = true })
	if ran {
		t.Fatalf("mutation ran against a dead surface")
	}
}
