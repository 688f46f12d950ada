package richtext

// Selection is a (location, length) pair in rune indexes.
type Selection struct {
	Loc int
	Len int
}

// End returns the exclusive end index of the selection.
func (s Selection) End() int { return s.Loc + s.Len }

// Empty reports whether the selection is a pure caret.
func (s Selection) Empty() bool { return s.Len == 0 }

// Clamp returns the selection confined to [0, bufLen]. Negative
// lengths collapse to a caret. Stale selections referencing positions
// past the buffer end are pulled back instead of propagating as
// out-of-range accesses.
func (s Selection) Clamp(bufLen int) Selection {
	if bufLen < 0 {
		bufLen = 0
	}
	if s.Len < 0 {
		s.Len = 0
	}
	if s.Loc < 0 {
		s.Loc = 0
	}
	if s.Loc > bufLen {
		s.Loc = bufLen
	}
	if s.Loc+s.Len > bufLen {
		s.Len = bufLen - s.Loc
	}
	return s
}
