package richtext

import "strings"

type run struct {
	text  []rune
	attrs Attributes
}

// Buffer is a mutable styled-text sequence stored as contiguous runs of
// uniform attributes. The runs partition the text with no gaps and
// adjacent runs always differ in attributes; every mutation re-normalizes.
//
// A Buffer is owned by a single goroutine (the UI loop of the attached
// editing surface). It is mutated in place and never cloned for
// mutation; Clone exists only for undo snapshots.
type Buffer struct {
	runs []run
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// NewText returns a buffer holding s with uniform attributes.
func NewText(s string, attrs Attributes) *Buffer {
	b := &Buffer{}
	b.Append(s, attrs)
	return b
}

// Len returns the buffer length in runes.
func (b *Buffer) Len() int {
	n := 0
	for i := range b.runs {
		n += len(b.runs[i].text)
	}
	return n
}

// String returns the plain text content.
func (b *Buffer) String() string {
	var sb strings.Builder
	for i := range b.runs {
		sb.WriteString(string(b.runs[i].text))
	}
	return sb.String()
}

// Slice returns the plain text of [loc, loc+n), clamped to the buffer.
func (b *Buffer) Slice(loc, n int) string {
	sel := Selection{Loc: loc, Len: n}.Clamp(b.Len())
	text := []rune(b.String())
	return string(text[sel.Loc:sel.End()])
}

// RuneAt returns the rune at index i. i must be in [0, Len).
func (b *Buffer) RuneAt(i int) rune {
	ri, off := b.locate(i)
	return b.runs[ri].text[off]
}

// AttributesAt returns the attributes of the rune at i. For i == Len()
// (the end caret position) it returns the attributes of the last rune,
// or the zero Attributes for an empty buffer.
func (b *Buffer) AttributesAt(i int) Attributes {
	n := b.Len()
	if n == 0 {
		return Attributes{}
	}
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	ri, _ := b.locate(i)
	return b.runs[ri].attrs
}

// Append adds s to the end of the buffer with uniform attributes.
func (b *Buffer) Append(s string, attrs Attributes) {
	if s == "" {
		return
	}
	b.runs = append(b.runs, run{text: []rune(s), attrs: attrs})
	b.normalize()
}

// AppendBuffer adds the contents of frag to the end of the buffer.
func (b *Buffer) AppendBuffer(frag *Buffer) {
	for i := range frag.runs {
		r := frag.runs[i]
		b.runs = append(b.runs, run{text: append([]rune(nil), r.text...), attrs: r.attrs})
	}
	b.normalize()
}

// ReplaceRange replaces n runes starting at loc with the contents of
// frag. The range is clamped to the buffer; frag may be nil (deletion).
func (b *Buffer) ReplaceRange(loc, n int, frag *Buffer) {
	sel := Selection{Loc: loc, Len: n}.Clamp(b.Len())
	start := b.splitAt(sel.Loc)
	end := b.splitAt(sel.End())

	var insert []run
	if frag != nil {
		for i := range frag.runs {
			r := frag.runs[i]
			insert = append(insert, run{text: append([]rune(nil), r.text...), attrs: r.attrs})
		}
	}
	tail := append([]run(nil), b.runs[end:]...)
	b.runs = append(b.runs[:start], append(insert, tail...)...)
	b.normalize()
}

// InsertText inserts s at loc with uniform attributes.
func (b *Buffer) InsertText(loc int, s string, attrs Attributes) {
	if s == "" {
		return
	}
	b.ReplaceRange(loc, 0, NewText(s, attrs))
}

// Delete removes n runes starting at loc.
func (b *Buffer) Delete(loc, n int) {
	b.ReplaceRange(loc, n, nil)
}

// SetAttributes stamps uniform attributes over [loc, loc+n).
func (b *Buffer) SetAttributes(loc, n int, attrs Attributes) {
	b.Transform(loc, n, func(Attributes) Attributes { return attrs })
}

// Transform rewrites the attributes of every maximal uniform sub-range
// inside [loc, loc+n) through fn. Text is unchanged.
func (b *Buffer) Transform(loc, n int, fn func(Attributes) Attributes) {
	sel := Selection{Loc: loc, Len: n}.Clamp(b.Len())
	if sel.Len == 0 {
		return
	}
	start := b.splitAt(sel.Loc)
	end := b.splitAt(sel.End())
	for i := start; i < end; i++ {
		b.runs[i].attrs = fn(b.runs[i].attrs)
	}
	b.normalize()
}

// EnumerateRuns calls fn for every maximal uniform sub-range
// intersecting [loc, loc+n), with start/end clipped to that window.
func (b *Buffer) EnumerateRuns(loc, n int, fn func(start, end int, attrs Attributes)) {
	sel := Selection{Loc: loc, Len: n}.Clamp(b.Len())
	pos := 0
	for i := range b.runs {
		rStart, rEnd := pos, pos+len(b.runs[i].text)
		pos = rEnd
		if rEnd <= sel.Loc {
			continue
		}
		if rStart >= sel.End() {
			break
		}
		s, e := rStart, rEnd
		if s < sel.Loc {
			s = sel.Loc
		}
		if e > sel.End() {
			e = sel.End()
		}
		fn(s, e, b.runs[i].attrs)
	}
}

// ParagraphRange returns the paragraph containing index i, including
// the terminating newline when present. Paragraph attributes span the
// delimiter, so stamping a paragraph style covers it too. i == Len()
// addresses the final (possibly empty) paragraph.
func (b *Buffer) ParagraphRange(i int) (start, end int) {
	text := []rune(b.String())
	n := len(text)
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	start = i
	// A newline at i terminates the paragraph that begins before it.
	for start > 0 && text[start-1] != '\n' {
		start--
	}
	end = i
	for end < n && text[end] != '\n' {
		end++
	}
	if end < n {
		end++ // include the delimiter
	}
	return start, end
}

// EnumerateParagraphs calls fn for every paragraph intersecting
// [loc, loc+n). A zero-length range addresses the single paragraph
// containing loc.
func (b *Buffer) EnumerateParagraphs(loc, n int, fn func(start, end int)) {
	sel := Selection{Loc: loc, Len: n}.Clamp(b.Len())
	pos := sel.Loc
	for {
		start, end := b.ParagraphRange(pos)
		fn(start, end)
		if end >= sel.End() || end >= b.Len() {
			return
		}
		pos = end
	}
}

// SetParagraphStyle stamps style over every full paragraph intersecting
// [loc, loc+n).
func (b *Buffer) SetParagraphStyle(loc, n int, style ParagraphStyle) {
	b.EnumerateParagraphs(loc, n, func(start, end int) {
		b.Transform(start, end-start, func(a Attributes) Attributes {
			a.Paragraph = style
			return a
		})
	})
}

// Clone returns a deep copy. Undo snapshots only; live mutation always
// goes through the original.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{runs: make([]run, len(b.runs))}
	for i := range b.runs {
		out.runs[i] = run{
			text:  append([]rune(nil), b.runs[i].text...),
			attrs: b.runs[i].attrs,
		}
	}
	return out
}

// locate maps a rune index to (run index, offset). i must be in [0, Len).
func (b *Buffer) locate(i int) (int, int) {
	pos := 0
	for ri := range b.runs {
		if i < pos+len(b.runs[ri].text) {
			return ri, i - pos
		}
		pos += len(b.runs[ri].text)
	}
	// Out of range; callers clamp first. Point at the last rune.
	last := len(b.runs) - 1
	return last, len(b.runs[last].text) - 1
}

// splitAt ensures a run boundary at rune index i and returns the index
// of the run starting there (len(b.runs) when i == Len()).
func (b *Buffer) splitAt(i int) int {
	pos := 0
	for ri := range b.runs {
		if i == pos {
			return ri
		}
		rLen := len(b.runs[ri].text)
		if i < pos+rLen {
			r := b.runs[ri]
			off := i - pos
			left := run{text: append([]rune(nil), r.text[:off]...), attrs: r.attrs}
			right := run{text: append([]rune(nil), r.text[off:]...), attrs: r.attrs}
			b.runs = append(b.runs[:ri], append([]run{left, right}, b.runs[ri+1:]...)...)
			return ri + 1
		}
		pos += rLen
	}
	return len(b.runs)
}

// normalize drops empty runs and merges adjacent runs with equal
// attributes, restoring the partition invariant.
func (b *Buffer) normalize() {
	out := b.runs[:0]
	for i := range b.runs {
		if len(b.runs[i].text) == 0 {
			continue
		}
		if len(out) > 0 && out[len(out)-1].attrs == b.runs[i].attrs {
			out[len(out)-1].text = append(out[len(out)-1].text, b.runs[i].text...)
			continue
		}
		out = append(out, b.runs[i])
	}
	b.runs = out
}
