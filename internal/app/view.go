package app

import (
	"github.com/gdamore/tcell/v2"

	"github.com/kobzarvs/qnote/internal/config"
	"github.com/kobzarvs/qnote/internal/editor"
	"github.com/kobzarvs/qnote/internal/richtext"
)

// rowKind distinguishes layout rows.
type rowKind int

const (
	rowText rowKind = iota
	rowAttachment
)

// layoutRow is one visual row of the laid-out buffer.
type layoutRow struct {
	kind   rowKind
	start  int // rune index of the first position on this row
	end    int // exclusive; caret positions start..end map here
	att    *richtext.Attachment
	attRow int // row index within the attachment block
}

// View renders the styled buffer on a tcell screen region and is the
// live editing surface the engine stabilizes against. It owns the
// selection and scroll state; the buffer itself is owned by the engine
// side and shared by reference.
type View struct {
	buf    *richtext.Buffer
	theme  config.Theme
	width  int
	height int

	sel    richtext.Selection
	scroll int
	rows   []layoutRow
	alive  bool

	batching    bool
	afterLayout []func()
}

// NewView builds a view over buf with the given content area size.
func NewView(buf *richtext.Buffer, theme config.Theme, width, height int) *View {
	// Wrapping needs at least one column or it never advances.
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	v := &View{buf: buf, theme: theme, width: width, height: height, alive: true}
	v.relayout()
	return v
}

// Teardown detaches the view; engine operations become no-ops.
func (v *View) Teardown() { v.alive = false }

// Resize updates the content area and recomputes layout.
func (v *View) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	v.width, v.height = width, height
	v.relayout()
}

func (v *View) Alive() bool { return v.alive }

func (v *View) Selection() richtext.Selection { return v.sel }

func (v *View) SetSelection(sel richtext.Selection) {
	v.sel = sel.Clamp(v.buf.Len())
}

func (v *View) ScrollOffset() int { return v.scroll }

func (v *View) SetScrollOffset(offset int) {
	max := len(v.rows) - 1
	if offset > max {
		offset = max
	}
	if offset < 0 {
		offset = 0
	}
	v.scroll = offset
}

func (v *View) ViewportRect() editor.Rect {
	return editor.Rect{X: 0, Y: 0, W: v.width, H: v.height}
}

func (v *View) ContainerWidth() int { return v.width }

// CaretRect maps the caret position to viewport coordinates based on
// the last layout pass.
func (v *View) CaretRect() editor.Rect {
	row, col := v.positionOf(v.sel.Loc)
	h := 1
	if row < len(v.rows) && v.rows[row].kind == rowAttachment {
		h = v.rows[row].att.Bounds.Height
	}
	return editor.Rect{X: col, Y: row - v.scroll, W: 1, H: h}
}

// Batch runs fn as one atomic edit; layout recomputes once at the end.
func (v *View) Batch(fn func()) {
	if v.batching {
		fn()
		return
	}
	v.batching = true
	fn()
	v.batching = false
	v.relayout()
}

// AfterLayout queues fn to run once after the next layout pass. The
// app's run loop drains the queue after rendering.
func (v *View) AfterLayout(fn func()) {
	if !v.alive {
		return
	}
	v.afterLayout = append(v.afterLayout, fn)
}

// drainAfterLayout runs and clears the queued continuations.
func (v *View) drainAfterLayout() {
	pending := v.afterLayout
	v.afterLayout = nil
	for _, fn := range pending {
		fn()
	}
}

// MoveCaret moves the caret by delta runes, optionally extending the
// selection, and scrolls the caret into view.
func (v *View) MoveCaret(delta int, extend bool) {
	loc := v.sel.Loc
	if extend {
		// Anchor stays at Loc; grow/shrink Len. Keep it simple: extend
		// forward only from the caret.
		v.sel.Len += delta
		if v.sel.Len < 0 {
			v.sel.Loc += v.sel.Len
			v.sel.Len = 0
		}
	} else {
		loc += delta
		if v.sel.Len > 0 && delta > 0 {
			loc = v.sel.End()
		}
		v.sel = richtext.Selection{Loc: loc}
	}
	v.sel = v.sel.Clamp(v.buf.Len())
	v.scrollCaretIntoView()
}

// MoveCaretRow moves the caret by visual rows (up/down keys).
func (v *View) MoveCaretRow(delta int) {
	row, col := v.positionOf(v.sel.Loc)
	row += delta
	if row < 0 {
		row = 0
	}
	if row >= len(v.rows) {
		row = len(v.rows) - 1
	}
	if row < 0 {
		v.sel = richtext.Selection{}
		return
	}
	r := v.rows[row]
	loc := r.start
	if r.kind == rowText {
		loc += col
		if loc > r.end {
			loc = r.end
		}
	}
	v.sel = richtext.Selection{Loc: loc}.Clamp(v.buf.Len())
	v.scrollCaretIntoView()
}

func (v *View) scrollCaretIntoView() {
	row, _ := v.positionOf(v.sel.Loc)
	if row < v.scroll {
		v.scroll = row
	}
	if row >= v.scroll+v.height {
		v.scroll = row - v.height + 1
	}
}

// relayout recomputes the visual rows: body paragraphs wrap at the
// view width, attachment-carrier paragraphs occupy their forced block
// height.
func (v *View) relayout() {
	if v.batching {
		return
	}
	v.rows = v.rows[:0]
	text := []rune(v.buf.String())
	n := len(text)
	pos := 0
	for pos <= n {
		start, end := v.buf.ParagraphRange(pos)
		if att := v.attachmentIn(start, end); att != nil {
			for i := 0; i < att.Bounds.Height; i++ {
				v.rows = append(v.rows, layoutRow{kind: rowAttachment, start: start, end: end, att: att, attRow: i})
			}
		} else {
			v.wrapParagraph(text, start, end)
		}
		if end >= n {
			break
		}
		pos = end
	}
	if len(v.rows) == 0 {
		v.rows = append(v.rows, layoutRow{kind: rowText})
	}
	if v.scroll > len(v.rows)-1 {
		v.scroll = len(v.rows) - 1
	}
}

// wrapParagraph appends text rows for [start, end). The terminating
// newline maps to the end of the last row so the caret can sit there.
func (v *View) wrapParagraph(text []rune, start, end int) {
	content := end
	if content > start && content <= len(text) && content-1 < len(text) && text[content-1] == '\n' {
		content--
	}
	lineStart := start
	for {
		lineEnd := lineStart + v.width
		if lineEnd >= content {
			v.rows = append(v.rows, layoutRow{kind: rowText, start: lineStart, end: content})
			return
		}
		// Break at the last space on the row when there is one.
		brk := lineEnd
		for i := lineEnd; i > lineStart; i-- {
			if text[i-1] == ' ' {
				brk = i
				break
			}
		}
		v.rows = append(v.rows, layoutRow{kind: rowText, start: lineStart, end: brk})
		lineStart = brk
	}
}

func (v *View) attachmentIn(start, end int) *richtext.Attachment {
	var att *richtext.Attachment
	v.buf.EnumerateRuns(start, end-start, func(_, _ int, a richtext.Attributes) {
		if a.Attachment != nil {
			att = a.Attachment
		}
	})
	return att
}

// positionOf maps a rune index to (row, col) in layout coordinates.
func (v *View) positionOf(loc int) (int, int) {
	for i, r := range v.rows {
		if r.kind == rowAttachment {
			if loc >= r.start && loc < r.end && r.attRow == 0 {
				return i, 0
			}
			continue
		}
		if loc >= r.start && loc <= r.end {
			// Prefer the next row when loc sits exactly on a wrap point.
			if loc == r.end && i+1 < len(v.rows) && v.rows[i+1].start == loc && v.rows[i+1].kind == rowText {
				continue
			}
			return i, loc - r.start
		}
	}
	if len(v.rows) == 0 {
		return 0, 0
	}
	last := v.rows[len(v.rows)-1]
	return len(v.rows) - 1, last.end - last.start
}

// Render draws the buffer into the screen region at (x0, y0).
func (v *View) Render(s tcell.Screen, x0, y0 int) {
	base := tcell.StyleDefault.
		Foreground(tcell.GetColor(v.theme.Foreground)).
		Background(tcell.GetColor(v.theme.Background))
	selStyle := tcell.StyleDefault.
		Foreground(tcell.GetColor(v.theme.SelectionForeground)).
		Background(tcell.GetColor(v.theme.SelectionBackground))
	border := base.Foreground(tcell.GetColor(v.theme.AttachmentBorder))

	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			s.SetContent(x0+x, y0+y, ' ', nil, base)
		}
		ri := v.scroll + y
		if ri >= len(v.rows) {
			continue
		}
		row := v.rows[ri]
		if row.kind == rowAttachment {
			v.renderAttachmentRow(s, x0, y0+y, row, border)
			continue
		}
		x := 0
		for loc := row.start; loc < row.end && x < v.width; loc++ {
			ch := v.buf.RuneAt(loc)
			if ch == '\n' {
				break
			}
			style := v.styleFor(v.buf.AttributesAt(loc), base)
			if v.sel.Len > 0 && loc >= v.sel.Loc && loc < v.sel.End() {
				style = selStyle
			}
			s.SetContent(x0+x, y0+y, ch, nil, style)
			x++
		}
	}
}

func (v *View) renderAttachmentRow(s tcell.Screen, x0, y int, row layoutRow, border tcell.Style) {
	att := row.att
	w := att.Bounds.Width
	if w > v.width {
		w = v.width
	}
	last := att.Bounds.Height - 1
	for x := 0; x < w; x++ {
		ch := ' '
		switch {
		case row.attRow == 0 && (x == 0 || x == w-1):
			ch = '+'
		case row.attRow == last && (x == 0 || x == w-1):
			ch = '+'
		case row.attRow == 0 || row.attRow == last:
			ch = '-'
		case x == 0 || x == w-1:
			ch = '|'
		}
		s.SetContent(x0+x, y, ch, nil, border)
	}
	if row.attRow == att.Bounds.Height/2 {
		label := att.ResourceName
		if len(label) > w-4 && w > 4 {
			label = label[:w-4]
		}
		for i, ch := range label {
			if 2+i >= w-2 {
				break
			}
			s.SetContent(x0+2+i, y, ch, nil, border)
		}
	}
}

func (v *View) styleFor(a richtext.Attributes, base tcell.Style) tcell.Style {
	style := base
	if a.Header > 0 {
		style = style.Foreground(tcell.GetColor(v.theme.HeaderForeground))
	}
	if a.Link != "" {
		style = style.Foreground(tcell.GetColor(v.theme.LinkForeground))
	}
	if a.Foreground != "" {
		style = style.Foreground(tcell.GetColor(a.Foreground))
	}
	if a.Traits.Has(richtext.TraitBold) {
		style = style.Bold(true)
	}
	if a.Traits.Has(richtext.TraitItalic) {
		style = style.Italic(true)
	}
	if a.Underline {
		style = style.Underline(true)
	}
	return style
}
