package editor

import (
	"github.com/kobzarvs/qnote/internal/logger"
	"github.com/kobzarvs/qnote/internal/richtext"
)

// Options configure an Engine.
type Options struct {
	BodyFontSize    int
	HeaderFontSizes []int // point sizes for H1..H6
	ScrollMargin    int
	// SupportsTraits reports whether the rendering target can produce
	// the given trait combination. nil means everything is supported.
	SupportsTraits func(richtext.FontTraits) bool
}

// Formatting describes one formatting request. nil fields mean "leave
// unchanged"; Header 0 resets header styling, 1-6 applies that level.
type Formatting struct {
	Bold      *bool
	Italic    *bool
	Underline *bool
	Header    *int
}

// Engine owns every structural mutation of the live buffer. It holds
// the surface as a non-owning handle; once the surface is torn down all
// operations silently no-op.
//
// UI-goroutine only, like the buffer it mutates.
type Engine struct {
	buf     *richtext.Buffer
	surface Surface
	stab    *Stabilizer
	opts    Options
	typing  richtext.Attributes
}

// New builds an engine over buf attached to surface.
func New(buf *richtext.Buffer, surface Surface, opts Options) *Engine {
	if opts.BodyFontSize <= 0 {
		opts.BodyFontSize = 12
	}
	if len(opts.HeaderFontSizes) != 6 {
		opts.HeaderFontSizes = []int{28, 24, 20, 17, 15, 13}
	}
	e := &Engine{buf: buf, surface: surface, opts: opts}
	e.stab = NewStabilizer(surface, buf.Len, opts.ScrollMargin)
	e.typing = e.bodyAttributes()
	return e
}

// Buffer returns the live buffer. The engine never holds a competing copy.
func (e *Engine) Buffer() *richtext.Buffer { return e.buf }

// TypingAttributes is the attribute set stamped onto the next typed rune.
func (e *Engine) TypingAttributes() richtext.Attributes { return e.typing }

func (e *Engine) bodyAttributes() richtext.Attributes {
	return richtext.Attributes{
		FontSize:  e.opts.BodyFontSize,
		Paragraph: richtext.BodyParagraph(),
	}
}

// InsertText inserts typed text at the selection, replacing it, using
// the current typing attributes.
func (e *Engine) InsertText(s string) {
	if s == "" || !e.alive() {
		return
	}
	sel := e.surface.Selection().Clamp(e.buf.Len())
	attrs := e.typing
	target := richtext.Selection{Loc: sel.Loc + len([]rune(s))}
	e.stab.Run(&target, func() {
		e.buf.ReplaceRange(sel.Loc, sel.Len, richtext.NewText(s, attrs))
	})
}

// DeleteBackward removes the selection, or the rune before the caret.
// Paragraph styles around the deletion are repaired so a deleted
// attachment never leaves its forced line height behind.
func (e *Engine) DeleteBackward() {
	if !e.alive() {
		return
	}
	sel := e.surface.Selection().Clamp(e.buf.Len())
	loc, n := sel.Loc, sel.Len
	if n == 0 {
		if loc == 0 {
			return
		}
		loc, n = loc-1, 1
	}
	target := richtext.Selection{Loc: loc}
	e.stab.Run(&target, func() {
		e.buf.Delete(loc, n)
		e.repairParagraphStyles(loc)
	})
}

// InsertAttachment inserts att at the selection start as an isolated
// attachment paragraph: a leading break when the insertion point is not
// already at a paragraph boundary, the placeholder rune carrying link
// and the carrier style, and a trailing break styled as body. The caret
// lands immediately after the inserted block and typing attributes
// reset to body so typed text never inherits the link or the carrier
// style. Bounds must be set (ResizeBoundsToContainerWidth) beforehand.
func (e *Engine) InsertAttachment(att *richtext.Attachment, link string) {
	if att == nil || !e.alive() {
		return
	}
	sel := e.surface.Selection().Clamp(e.buf.Len())
	loc := sel.Loc
	body := e.bodyAttributes()

	frag := richtext.NewBuffer()
	if loc > 0 && e.buf.RuneAt(loc-1) != '\n' {
		frag.Append("\n", body)
	}
	carrier := body
	carrier.Link = link
	carrier.Attachment = att
	carrier.Paragraph = richtext.AttachmentCarrierParagraph(att.Bounds.Height)
	frag.Append(string(richtext.Placeholder), carrier)
	frag.Append("\n", body)

	fragLen := frag.Len()
	target := richtext.Selection{Loc: loc + fragLen}
	e.stab.Run(&target, func() {
		e.buf.ReplaceRange(loc, 0, frag)
		e.restampFollowingParagraph(loc + fragLen)
	})
	e.typing = body
	logger.Debug("attachment inserted", "resource", att.ResourceName, "at", loc)
}

// restampFollowingParagraph gives the paragraph after an attachment the
// trailing role (or body when empty) so it never inherits the carrier's
// forced line height.
func (e *Engine) restampFollowingParagraph(pos int) {
	start, end := e.buf.ParagraphRange(pos)
	if end <= start {
		return
	}
	style := richtext.TrailingParagraph()
	if isBlank(e.buf.Slice(start, end-start)) {
		style = richtext.BodyParagraph()
	}
	e.buf.SetParagraphStyle(start, end-start, style)
}

// repairParagraphStyles restores the body role on any paragraph around
// pos that carries an attachment style without an attachment.
func (e *Engine) repairParagraphStyles(pos int) {
	start, end := e.buf.ParagraphRange(pos)
	if end <= start {
		return
	}
	role := richtext.RoleBody
	has := false
	e.buf.EnumerateRuns(start, end-start, func(_, _ int, a richtext.Attributes) {
		if a.Paragraph.Role != richtext.RoleBody {
			role = a.Paragraph.Role
		}
		if a.Attachment != nil {
			has = true
		}
	})
	if role == richtext.RoleAttachmentCarrier && !has {
		e.buf.SetParagraphStyle(start, end-start, richtext.BodyParagraph())
	}
}

// ApplyFormatting applies the requested formatting. With a non-empty
// selection every maximal uniform sub-range has its traits recomputed
// individually (unrequested traits are preserved, never overwritten),
// underline is applied uniformly, and stale link attributes are
// stripped; the caret never moves. With an empty selection only the
// typing attributes change, the buffer is untouched.
//
// Header levels use the configured point-size table and always force
// bold; level 0 resets size and the header-derived bold. Policy for
// partially selected paragraphs: a header request restamps every
// paragraph the selection touches in full, except attachment carriers.
func (e *Engine) ApplyFormatting(f Formatting) {
	if !e.alive() {
		return
	}
	sel := e.surface.Selection().Clamp(e.buf.Len())
	if sel.Empty() {
		e.typing = e.formatAttributes(e.typing, f)
		return
	}
	target := sel
	e.stab.Run(&target, func() {
		e.buf.Transform(sel.Loc, sel.Len, func(a richtext.Attributes) richtext.Attributes {
			// Attachment placeholders are not text; formatting passes
			// over them and their link must survive.
			if a.Attachment != nil {
				return a
			}
			a = e.formatAttributes(a, f)
			a.Link = ""
			return a
		})
		if f.Header != nil {
			e.extendHeaderToParagraphs(sel, Formatting{Header: f.Header})
		}
	})
}

func (e *Engine) extendHeaderToParagraphs(sel richtext.Selection, headerOnly Formatting) {
	type span struct{ start, end int }
	var spans []span
	e.buf.EnumerateParagraphs(sel.Loc, sel.Len, func(start, end int) {
		if e.paragraphHasAttachment(start, end) {
			return
		}
		spans = append(spans, span{start, end})
	})
	for _, p := range spans {
		e.buf.Transform(p.start, p.end-p.start, func(a richtext.Attributes) richtext.Attributes {
			if a.Attachment != nil {
				return a
			}
			return e.formatAttributes(a, headerOnly)
		})
	}
}

func (e *Engine) paragraphHasAttachment(start, end int) bool {
	has := false
	e.buf.EnumerateRuns(start, end-start, func(_, _ int, a richtext.Attributes) {
		if a.Attachment != nil {
			has = true
		}
	})
	return has
}

// formatAttributes is the single place formatting semantics live so the
// selection and typing-attribute paths cannot drift apart. Idempotent:
// applying the same request twice yields the same attributes.
func (e *Engine) formatAttributes(a richtext.Attributes, f Formatting) richtext.Attributes {
	if f.Header != nil {
		switch h := *f.Header; {
		case h >= 1 && h <= 6:
			a.FontSize = e.opts.HeaderFontSizes[h-1]
			a.Header = h
		case h == 0 && a.Header > 0:
			a.FontSize = e.opts.BodyFontSize
			a.Header = 0
			a.Traits = a.Traits.Without(richtext.TraitBold)
		}
	}
	if f.Bold != nil {
		if *f.Bold {
			a.Traits = a.Traits.With(richtext.TraitBold)
		} else {
			a.Traits = a.Traits.Without(richtext.TraitBold)
		}
	}
	if f.Italic != nil {
		if *f.Italic {
			a.Traits = a.Traits.With(richtext.TraitItalic)
		} else {
			a.Traits = a.Traits.Without(richtext.TraitItalic)
		}
	}
	if a.Header > 0 {
		// Headers are always bold, regardless of the explicit flag.
		a.Traits = a.Traits.With(richtext.TraitBold)
	}
	if f.Underline != nil {
		a.Underline = *f.Underline
	}
	a.Traits = richtext.FallbackTraits(a.Traits, e.opts.SupportsTraits)
	return a
}

// SelectionHasTrait reports whether the whole selection (or the typing
// attributes at a caret) carries the trait. Controllers use it to
// implement toggling.
func (e *Engine) SelectionHasTrait(t richtext.FontTraits) bool {
	if !e.alive() {
		return false
	}
	sel := e.surface.Selection().Clamp(e.buf.Len())
	if sel.Empty() {
		return e.typing.Traits.Has(t)
	}
	all := true
	e.buf.EnumerateRuns(sel.Loc, sel.Len, func(_, _ int, a richtext.Attributes) {
		if !a.Traits.Has(t) {
			all = false
		}
	})
	return all
}

// SelectionUnderlined reports whether the whole selection is underlined.
func (e *Engine) SelectionUnderlined() bool {
	if !e.alive() {
		return false
	}
	sel := e.surface.Selection().Clamp(e.buf.Len())
	if sel.Empty() {
		return e.typing.Underline
	}
	all := true
	e.buf.EnumerateRuns(sel.Loc, sel.Len, func(_, _ int, a richtext.Attributes) {
		if !a.Underline {
			all = false
		}
	})
	return all
}

// SelectionHeader returns the header level at the selection start, 0
// for body text.
func (e *Engine) SelectionHeader() int {
	if !e.alive() {
		return 0
	}
	sel := e.surface.Selection().Clamp(e.buf.Len())
	if sel.Empty() {
		return e.typing.Header
	}
	return e.buf.AttributesAt(sel.Loc).Header
}

// RestoreSnapshot replaces the buffer contents in place (undo/redo).
// The surface keeps observing the same buffer instance.
func (e *Engine) RestoreSnapshot(content *richtext.Buffer, sel richtext.Selection) {
	if !e.alive() {
		return
	}
	target := sel
	e.stab.Run(&target, func() {
		e.buf.ReplaceRange(0, e.buf.Len(), content)
	})
}

// ContainerWidth reports the width available for attachment bounds.
func (e *Engine) ContainerWidth() int {
	if !e.alive() {
		return 0
	}
	return e.surface.ContainerWidth()
}

func (e *Engine) alive() bool {
	return e.surface != nil && e.surface.Alive()
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != '\n' && r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}
