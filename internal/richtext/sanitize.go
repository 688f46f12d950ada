package richtext

import (
	"image"

	"github.com/kobzarvs/qnote/internal/logger"
)

// SanitizeForSaving converts a live buffer into its persistable form:
// every attachment range collapses to exactly one placeholder rune
// whose link encodes the resource name. Non-link styling of the range
// (font size, traits, color, paragraph style) is preserved on the
// placeholder so restoring the note does not have to guess surrounding
// style. Stray multi-rune link ranges that leaked past a single
// placeholder are collapsed too. The live buffer is left untouched.
func SanitizeForSaving(b *Buffer) *Buffer {
	out := NewBuffer()
	for i := range b.runs {
		r := b.runs[i]
		attrs := r.attrs
		switch {
		case attrs.Attachment != nil:
			attrs.Link = LinkForResource(attrs.Attachment.ResourceName)
			attrs.Attachment = nil
			// One placeholder per attachment regardless of how many
			// runes the range ended up spanning.
			out.Append(string(Placeholder), attrs)
		case isStrayLinkRange(r):
			// A media link leaked onto more than the placeholder rune.
			out.Append(string(Placeholder), attrs)
		default:
			out.Append(string(r.text), attrs)
		}
	}
	return out
}

func isStrayLinkRange(r run) bool {
	if _, ok := ResourceFromLink(r.attrs.Link); !ok {
		return false
	}
	if len(r.text) > 1 {
		return true
	}
	return len(r.text) == 1 && r.text[0] != Placeholder
}

// ResourceNames lists every media resource referenced by the buffer,
// in buffer order: live attachments and placeholder links alike.
func ResourceNames(b *Buffer) []string {
	var out []string
	for i := range b.runs {
		attrs := b.runs[i].attrs
		if attrs.Attachment != nil {
			out = append(out, attrs.Attachment.ResourceName)
			continue
		}
		if name, ok := ResourceFromLink(attrs.Link); ok {
			out = append(out, name)
		}
	}
	return out
}

// ThumbnailFunc resolves a resource name to its decoded thumbnail.
// A nil image or an error means the resource is gone.
type ThumbnailFunc func(name string) (image.Image, error)

// Restore reconstitutes attachments in a freshly unmarshalled buffer:
// every placeholder rune carrying a media:// link is resolved through
// resolve and replaced by a live Attachment sized to containerWidth and
// stamped with the carrier paragraph style. Placeholders whose resource
// is missing are deleted outright; a prior cleanup usually already ran,
// so this degrades silently rather than surfacing an error.
//
// Replacements run in reverse buffer order so earlier edits never shift
// the ranges of later ones. Returns the number of attachments restored.
func Restore(b *Buffer, containerWidth int, resolve ThumbnailFunc) int {
	type hit struct {
		pos   int
		name  string
		attrs Attributes
	}
	var hits []hit
	pos := 0
	for i := range b.runs {
		r := b.runs[i]
		if name, ok := ResourceFromLink(r.attrs.Link); ok {
			for off, ch := range r.text {
				if ch == Placeholder {
					hits = append(hits, hit{pos: pos + off, name: name, attrs: r.attrs})
				}
			}
		}
		pos += len(r.text)
	}

	restored := 0
	for i := len(hits) - 1; i >= 0; i-- {
		h := hits[i]
		img, err := resolve(h.name)
		if err != nil || img == nil {
			logger.Debug("restore: dropping missing resource", "name", h.name, "err", err)
			b.Delete(h.pos, 1)
			continue
		}
		att := &Attachment{ResourceName: h.name, Image: img}
		att.ResizeBoundsToContainerWidth(containerWidth)
		attrs := h.attrs
		attrs.Attachment = att
		attrs.Link = LinkForResource(h.name)
		attrs.Paragraph = AttachmentCarrierParagraph(att.Bounds.Height)
		b.ReplaceRange(h.pos, 1, NewText(string(Placeholder), attrs))
		restored++
	}
	return restored
}
