// Package richtext implements the styled-text data model for notes:
// an attributed buffer of contiguous runs, paragraph roles, inline
// attachments and the placeholder serialization used for persistence.
package richtext

// FontTraits is a bitmask of symbolic font traits.
type FontTraits uint8

const (
	TraitBold FontTraits = 1 << iota
	TraitItalic
)

func (t FontTraits) Has(f FontTraits) bool { return t&f != 0 }

func (t FontTraits) With(f FontTraits) FontTraits { return t | f }

func (t FontTraits) Without(f FontTraits) FontTraits { return t &^ f }

// Attributes is the full attribute set for one run of characters.
// The zero value renders as unstyled body text in the default size.
// Attributes is comparable; run merging relies on ==.
type Attributes struct {
	FontSize   int
	Traits     FontTraits
	Header     int // 1-6 when the run belongs to a header paragraph, 0 otherwise
	Foreground string
	Underline  bool
	Link       string
	Paragraph  ParagraphStyle
	Attachment *Attachment // non-nil only on a placeholder rune
}

// FallbackTraits resolves the requested trait combination against what
// the rendering target can produce. If the combined variant is
// unavailable the chain is bold-only, then italic-only, then plain.
func FallbackTraits(want FontTraits, supports func(FontTraits) bool) FontTraits {
	if supports == nil || supports(want) {
		return want
	}
	for _, c := range []FontTraits{TraitBold, TraitItalic, 0} {
		if c&^want == 0 && supports(c) {
			return c
		}
	}
	return 0
}
