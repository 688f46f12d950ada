package richtext

import (
	"encoding/json"
	"fmt"
)

// codecVersion is bumped when the run format changes incompatibly.
const codecVersion = 1

type encodedParagraph struct {
	Role          int `json:"role"`
	Align         int `json:"align,omitempty"`
	SpacingBefore int `json:"sb,omitempty"`
	SpacingAfter  int `json:"sa,omitempty"`
	MinLineHeight int `json:"minh,omitempty"`
	MaxLineHeight int `json:"maxh,omitempty"`
}

type encodedRun struct {
	Text       string            `json:"t"`
	FontSize   int               `json:"size,omitempty"`
	Bold       bool              `json:"b,omitempty"`
	Italic     bool              `json:"i,omitempty"`
	Header     int               `json:"h,omitempty"`
	Underline  bool              `json:"u,omitempty"`
	Foreground string            `json:"fg,omitempty"`
	Link       string            `json:"link,omitempty"`
	Paragraph  *encodedParagraph `json:"para,omitempty"`
}

type encodedDoc struct {
	Version int          `json:"v"`
	Runs    []encodedRun `json:"runs"`
}

// Marshal serializes a buffer to the persisted run format. The buffer
// must already be in persistable form: live *Attachment values are not
// representable, run SanitizeForSaving first.
func Marshal(b *Buffer) ([]byte, error) {
	doc := encodedDoc{Version: codecVersion}
	for i := range b.runs {
		r := b.runs[i]
		if r.attrs.Attachment != nil {
			return nil, fmt.Errorf("richtext: marshal: live attachment %q not sanitized", r.attrs.Attachment.ResourceName)
		}
		er := encodedRun{
			Text:       string(r.text),
			FontSize:   r.attrs.FontSize,
			Bold:       r.attrs.Traits.Has(TraitBold),
			Italic:     r.attrs.Traits.Has(TraitItalic),
			Header:     r.attrs.Header,
			Underline:  r.attrs.Underline,
			Foreground: r.attrs.Foreground,
			Link:       r.attrs.Link,
		}
		if p := r.attrs.Paragraph; p != (ParagraphStyle{}) {
			er.Paragraph = &encodedParagraph{
				Role:          int(p.Role),
				Align:         int(p.Alignment),
				SpacingBefore: p.SpacingBefore,
				SpacingAfter:  p.SpacingAfter,
				MinLineHeight: p.MinLineHeight,
				MaxLineHeight: p.MaxLineHeight,
			}
		}
		doc.Runs = append(doc.Runs, er)
	}
	return json.Marshal(doc)
}

// Unmarshal parses the persisted run format back into a buffer.
// Placeholders come back as plain placeholder runes carrying their
// media:// link; Restore reconstitutes the attachments.
func Unmarshal(data []byte) (*Buffer, error) {
	var doc encodedDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("richtext: unmarshal: %w", err)
	}
	if doc.Version != codecVersion {
		return nil, fmt.Errorf("richtext: unmarshal: unsupported version %d", doc.Version)
	}
	b := NewBuffer()
	for _, er := range doc.Runs {
		var traits FontTraits
		if er.Bold {
			traits = traits.With(TraitBold)
		}
		if er.Italic {
			traits = traits.With(TraitItalic)
		}
		attrs := Attributes{
			FontSize:   er.FontSize,
			Traits:     traits,
			Header:     er.Header,
			Underline:  er.Underline,
			Foreground: er.Foreground,
			Link:       er.Link,
		}
		if p := er.Paragraph; p != nil {
			attrs.Paragraph = ParagraphStyle{
				Role:          ParagraphRole(p.Role),
				Alignment:     Alignment(p.Align),
				SpacingBefore: p.SpacingBefore,
				SpacingAfter:  p.SpacingAfter,
				MinLineHeight: p.MinLineHeight,
				MaxLineHeight: p.MaxLineHeight,
			}
		}
		b.Append(er.Text, attrs)
	}
	return b, nil
}
