package richtext

// ParagraphRole is the logical category a paragraph belongs to. Every
// paragraph in a buffer has exactly one role at any time; the editor
// engine keeps the position-to-role mapping consistent after mutations.
type ParagraphRole int

const (
	RoleBody ParagraphRole = iota
	RoleAttachmentCarrier
	RoleTrailingAfterAttachment
)

func (r ParagraphRole) String() string {
	switch r {
	case RoleAttachmentCarrier:
		return "attachment-carrier"
	case RoleTrailingAfterAttachment:
		return "trailing-after-attachment"
	default:
		return "body"
	}
}

// Alignment of a paragraph's visual lines.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
)

// ParagraphStyle is an immutable paragraph descriptor. Equal inputs to
// the factory functions produce values that compare equal with ==,
// which the engine relies on to reapply styles idempotently without
// creating paragraph-merge artifacts.
type ParagraphStyle struct {
	Role          ParagraphRole
	Alignment     Alignment
	SpacingBefore int
	SpacingAfter  int
	// MinLineHeight and MaxLineHeight pin an attachment-carrier
	// paragraph to the attachment's rendered height. Zero elsewhere.
	MinLineHeight int
	MaxLineHeight int
}

// BodyParagraph returns the canonical style for plain body paragraphs.
func BodyParagraph() ParagraphStyle {
	return ParagraphStyle{Role: RoleBody}
}

// AttachmentCarrierParagraph returns the style for a paragraph whose
// single character is an attachment placeholder. The line height is
// forced to the attachment's rendered height.
func AttachmentCarrierParagraph(height int) ParagraphStyle {
	if height < 1 {
		height = 1
	}
	return ParagraphStyle{
		Role:          RoleAttachmentCarrier,
		Alignment:     AlignCenter,
		SpacingBefore: 1,
		SpacingAfter:  1,
		MinLineHeight: height,
		MaxLineHeight: height,
	}
}

// TrailingParagraph returns the style for text immediately following an
// attachment paragraph. It exists so that text typed after an image
// never inherits the carrier's forced line height.
func TrailingParagraph() ParagraphStyle {
	return ParagraphStyle{Role: RoleTrailingAfterAttachment}
}
