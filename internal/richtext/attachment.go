package richtext

import (
	"image"
	"math"
	"strings"
)

// Placeholder is the reserved rune standing in for one attachment, both
// in the live buffer (where the run also carries an *Attachment) and in
// the persisted form (where only the media:// link remains).
const Placeholder = '￼'

// LinkScheme prefixes every attachment link. Consumers intercepting
// link activation must recognize it and never treat the value as a
// navigable external URL.
const LinkScheme = "media://"

// LinkForResource builds the placeholder link for a stored resource.
func LinkForResource(name string) string { return LinkScheme + name }

// ResourceFromLink extracts the resource name from a media:// link.
func ResourceFromLink(link string) (string, bool) {
	if !strings.HasPrefix(link, LinkScheme) {
		return "", false
	}
	name := link[len(LinkScheme):]
	return name, name != ""
}

// Bounds is the laid-out size of an attachment in surface cells.
type Bounds struct {
	Width  int
	Height int
}

// cellAspect compensates for terminal cells being roughly twice as tall
// as they are wide when mapping pixel aspect ratios to cell bounds.
const cellAspect = 2.0

// Attachment is one inline image. The buffer position holds the
// attachment for the duration the note is open; the media store owns
// the backing file, referenced by ResourceName and never by the
// attachment itself.
type Attachment struct {
	ResourceName string
	Image        image.Image // decoded thumbnail used for display
	Bounds       Bounds
}

// ResizeBoundsToContainerWidth recomputes Bounds from the container
// width and the image's pixel aspect ratio. Aspect ratio is preserved
// up to cell rounding.
func (a *Attachment) ResizeBoundsToContainerWidth(containerWidth int) {
	if containerWidth < 1 {
		containerWidth = 1
	}
	w, h := 1, 1
	if a.Image != nil {
		r := a.Image.Bounds()
		w, h = r.Dx(), r.Dy()
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}
	bw := containerWidth
	if w < bw {
		bw = w
	}
	bh := int(math.Round(float64(bw) * float64(h) / float64(w) / cellAspect))
	if bh < 1 {
		bh = 1
	}
	a.Bounds = Bounds{Width: bw, Height: bh}
}
