package richtext

import (
	"errors"
	"image"
	"strings"
	"testing"
)

func testImage(w, h int) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, w, h))
}

// liveNoteBuffer builds "Hello\n￼\ntail" with a live attachment on the
// placeholder, the shape insertion leaves behind.
func liveNoteBuffer(name string) *Buffer {
	b := NewText("Hello\n", bodyAttrs())
	att := &Attachment{ResourceName: name, Image: testImage(40, 20)}
	att.ResizeBoundsToContainerWidth(40)
	pa := bodyAttrs()
	pa.Link = LinkForResource(name)
	pa.Attachment = att
	pa.Paragraph = AttachmentCarrierParagraph(att.Bounds.Height)
	b.Append(string(Placeholder), pa)
	ta := bodyAttrs()
	ta.Paragraph = TrailingParagraph()
	b.Append("\n", ta)
	b.Append("tail", bodyAttrs())
	return b
}

func TestSanitizeReplacesAttachmentWithPlaceholder(t *testing.T) {
	live := liveNoteBuffer("n/a.png")
	out := SanitizeForSaving(live)

	if got, want := out.String(), "Hello\n"+string(Placeholder)+"\ntail"; got != want {
		t.Fatalf("sanitized text = %q, want %q", got, want)
	}
	a := out.AttributesAt(6)
	if a.Attachment != nil {
		t.Fatalf("sanitized buffer still carries a live attachment")
	}
	if got, want := a.Link, "media://n/a.png"; got != want {
		t.Fatalf("placeholder link = %q, want %q", got, want)
	}
	if a.Paragraph.Role != RoleAttachmentCarrier {
		t.Fatalf("placeholder role = %v, want carrier", a.Paragraph.Role)
	}
	// The live buffer is untouched.
	if live.AttributesAt(6).Attachment == nil {
		t.Fatalf("sanitize mutated the live buffer")
	}
}

func TestSanitizeCollapsesStrayLinkRange(t *testing.T) {
	b := NewText("a", bodyAttrs())
	stray := bodyAttrs()
	stray.Link = "media://n/x.png"
	b.Append("oops", stray)
	b.Append("z", bodyAttrs())

	out := SanitizeForSaving(b)
	if got, want := out.String(), "a"+string(Placeholder)+"z"; got != want {
		t.Fatalf("sanitized text = %q, want %q", got, want)
	}
}

func TestSanitizeLeavesOrdinaryLinksAlone(t *testing.T) {
	b := NewBuffer()
	a := bodyAttrs()
	a.Link = "https://example.com"
	b.Append("click", a)
	out := SanitizeForSaving(b)
	if got := out.String(); got != "click" {
		t.Fatalf("sanitized text = %q, want %q", got, "click")
	}
}

func TestMarshalRejectsLiveAttachment(t *testing.T) {
	live := liveNoteBuffer("n/a.png")
	if _, err := Marshal(live); err == nil {
		t.Fatalf("Marshal accepted a live attachment")
	}
}

func TestUnmarshalRejectsUnknownVersion(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"v":99,"runs":[]}`)); err == nil {
		t.Fatalf("Unmarshal accepted version 99")
	}
	if _, err := Unmarshal([]byte(`{garbage`)); err == nil {
		t.Fatalf("Unmarshal accepted malformed JSON")
	}
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	live := liveNoteBuffer("n/a.png")

	data, err := Marshal(SanitizeForSaving(live))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	n := Restore(got, 40, func(name string) (image.Image, error) {
		if name != "n/a.png" {
			t.Fatalf("resolve called with %q", name)
		}
		return testImage(40, 20), nil
	})
	if n != 1 {
		t.Fatalf("restored = %d, want 1", n)
	}

	if got.String() != live.String() {
		t.Fatalf("text = %q, want %q", got.String(), live.String())
	}
	ga, la := got.AttributesAt(6), live.AttributesAt(6)
	if ga.Attachment == nil {
		t.Fatalf("restored placeholder has no attachment")
	}
	if ga.Attachment.ResourceName != la.Attachment.ResourceName {
		t.Fatalf("resource = %q, want %q", ga.Attachment.ResourceName, la.Attachment.ResourceName)
	}
	if ga.Attachment.Bounds != la.Attachment.Bounds {
		t.Fatalf("bounds = %+v, want %+v", ga.Attachment.Bounds, la.Attachment.Bounds)
	}
	if ga.Paragraph != la.Paragraph {
		t.Fatalf("paragraph = %+v, want %+v", ga.Paragraph, la.Paragraph)
	}
	if got.AttributesAt(0) != live.AttributesAt(0) {
		t.Fatalf("body attrs = %+v, want %+v", got.AttributesAt(0), live.AttributesAt(0))
	}
}

func TestRestoreDropsMissingResources(t *testing.T) {
	data, err := Marshal(SanitizeForSaving(liveNoteBuffer("n/gone.png")))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	b, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	n := Restore(b, 40, func(string) (image.Image, error) {
		return nil, errors.New("no such file")
	})
	if n != 0 {
		t.Fatalf("restored = %d, want 0", n)
	}
	if strings.ContainsRune(b.String(), Placeholder) {
		t.Fatalf("missing-resource placeholder survived: %q", b.String())
	}
	if got, want := b.String(), "Hello\n\ntail"; got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
}

func TestRestoreMultipleAttachmentsReverseOrder(t *testing.T) {
	b := NewText("a", bodyAttrs())
	for _, name := range []string{"n/1.png", "n/2.png"} {
		pa := bodyAttrs()
		pa.Link = LinkForResource(name)
		b.Append(string(Placeholder), pa)
		b.Append("b", bodyAttrs())
	}
	n := Restore(b, 20, func(name string) (image.Image, error) {
		if name == "n/1.png" {
			return nil, errors.New("gone")
		}
		return testImage(10, 10), nil
	})
	if n != 1 {
		t.Fatalf("restored = %d, want 1", n)
	}
	if got, want := b.String(), "ab"+string(Placeholder)+"b"; got != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
	if b.AttributesAt(2).Attachment == nil {
		t.Fatalf("surviving placeholder not restored")
	}
}

func TestResourceNames(t *testing.T) {
	live := liveNoteBuffer("n/a.png")
	got := ResourceNames(live)
	if len(got) != 1 || got[0] != "n/a.png" {
		t.Fatalf("names = %v, want [n/a.png]", got)
	}
	sanitized := SanitizeForSaving(live)
	got = ResourceNames(sanitized)
	if len(got) != 1 || got[0] != "n/a.png" {
		t.Fatalf("sanitized names = %v, want [n/a.png]", got)
	}
	if names := ResourceNames(NewText("plain", bodyAttrs())); names != nil {
		t.Fatalf("names for plain text = %v, want none", names)
	}
}

func TestResourceFromLink(t *testing.T) {
	if name, ok := ResourceFromLink("media://n/a.png"); !ok || name != "n/a.png" {
		t.Fatalf("ResourceFromLink = %q, %v", name, ok)
	}
	if _, ok := ResourceFromLink("https://example.com"); ok {
		t.Fatalf("accepted non-media link")
	}
	if _, ok := ResourceFromLink("media://"); ok {
		t.Fatalf("accepted empty resource name")
	}
}

func TestResizeBoundsToContainerWidth(t *testing.T) {
	att := &Attachment{Image: testImage(100, 50)}
	att.ResizeBoundsToContainerWidth(40)
	if att.Bounds.Width != 40 {
		t.Fatalf("width = %d, want 40", att.Bounds.Width)
	}
	if att.Bounds.Height != 10 {
		t.Fatalf("height = %d, want 10", att.Bounds.Height)
	}

	// Narrower than the container: keep natural width.
	att = &Attachment{Image: testImage(10, 10)}
	att.ResizeBoundsToContainerWidth(40)
	if att.Bounds.Width != 10 || att.Bounds.Height != 5 {
		t.Fatalf("bounds = %+v, want 10x5", att.Bounds)
	}

	// No image: degenerate but positive.
	att = &Attachment{}
	att.ResizeBoundsToContainerWidth(40)
	if att.Bounds.Width < 1 || att.Bounds.Height < 1 {
		t.Fatalf("bounds = %+v, want >= 1x1", att.Bounds)
	}
}
