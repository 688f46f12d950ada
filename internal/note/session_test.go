package note

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/kobzarvs/qnote/internal/media"
	"github.com/kobzarvs/qnote/internal/richtext"
)

func newTestStore(t *testing.T) *media.Store {
	t.Helper()
	store, err := media.NewStore(t.TempDir(), 32)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestOpenSessionCreatesFreshNote(t *testing.T) {
	db := newTestDB(t)
	sess, err := OpenSession(db, newTestStore(t), "", 40)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if sess.ID() == "" {
		t.Fatalf("fresh session has no id")
	}
	if sess.Buffer().Len() != 0 {
		t.Fatalf("fresh buffer not empty: %q", sess.Buffer().String())
	}
	// The record exists immediately so debounced saves have a row to update.
	if _, err := db.Get(sess.ID()); err != nil {
		t.Fatalf("Get after open: %v", err)
	}
}

func TestSessionSaveAndReopenRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	sess, err := OpenSession(db, store, "n1", 40)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	orig, _, err := store.Save(context.Background(), pngBytes(t, 64, 32), sess.ID())
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	thumb, err := store.LoadThumbnail(orig)
	if err != nil {
		t.Fatalf("LoadThumbnail: %v", err)
	}

	body := richtext.Attributes{FontSize: 12, Paragraph: richtext.BodyParagraph()}
	buf := richtext.NewText("Shopping list\n", body)
	att := &richtext.Attachment{ResourceName: orig, Image: thumb}
	att.ResizeBoundsToContainerWidth(40)
	pa := body
	pa.Link = richtext.LinkForResource(orig)
	pa.Attachment = att
	pa.Paragraph = richtext.AttachmentCarrierParagraph(att.Bounds.Height)
	buf.Append(string(richtext.Placeholder), pa)
	buf.Append("\n", body)

	if err := sess.Save(buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rec, err := db.Get("n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Title != "Shopping list" {
		t.Fatalf("title = %q, want %q", rec.Title, "Shopping list")
	}
	if strings.ContainsRune(rec.Body, richtext.Placeholder) {
		t.Fatalf("plain mirror still has a placeholder: %q", rec.Body)
	}
	if len(rec.Media) != 1 || rec.Media[0] != orig {
		t.Fatalf("media = %v, want [%s]", rec.Media, orig)
	}

	reopened, err := OpenSession(db, store, "n1", 40)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Buffer()
	if got.String() != buf.String() {
		t.Fatalf("reopened text = %q, want %q", got.String(), buf.String())
	}
	a := got.AttributesAt(14)
	if a.Attachment == nil || a.Attachment.ResourceName != orig {
		t.Fatalf("attachment not restored: %+v", a.Attachment)
	}
	if a.Paragraph.Role != richtext.RoleAttachmentCarrier {
		t.Fatalf("restored role = %v, want carrier", a.Paragraph.Role)
	}
}

func TestReopenDropsPlaceholderForDeletedResource(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	sess, err := OpenSession(db, store, "n1", 40)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	body := richtext.Attributes{FontSize: 12, Paragraph: richtext.BodyParagraph()}
	buf := richtext.NewText("before\n", body)
	gone := body
	gone.Link = richtext.LinkForResource("n1/gone.png")
	buf.Append(string(richtext.Placeholder), gone)
	buf.Append("\nafter", body)
	if err := sess.Save(buf); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := OpenSession(db, store, "n1", 40)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Buffer().String()
	if strings.ContainsRune(got, richtext.Placeholder) {
		t.Fatalf("placeholder for missing resource survived: %q", got)
	}
	if got != "before\n\nafter" {
		t.Fatalf("text = %q, want %q", got, "before\n\nafter")
	}
}

func TestSessionDeleteRemovesNoteAndMedia(t *testing.T) {
	db := newTestDB(t)
	store := newTestStore(t)
	sess, err := OpenSession(db, store, "n1", 40)
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	orig, _, err := store.Save(context.Background(), pngBytes(t, 8, 8), sess.ID())
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}

	if err := sess.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get("n1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("note survived delete: %v", err)
	}
	if _, err := store.LoadOriginal(orig); !errors.Is(err, media.ErrResourceMissing) {
		t.Fatalf("media survived delete: %v", err)
	}
	// Deleting twice stays clean.
	if err := sess.Delete(); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestTitleOf(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{"", ""},
		{"\n\n  \nFirst real line\nmore", "First real line"},
		{"  padded  ", "padded"},
		{strings.Repeat("x", 100), strings.Repeat("x", 80)},
		{strings.Repeat("é", 100), strings.Repeat("é", 80)},
	}
	for i, c := range cases {
		if got := titleOf(c.body); got != c.want {
			t.Fatalf("case %d: titleOf = %q, want %q", i, got, c.want)
		}
	}
}
