package note

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/kobzarvs/qnote/internal/logger"
	"github.com/kobzarvs/qnote/internal/media"
	"github.com/kobzarvs/qnote/internal/richtext"
)

// Session is one open note: the live buffer plus the glue for restoring
// it on open and sanitizing it on save. The controller's debounced save
// and final flush both go through Save.
type Session struct {
	db    *DB
	store *media.Store
	id    string
	buf   *richtext.Buffer
}

// OpenSession loads a note and reconstitutes its attachments for the
// given container width. A missing or empty id creates a fresh note.
func OpenSession(db *DB, store *media.Store, id string, containerWidth int) (*Session, error) {
	if id == "" {
		id = uuid.New().String()
	}
	s := &Session{db: db, store: store, id: id}

	rec, err := db.Get(id)
	switch {
	case errors.Is(err, ErrNotFound):
		s.buf = richtext.NewBuffer()
		if err := db.Create(Record{ID: id}); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, err
	}

	if len(rec.Rich) == 0 {
		s.buf = richtext.NewBuffer()
		return s, nil
	}
	buf, err := richtext.Unmarshal(rec.Rich)
	if err != nil {
		return nil, err
	}
	n := richtext.Restore(buf, containerWidth, store.LoadThumbnail)
	logger.Debug("note opened", "id", id, "len", buf.Len(), "attachments", n)
	s.buf = buf
	return s, nil
}

// ID returns the note identifier, which also owns the note's media.
func (s *Session) ID() string { return s.id }

// Buffer returns the live buffer for this session.
func (s *Session) Buffer() *richtext.Buffer { return s.buf }

// Save sanitizes and persists the buffer: placeholder links replace
// live attachments, the plain-text mirror feeds previews and search,
// and the media list is rebuilt from the sanitized links. A failed save
// is logged and returned but the note stays editable in memory; nothing
// the user typed is lost within the session.
func (s *Session) Save(buf *richtext.Buffer) error {
	sanitized := richtext.SanitizeForSaving(buf)
	blob, err := richtext.Marshal(sanitized)
	if err != nil {
		return err
	}
	body := plainMirror(sanitized)
	rec := Record{
		ID:    s.id,
		Title: titleOf(body),
		Body:  body,
		Rich:  blob,
		Media: richtext.ResourceNames(sanitized),
	}
	if err := s.db.Update(rec); err != nil {
		logger.Error("note save failed", "id", s.id, "err", err)
		return err
	}
	return nil
}

// Delete removes the note and every media resource it owns. Callers
// must flush the controller first so no in-flight media save races the
// cleanup.
func (s *Session) Delete() error {
	if err := s.db.Delete(s.id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.store.DeleteAll(s.id)
}

// plainMirror strips placeholder runes from the buffer text.
func plainMirror(b *richtext.Buffer) string {
	return strings.ReplaceAll(b.String(), string(richtext.Placeholder), "")
}

// titleOf derives a note title from the first non-blank line.
func titleOf(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			// Truncate on a rune boundary so a long line never
			// yields a title ending mid-character.
			if r := []rune(line); len(r) > 80 {
				line = string(r[:80])
			}
			return line
		}
	}
	return ""
}
