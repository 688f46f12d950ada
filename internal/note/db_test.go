package note

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "notes.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	rec := Record{
		ID:    "n1",
		Title: "Groceries",
		Body:  "milk\neggs",
		Rich:  []byte(`{"v":1,"runs":[]}`),
		Media: []string{"n1/a.png", "n1/b.jpg"},
	}
	if err := db.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := db.Get("n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != rec.Title || got.Body != rec.Body {
		t.Fatalf("record = %+v, want title/body of %+v", got, rec)
	}
	if string(got.Rich) != string(rec.Rich) {
		t.Fatalf("rich = %q, want %q", got.Rich, rec.Rich)
	}
	if len(got.Media) != 2 || got.Media[0] != "n1/a.png" || got.Media[1] != "n1/b.jpg" {
		t.Fatalf("media = %v, want %v", got.Media, rec.Media)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", got)
	}
}

func TestCreateWithNilBlobAndMedia(t *testing.T) {
	db := newTestDB(t)
	// A fresh note has no serialized buffer yet; nil fields must not
	// trip the NOT NULL columns.
	if err := db.Create(Record{ID: "n1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := db.Get("n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Rich) != 0 {
		t.Fatalf("rich = %q, want empty", got.Rich)
	}
	if got.Media != nil {
		t.Fatalf("media = %v, want none", got.Media)
	}
	if err := db.Update(Record{ID: "n1", Title: "t"}); err != nil {
		t.Fatalf("Update with nil blob: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(Record{ID: "n1", Title: "old"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.Update(Record{ID: "n1", Title: "new", Body: "text"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := db.Get("n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "new" || got.Body != "text" {
		t.Fatalf("record = %+v, want updated title and body", got)
	}

	if err := db.Update(Record{ID: "ghost"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing note: err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(Record{ID: "n1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.Delete("n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get("n1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted note still present: %v", err)
	}
	if err := db.Delete("n1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestListOrdersByUpdate(t *testing.T) {
	db := newTestDB(t)
	for _, id := range []string{"a", "b"} {
		if err := db.Create(Record{ID: id, Title: "note " + id}); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	// Touch "a" so it becomes the most recent.
	if err := db.Update(Record{ID: "a", Title: "note a"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := db.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" {
		t.Fatalf("first = %q, want most recently updated %q", got[0].ID, "a")
	}
}

func TestSearchMatchesTitleAndBody(t *testing.T) {
	db := newTestDB(t)
	notes := []Record{
		{ID: "n1", Title: "Trip plan", Body: "pack the tent"},
		{ID: "n2", Title: "Groceries", Body: "milk and eggs"},
	}
	for _, rec := range notes {
		if err := db.Create(rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	hits, err := db.Search("tent", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "n1" {
		t.Fatalf("hits = %+v, want only n1", hits)
	}
	hits, err = db.Search("Groceries", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "n2" {
		t.Fatalf("hits = %+v, want only n2", hits)
	}
	hits, err = db.Search("nomatch", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits = %+v, want none", hits)
	}
}
