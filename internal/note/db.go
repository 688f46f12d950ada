// Package note provides the SQLite-backed note store and the note
// editing session lifecycle (restore on open, sanitize on save,
// resource cleanup on delete). Full-text search uses FTS5 when built
// with the sqlite_fts5 tag and falls back to LIKE matching otherwise.
package note

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a note id does not exist.
var ErrNotFound = errors.New("note: not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	rich       BLOB NOT NULL DEFAULT '',
	media      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Record is one persisted note: the plain-text mirror of the buffer
// (for previews and search), the sanitized serialized rich buffer, and
// the comma-joined media list kept redundant with the placeholder links
// for fast cleanup.
type Record struct {
	ID        string
	Title     string
	Body      string
	Rich      []byte
	Media     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is a lightweight list item.
type Summary struct {
	ID        string
	Title     string
	UpdatedAt time.Time
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	ID      string
	Title   string
	Snippet string
}

// DB wraps the sqlite connection with note-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the note database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("note: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("note: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("note: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("note: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Create inserts a new note.
func (db *DB) Create(rec Record) error {
	return db.upsert(rec, true)
}

// Update replaces an existing note's content.
func (db *DB) Update(rec Record) error {
	return db.upsert(rec, false)
}

func (db *DB) upsert(rec Record, create bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("note: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// A nil blob would bind NULL into the NOT NULL rich column.
	rich := rec.Rich
	if rich == nil {
		rich = []byte{}
	}
	now := time.Now()
	if create {
		_, err = tx.Exec(`
			INSERT INTO notes (id, title, body, rich, media, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.Title, rec.Body, rich, strings.Join(rec.Media, ","), now, now)
	} else {
		var res sql.Result
		res, err = tx.Exec(`
			UPDATE notes SET title = ?, body = ?, rich = ?, media = ?, updated_at = ?
			WHERE id = ?
		`, rec.Title, rec.Body, rich, strings.Join(rec.Media, ","), now, rec.ID)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrNotFound
			}
		}
	}
	if err != nil {
		return fmt.Errorf("note: upsert: %w", err)
	}
	if err := ftsUpsert(tx, rec.ID, rec.Title, rec.Body); err != nil {
		return err
	}
	return tx.Commit()
}

// Get loads a note by id.
func (db *DB) Get(id string) (Record, error) {
	var rec Record
	var media string
	err := db.conn.QueryRow(`
		SELECT id, title, body, rich, media, created_at, updated_at
		FROM notes WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Title, &rec.Body, &rec.Rich, &media, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("note: get: %w", err)
	}
	if media != "" {
		rec.Media = strings.Split(media, ",")
	}
	return rec, nil
}

// Delete removes a note and its FTS entry.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("note: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("note: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// List returns summaries of all notes, most recently updated first.
func (db *DB) List() ([]Summary, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, updated_at FROM notes ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("note: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Title, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
