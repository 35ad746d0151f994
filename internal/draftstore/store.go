// Package draftstore keeps unsubmitted invoice drafts in a local sqlite file
// so a draft can be built up across several commands.
package draftstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mejba13/invoiceflow/internal/invoice"
)

// ErrNotFound is returned when no draft has the requested name
var ErrNotFound = errors.New("draft not found")

const timeLayout = time.RFC3339

// Entry describes a stored draft
type Entry struct {
	Name      string
	UpdatedAt time.Time
	Draft     *invoice.Draft
}

// Store is a sqlite-backed draft store
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the draft database at dbPath
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create drafts dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS drafts (
  name TEXT PRIMARY KEY,
  body TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create drafts table: %w", err)
	}
	return nil
}

// Save inserts or replaces the draft stored under name
func (s *Store) Save(ctx context.Context, name string, d *invoice.Draft) error {
	if name == "" {
		return fmt.Errorf("draft name is required")
	}
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	const stmt = `
INSERT INTO drafts (name, body, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  body=excluded.body,
  updated_at=excluded.updated_at;
`
	if _, err := s.db.ExecContext(ctx, stmt, name, string(body), s.now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns the draft stored under name
func (s *Store) Load(ctx context.Context, name string) (*invoice.Draft, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM drafts WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return decode(body)
}

// Delete removes the draft stored under name
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// List returns every stored draft, most recently updated first
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, body, updated_at FROM drafts ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var name, body, updated string
		if err := rows.Scan(&name, &body, &updated); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		d, err := decode(body)
		if err != nil {
			return nil, fmt.Errorf("draft %s: %w", name, err)
		}
		ts, _ := time.Parse(timeLayout, updated)
		entries = append(entries, Entry{Name: name, UpdatedAt: ts, Draft: d})
	}
	return entries, rows.Err()
}

func decode(body string) (*invoice.Draft, error) {
	var d invoice.Draft
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}
