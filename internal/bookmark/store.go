package bookmark

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store keeps bookmarks in a local SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore creates or opens the database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return newStore(db)
}

// OpenMemoryStore creates an in-memory store (useful for testing).
func OpenMemoryStore() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// Every connection to :memory: is its own database.
	db.SetMaxOpenConns(1)
	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS bookmarks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    book_id INTEGER NOT NULL,
    cfi TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bookmarks_book ON bookmarks(book_id);
`

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns a book's bookmarks, oldest first.
func (s *Store) List(ctx context.Context, bookID int64) ([]Bookmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, cfi, title, created_at FROM bookmarks WHERE book_id = ? ORDER BY id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.BookID, &b.CFI, &b.Title, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Create inserts a bookmark.
func (s *Store) Create(ctx context.Context, req CreateRequest) (Bookmark, error) {
	if err := validate(req); err != nil {
		return Bookmark{}, err
	}
	b := Bookmark{
		BookID:    req.BookID,
		CFI:       req.CFI,
		Title:     req.Title,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (book_id, cfi, title, created_at) VALUES (?, ?, ?, ?)`,
		b.BookID, b.CFI, b.Title, b.CreatedAt)
	if err != nil {
		return Bookmark{}, fmt.Errorf("inserting bookmark: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return Bookmark{}, fmt.Errorf("reading bookmark id: %w", err)
	}
	return b, nil
}

// Delete removes a bookmark; ErrNotFound if there is none with id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}
