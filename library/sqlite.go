package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Snapshot is a SQLite copy of the catalog, meant for ad-hoc queries with
// external tools. The text data file stays authoritative.
type Snapshot struct {
	db *sql.DB

	insertStmt *sql.Stmt
}

// NewSnapshot opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewSnapshot(dbPath string) (*Snapshot, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	snap := &Snapshot{db: db}
	if snap.insertStmt, err = db.Prepare(`INSERT INTO books(id,title,author,publish_year,borrowed) VALUES(?,?,?,?,?)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return snap, nil
}

// OpenSnapshot opens a snapshot a previous export wrote. Unlike NewSnapshot
// it does not create a missing database.
func OpenSnapshot(dbPath string) (*Snapshot, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	return NewSnapshot(dbPath)
}

// Close releases prepared statements and closes the DB.
func (s *Snapshot) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return fmt.Errorf("create meta: %w", err)
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publish_year INTEGER NOT NULL,
            borrowed BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE INDEX IF NOT EXISTS idx_books_title ON books(title COLLATE NOCASE);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Export and queries
// ---------------------------------------------------------------------------

// Replace swaps the snapshot contents for books in one transaction.
func (s *Snapshot) Replace(books []Book) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM books`); err != nil {
		return fmt.Errorf("clear books: %w", err)
	}
	stmt := tx.Stmt(s.insertStmt)
	for _, b := range books {
		if _, err := stmt.Exec(b.ID, b.Title, b.Author, b.PublishYear, b.Borrowed); err != nil {
			return fmt.Errorf("insert book %d: %w", b.ID, err)
		}
	}
	return tx.Commit()
}

// Books returns every exported book ordered by id.
func (s *Snapshot) Books() ([]Book, error) {
	return s.query(`SELECT id,title,author,publish_year,borrowed FROM books ORDER BY id`)
}

// SearchTitle matches title substrings case-insensitively (ASCII only, as
// SQLite's LIKE does).
func (s *Snapshot) SearchTitle(q string) ([]Book, error) {
	pattern := "%" + likeEscaper.Replace(q) + "%"
	return s.query(`SELECT id,title,author,publish_year,borrowed FROM books
        WHERE title LIKE ? ESCAPE '\' ORDER BY id`, pattern)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Snapshot) query(q string, args ...any) ([]Book, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.PublishYear, &b.Borrowed); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// ExportSQLite writes the store's current contents into the database at dbPath.
func (s *Store) ExportSQLite(dbPath string) (int, error) {
	snap, err := NewSnapshot(dbPath)
	if err != nil {
		return 0, err
	}
	defer snap.Close()

	books := s.List()
	if err := snap.Replace(books); err != nil {
		return 0, err
	}
	return len(books), nil
}
