package library

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultDataFile is where the catalog lives when no path is configured.
var DefaultDataFile = filepath.Join("data", "books.tsv")

// Sentinel errors returned by Result.Err for failed circulation calls.
var (
	// ErrNotFound means no book has the requested id.
	ErrNotFound = errors.New("no such id")
	// ErrAlreadyBorrowed means Borrow was called on a borrowed book.
	ErrAlreadyBorrowed = errors.New("already borrowed")
	// ErrNotBorrowed means Return was called on an available book.
	ErrNotBorrowed = errors.New("not borrowed")
)

// Reason classifies the outcome of Borrow and Return. It encodes as text
// ("not_found", "already_borrowed", "not_borrowed"); ReasonNone is empty.
type Reason int

const (
	// ReasonNone marks a successful call.
	ReasonNone Reason = iota
	// ReasonNotFound: no book has the id.
	ReasonNotFound
	// ReasonAlreadyBorrowed: the book is already lent out.
	ReasonAlreadyBorrowed
	// ReasonNotBorrowed: the book is on the shelf.
	ReasonNotBorrowed
)

var reasonNames = map[Reason]string{
	ReasonNone:            "",
	ReasonNotFound:        "not_found",
	ReasonAlreadyBorrowed: "already_borrowed",
	ReasonNotBorrowed:     "not_borrowed",
}

func (r Reason) String() string { return reasonNames[r] }

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	name, ok := reasonNames[r]
	if !ok {
		return nil, fmt.Errorf("unknown reason %d", int(r))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reason) UnmarshalText(text []byte) error {
	for k, v := range reasonNames {
		if v == string(text) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown reason %q", text)
}

// Result is the outcome of a circulation call. Business-rule violations are
// reported here and never as an error.
type Result struct {
	OK      bool   `json:"ok"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
	Book    *Book  `json:"book,omitempty"`
}

// Err returns the sentinel error matching a failed Result, or nil.
func (r Result) Err() error {
	switch r.Reason {
	case ReasonNotFound:
		return ErrNotFound
	case ReasonAlreadyBorrowed:
		return ErrAlreadyBorrowed
	case ReasonNotBorrowed:
		return ErrNotBorrowed
	}
	return nil
}

func failure(reason Reason, msg string) Result {
	return Result{Reason: reason, Message: msg}
}

// Store is the in-memory catalog mirrored to a delimited text file. It is
// not safe for concurrent use and assumes no other process writes the file.
type Store struct {
	path   string
	logger *slog.Logger
	atomic bool

	books  []*Book
	nextID int64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that receives I/O failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithAtomicSave makes saves go through a temp file and rename instead of
// truncating the data file in place.
func WithAtomicSave(on bool) Option {
	return func(s *Store) { s.atomic = on }
}

// NewStore loads the catalog from path. Load problems are logged and leave
// the store with whatever records could be read; they are never fatal.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{path: path, logger: slog.Default(), nextID: 1}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Path returns the data file location.
func (s *Store) Path() string { return s.path }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.books) }

// ------------------ Catalog ------------------

// Add allocates the next id, appends a new available book and saves.
func (s *Store) Add(title, author string, publishYear int) Book {
	b := &Book{ID: s.nextID, Title: title, Author: author, PublishYear: publishYear}
	s.nextID++
	s.books = append(s.books, b)
	s.save()
	return *b
}

// List returns copies of all books in insertion order.
func (s *Store) List() []Book {
	out := make([]Book, len(s.books))
	for i, b := range s.books {
		out[i] = *b
	}
	return out
}

// SearchByTitle returns the books whose title contains query, ignoring case.
// An empty query matches everything.
func (s *Store) SearchByTitle(query string) []Book {
	fold := cases.Fold()
	q := fold.String(query)
	out := []Book{}
	for _, b := range s.books {
		if strings.Contains(fold.String(b.Title), q) {
			out = append(out, *b)
		}
	}
	return out
}

// Get looks a book up by id.
func (s *Store) Get(id int64) (Book, bool) {
	if b := s.find(id); b != nil {
		return *b, true
	}
	return Book{}, false
}

// ------------------ Circulation ------------------

// Borrow marks an available book as borrowed and saves.
func (s *Store) Borrow(id int64) Result {
	b := s.find(id)
	if b == nil {
		return failure(ReasonNotFound, "No book found with given ID.")
	}
	if b.Borrowed {
		return failure(ReasonAlreadyBorrowed, "This book is already borrowed and not yet returned.")
	}
	b.MarkBorrowed()
	s.save()
	cp := *b
	return Result{OK: true, Message: "Borrowed successfully: " + cp.Short(), Book: &cp}
}

// Return marks a borrowed book as available and saves.
func (s *Store) Return(id int64) Result {
	b := s.find(id)
	if b == nil {
		return failure(ReasonNotFound, "No book found with given ID.")
	}
	if !b.Borrowed {
		return failure(ReasonNotBorrowed, "This book is not currently borrowed.")
	}
	b.MarkReturned()
	s.save()
	cp := *b
	return Result{OK: true, Message: "Returned successfully: " + cp.Short(), Book: &cp}
}

func (s *Store) find(id int64) *Book {
	for _, b := range s.books {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// ------------------ Persistence ------------------

func (s *Store) ensureDir() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	return nil
}

func (s *Store) load() {
	if err := s.ensureDir(); err != nil {
		s.logger.Error("load catalog", "path", s.path, "err", err)
		return
	}
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("no catalog file yet", "path", s.path)
		return
	}
	if err != nil {
		s.logger.Error("load catalog", "path", s.path, "err", err)
		return
	}
	defer f.Close()

	books, err := readBooks(f, s.logger)
	if err != nil {
		s.logger.Error("read catalog", "path", s.path, "err", err)
	}
	s.books = books
	var maxID int64
	for _, b := range books {
		maxID = max(maxID, b.ID)
	}
	s.nextID = maxID + 1
}

// readBooks decodes every non-blank line of r, dropping the ones that fail.
// Lines have no length limit. On a read error it returns the books decoded
// so far along with the error.
func readBooks(r io.Reader, logger *slog.Logger) ([]*Book, error) {
	var books []*Book
	br := bufio.NewReader(r)
	for lineNo := 1; ; lineNo++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return books, err
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if strings.TrimSpace(line) != "" {
			b, decErr := DecodeLine(line)
			if decErr != nil {
				logger.Debug("skip line", "line", lineNo, "err", decErr)
			} else {
				books = append(books, &b)
			}
		}
		if err != nil {
			return books, nil
		}
	}
}

func (s *Store) save() {
	if err := s.ensureDir(); err != nil {
		s.logger.Error("save catalog", "path", s.path, "err", err)
		return
	}
	write := writeFile
	if s.atomic {
		write = writeFileAtomic
	}
	if err := write(s.path, s.books); err != nil {
		s.logger.Error("save catalog", "path", s.path, "err", err)
	}
}

func writeBooks(w io.Writer, books []*Book) error {
	bw := bufio.NewWriter(w)
	for _, b := range books {
		if _, err := bw.WriteString(EncodeLine(*b) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeFile(path string, books []*Book) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeBooks(f, books); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeFileAtomic writes to a temp file next to path, syncs it and renames it
// over path. The temp file is removed on any failure.
func writeFileAtomic(path string, books []*Book) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := writeBooks(tmp, books); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}
	renamed = true
	if d, _ := os.Open(dir); d != nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
