package library

import "fmt"

// Book is one catalog entry. Only the borrowed flag changes after creation;
// the Store owns every Book and hands out copies.
type Book struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	PublishYear int    `json:"publish_year"`
	Borrowed    bool   `json:"borrowed"`
}

// MarkBorrowed flags the book as lent out. The caller checks the current state.
func (b *Book) MarkBorrowed() { b.Borrowed = true }

// MarkReturned flags the book as back on the shelf. The caller checks the current state.
func (b *Book) MarkReturned() { b.Borrowed = false }

// Status is the human label of the borrowed flag.
func (b Book) Status() string {
	if b.Borrowed {
		return "BORROWED"
	}
	return "AVAILABLE"
}

// String formats a book for lists and search results.
func (b Book) String() string {
	return fmt.Sprintf("#%d | %s - %s (%d) | %s", b.ID, b.Title, b.Author, b.PublishYear, b.Status())
}

// Short is the identity used in borrow/return confirmations.
func (b Book) Short() string {
	return fmt.Sprintf("#%d | %s", b.ID, b.Title)
}
