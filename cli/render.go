package cli

import (
	"fmt"
	"io"
	"strings"

	"library-catalog/library"
)

// renderTable prints books as a fixed-width table.
func renderTable(w io.Writer, books []library.Book) error {
	if _, err := fmt.Fprintf(w, "%-5s %-30s %-25s %-6s %s\n", "ID", "Title", "Author", "Year", "Status"); err != nil {
		return err
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, b := range books {
		_, err := fmt.Fprintf(w, "%-5d %-30s %-25s %-6d %s\n",
			b.ID,
			TruncateString(b.Title, 30),
			TruncateString(b.Author, 25),
			b.PublishYear,
			b.Status())
		if err != nil {
			return err
		}
	}
	return nil
}

// TruncateString shortens s to maxLen runes, marking the cut with "...".
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
