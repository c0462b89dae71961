package library

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates the fields of one data file line.
const Delimiter = "\t"

const fieldCount = 5

// ErrMalformedLine is wrapped by every DecodeLine failure.
var ErrMalformedLine = errors.New("malformed line")

var textSanitizer = strings.NewReplacer(Delimiter, " ", "\r", " ", "\n", " ")

// EncodeLine renders b as id, title, author, year and borrowed joined by
// Delimiter. Delimiter and line breaks inside title or author become spaces,
// so the output is always a single parseable line (without terminator).
func EncodeLine(b Book) string {
	return strings.Join([]string{
		strconv.FormatInt(b.ID, 10),
		textSanitizer.Replace(b.Title),
		textSanitizer.Replace(b.Author),
		strconv.Itoa(b.PublishYear),
		strconv.FormatBool(b.Borrowed),
	}, Delimiter)
}

// DecodeLine parses a line produced by EncodeLine. Fields past the fifth are
// ignored. The borrowed field is true only for a case-insensitive "true".
func DecodeLine(line string) (Book, error) {
	parts := strings.Split(line, Delimiter)
	if len(parts) < fieldCount {
		return Book{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedLine, fieldCount, len(parts))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Book{}, fmt.Errorf("%w: id: %v", ErrMalformedLine, err)
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil {
		return Book{}, fmt.Errorf("%w: publish year: %v", ErrMalformedLine, err)
	}
	return Book{
		ID:          id,
		Title:       parts[1],
		Author:      parts[2],
		PublishYear: year,
		Borrowed:    strings.EqualFold(strings.TrimSpace(parts[4]), "true"),
	}, nil
}
