package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

// execute runs the root command against dataFile and returns stdout.
func execute(t *testing.T, dataFile string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--data", dataFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "library", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"shell", "add", "list", "search", "show", "borrow", "return", "export"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	dataFlag := cmd.PersistentFlags().Lookup("data")
	require.NotNil(t, dataFlag)
	assert.Equal(t, library.DefaultDataFile, dataFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	atomicFlag := cmd.PersistentFlags().Lookup("atomic")
	require.NotNil(t, atomicFlag)
	assert.Equal(t, "false", atomicFlag.DefValue)
}

func TestAddListSearch(t *testing.T) {
	data := filepath.Join(t.TempDir(), "books.tsv")

	out, err := execute(t, data, "add", "War and Peace", "Leo Tolstoy", "1869")
	require.NoError(t, err)
	assert.Equal(t, "Book added successfully: #1 | War and Peace - Leo Tolstoy (1869) | AVAILABLE\n", out)

	_, err = execute(t, data, "add", "Dune", "Frank Herbert", "1965")
	require.NoError(t, err)

	out, err = execute(t, data, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "War and Peace")
	assert.Contains(t, out, "Dune")

	out, err = execute(t, data, "search", "WAR")
	require.NoError(t, err)
	assert.Contains(t, out, "War and Peace")
	assert.NotContains(t, out, "Dune")

	out, err = execute(t, data, "search", "zzz")
	require.NoError(t, err)
	assert.Equal(t, "No matching books found.\n", out)
}

func TestListEmpty(t *testing.T) {
	out, err := execute(t, filepath.Join(t.TempDir(), "books.tsv"), "list")
	require.NoError(t, err)
	assert.Equal(t, "No books in the library yet.\n", out)
}

func TestAddInvalidYear(t *testing.T) {
	out, err := execute(t, filepath.Join(t.TempDir(), "books.tsv"), "add", "T", "A", "soon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Invalid year")
}

func TestBorrowReturnExitCodes(t *testing.T) {
	data := filepath.Join(t.TempDir(), "books.tsv")
	_, err := execute(t, data, "add", "Emma", "Jane Austen", "1815")
	require.NoError(t, err)

	out, err := execute(t, data, "borrow", "1")
	require.NoError(t, err)
	assert.Equal(t, "Borrowed successfully: #1 | Emma\n", out)

	out, err = execute(t, data, "borrow", "1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, library.ErrAlreadyBorrowed)
	assert.Equal(t, "This book is already borrowed and not yet returned.\n", out)

	_, err = execute(t, data, "return", "1")
	require.NoError(t, err)

	_, err = execute(t, data, "return", "1")
	assert.ErrorIs(t, err, library.ErrNotBorrowed)

	_, err = execute(t, data, "borrow", "999")
	assert.ErrorIs(t, err, library.ErrNotFound)

	_, err = execute(t, data, "borrow", "one")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestJSONOutput(t *testing.T) {
	data := filepath.Join(t.TempDir(), "books.tsv")
	_, err := execute(t, data, "add", "Emma", "Jane Austen", "1815")
	require.NoError(t, err)

	out, err := execute(t, data, "--format", "json", "list")
	require.NoError(t, err)
	var resp struct {
		Status string         `json:"status"`
		Data   []library.Book `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []library.Book{{ID: 1, Title: "Emma", Author: "Jane Austen", PublishYear: 1815}}, resp.Data)

	out, err = execute(t, data, "--format", "json", "return", "1")
	require.Error(t, err)
	var failed CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &failed))
	assert.Equal(t, "error", failed.Status)
	require.NotNil(t, failed.Error)
	assert.Equal(t, ErrCodeNotBorrowed, failed.Error.Code)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "books.tsv"), "--format", "xml", "list")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "books.tsv")
	_, err := execute(t, data, "add", "Emma", "Jane Austen", "1815")
	require.NoError(t, err)

	dbPath := filepath.Join(dir, "export", "catalog.db")
	out, err := execute(t, data, "export", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "Exported 1 book(s) to "+dbPath+"\n", out)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestRootRunsShell(t *testing.T) {
	data := filepath.Join(t.TempDir(), "books.tsv")
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("1\nEmma\nJane Austen\n1815\n0\n"))
	cmd.SetArgs([]string{"--data", data})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Book added successfully: #1 | Emma")
	assert.Contains(t, out.String(), "Exiting the program. Goodbye!")

	content, err := os.ReadFile(data)
	require.NoError(t, err)
	assert.Equal(t, "1\tEmma\tJane Austen\t1815\tfalse\n", string(content))
}

func TestShowCommand(t *testing.T) {
	data := filepath.Join(t.TempDir(), "books.tsv")
	_, err := execute(t, data, "add", "Emma", "Jane Austen", "1815")
	require.NoError(t, err)
	_, err = execute(t, data, "borrow", "1")
	require.NoError(t, err)

	out, err := execute(t, data, "show", "1")
	require.NoError(t, err)
	assert.Equal(t, "#1 | Emma - Jane Austen (1815) | BORROWED\n", out)

	out, err = execute(t, data, "--format", "json", "show", "1")
	require.NoError(t, err)
	var resp struct {
		Status string       `json:"status"`
		Data   library.Book `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, library.Book{ID: 1, Title: "Emma", Author: "Jane Austen", PublishYear: 1815, Borrowed: true}, resp.Data)

	out, err = execute(t, data, "show", "42")
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, library.ErrNotFound)
	assert.Equal(t, "No book found with given ID.\n", out)

	_, err = execute(t, data, "show", "x")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestListAndSearchSnapshot(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "books.tsv")
	dbPath := filepath.Join(dir, "catalog.db")
	for _, args := range [][]string{
		{"add", "War and Peace", "Leo Tolstoy", "1869"},
		{"add", "The Art of War", "Sun Tzu", "-500"},
		{"export", dbPath},
		{"add", "Warlock", "Wilbur Smith", "2001"},
	} {
		_, err := execute(t, data, args...)
		require.NoError(t, err)
	}

	// The snapshot does not see books added after the export.
	out, err := execute(t, data, "--format", "json", "list", "--sqlite", dbPath)
	require.NoError(t, err)
	var resp struct {
		Data []library.Book `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Data, 2)

	out, err = execute(t, data, "search", "--sqlite", dbPath, "war")
	require.NoError(t, err)
	assert.Contains(t, out, "War and Peace")
	assert.Contains(t, out, "The Art of War")
	assert.NotContains(t, out, "Warlock")

	out, err = execute(t, data, "search", "--sqlite", dbPath, "100%")
	require.NoError(t, err)
	assert.Equal(t, "No matching books found.\n", out)
}

func TestSnapshotMissing(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nope.db")
	out, err := execute(t, filepath.Join(dir, "books.tsv"), "list", "--sqlite", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, out, "Reading "+dbPath+" failed.")
	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr), "a failed read must not create the database")
}

func TestRootShellOverlongInput(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(strings.Repeat("x", MaxInputLine+1)))
	cmd.SetArgs([]string{"--data", filepath.Join(t.TempDir(), "books.tsv")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "read input")
}

func TestExitErrorChain(t *testing.T) {
	f := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}
	err := f.Error(ExitFailure, ErrCodeNotFound, "No book found with given ID.", library.ErrNotFound)
	assert.Equal(t, "No book found with given ID.: no such id", err.Error())
	assert.ErrorIs(t, err, library.ErrNotFound)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.True(t, exitErr.Reported())

	err = f.Error(ExitCommandError, ErrCodeInvalidArgument, "Invalid year.", nil)
	assert.Equal(t, "Invalid year.", err.Error())
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}
