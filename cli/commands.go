package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title> <author> <year>",
		Short: "Add a book to the catalog",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			year, err := strconv.Atoi(strings.TrimSpace(args[2]))
			if err != nil {
				return f.Error(ExitCommandError, ErrCodeInvalidArgument, "Invalid year. Please enter a valid number.", err)
			}
			b := opts.Store.Add(args[0], args[1], year)
			return f.Success(b, "Book added successfully: "+b.String())
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			books := opts.Store.List()
			if dbPath != "" {
				var err error
				if books, err = opts.querySnapshot(dbPath, (*library.Snapshot).Books); err != nil {
					return f.Error(ExitCommandError, ErrCodeSnapshot, fmt.Sprintf("Reading %s failed.", dbPath), err)
				}
			}
			return writeBooks(cmd, f, books, "No books in the library yet.")
		},
	}
	cmd.Flags().StringVar(&dbPath, "sqlite", "", "read from a SQLite snapshot written by export")
	return cmd
}

// NewSearchCommand creates the search command. Without a query every book matches.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search books by title (case-insensitive)",
		Long: `Search matches title substrings ignoring case. With --sqlite the query
runs against an exported snapshot, where case folding is ASCII only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q string
			if len(args) == 1 {
				q = args[0]
			}
			f := opts.formatter(cmd)
			found := opts.Store.SearchByTitle(q)
			if dbPath != "" {
				var err error
				found, err = opts.querySnapshot(dbPath, func(snap *library.Snapshot) ([]library.Book, error) {
					return snap.SearchTitle(q)
				})
				if err != nil {
					return f.Error(ExitCommandError, ErrCodeSnapshot, fmt.Sprintf("Searching %s failed.", dbPath), err)
				}
			}
			return writeBooks(cmd, f, found, "No matching books found.")
		},
	}
	cmd.Flags().StringVar(&dbPath, "sqlite", "", "search a SQLite snapshot written by export")
	return cmd
}

func writeBooks(cmd *cobra.Command, f *OutputFormatter, books []library.Book, empty string) error {
	if f.isJSON() {
		return f.Success(books, "")
	}
	if len(books) == 0 {
		return f.Success(books, empty)
	}
	return renderTable(cmd.OutOrStdout(), books)
}

func (opts *RootOptions) querySnapshot(dbPath string, q func(*library.Snapshot) ([]library.Book, error)) ([]library.Book, error) {
	snap, err := library.OpenSnapshot(dbPath)
	if err == nil {
		defer snap.Close()
		var books []library.Book
		if books, err = q(snap); err == nil {
			return books, nil
		}
	}
	opts.Logger.Error("query snapshot", "path", dbPath, "err", err)
	return nil, err
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			id, err := parseID(args[0])
			if err != nil {
				return f.Error(ExitCommandError, ErrCodeInvalidArgument, "Invalid ID. Please enter a valid number.", err)
			}
			b, ok := opts.Store.Get(id)
			if !ok {
				return f.Error(ExitFailure, ErrCodeNotFound, "No book found with given ID.", library.ErrNotFound)
			}
			return f.Success(b, b.String())
		},
	}
}

// NewBorrowCommand creates the borrow command.
func NewBorrowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <id>",
		Short: "Mark a book as borrowed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCirculation(opts, cmd, args[0], opts.Store.Borrow)
		},
	}
}

// NewReturnCommand creates the return command.
func NewReturnCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "return <id>",
		Short: "Mark a borrowed book as returned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCirculation(opts, cmd, args[0], opts.Store.Return)
		},
	}
}

func runCirculation(opts *RootOptions, cmd *cobra.Command, idArg string, op func(int64) library.Result) error {
	f := opts.formatter(cmd)
	id, err := parseID(idArg)
	if err != nil {
		return f.Error(ExitCommandError, ErrCodeInvalidArgument, "Invalid ID. Please enter a valid number.", err)
	}
	res := op(id)
	if !res.OK {
		return f.Error(ExitFailure, res.Reason.String(), res.Message, res.Err())
	}
	return f.Success(res, res.Message)
}

func parseID(arg string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
}

// ExportResult is the JSON payload of the export command.
type ExportResult struct {
	Path  string `json:"path"`
	Books int    `json:"books"`
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <sqlite-db>",
		Short: "Export the catalog to a SQLite database",
		Long: `Export writes every book into the books table of a SQLite database,
replacing what a previous export left there. The text data file stays the
source of truth; the database is a snapshot for ad-hoc queries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			n, err := opts.Store.ExportSQLite(args[0])
			if err != nil {
				opts.Logger.Error("export", "path", args[0], "err", err)
				return f.Error(ExitCommandError, ErrCodeExport, fmt.Sprintf("Export to %s failed.", args[0]), err)
			}
			return f.Success(ExportResult{Path: args[0], Books: n}, fmt.Sprintf("Exported %d book(s) to %s", n, args[0]))
		},
	}
}
