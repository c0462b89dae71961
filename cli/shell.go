package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/library"
)

// NewShellCommand creates the shell command, the same menu the root command
// runs by default.
func NewShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd)
		},
	}
}

func runShell(opts *RootOptions, cmd *cobra.Command) error {
	in := cmd.InOrStdin()
	if err := NewShell(opts.Store, in, cmd.OutOrStdout(), isTerminal(in)).Run(); err != nil {
		opts.Logger.Error("read input", "err", err)
		return exitError(ExitCommandError, fmt.Errorf("read input: %w", err))
	}
	return nil
}

// MaxInputLine is the longest operator line the shell accepts.
const MaxInputLine = 1 << 20

// Shell is the interactive menu. It validates operator input and only
// talks to the Store through its public operations.
type Shell struct {
	store  *library.Store
	sc     *bufio.Scanner
	out    io.Writer
	prompt bool
}

// NewShell creates a menu reading commands from in. When prompt is false
// the menu and field prompts are not printed, which suits piped input.
func NewShell(store *library.Store, in io.Reader, out io.Writer, prompt bool) *Shell {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), MaxInputLine)
	return &Shell{store: store, sc: sc, out: out, prompt: prompt}
}

// Run loops until the operator chooses exit or input ends. It returns the
// read error when input could not be consumed, e.g. a line longer than
// MaxInputLine.
func (sh *Shell) Run() error {
	for {
		if sh.prompt {
			sh.printMenu()
		}
		choice, ok := sh.readLine()
		if !ok {
			return sh.sc.Err()
		}

		switch choice {
		case "1":
			sh.handleAddBook()
		case "2":
			sh.handleListBooks()
		case "3":
			sh.handleSearch()
		case "4":
			sh.handleBorrow()
		case "5":
			sh.handleReturn()
		case "0":
			fmt.Fprintln(sh.out, "Exiting the program. Goodbye!")
			return nil
		default:
			fmt.Fprintln(sh.out, "Invalid choice. Please try again.")
		}
	}
}

func (sh *Shell) printMenu() {
	fmt.Fprintln(sh.out, "\n===== LIBRARY MANAGEMENT SYSTEM =====")
	fmt.Fprintln(sh.out, "1) Add a new book")
	fmt.Fprintln(sh.out, "2) List all books")
	fmt.Fprintln(sh.out, "3) Search by title")
	fmt.Fprintln(sh.out, "4) Borrow a book")
	fmt.Fprintln(sh.out, "5) Return a book")
	fmt.Fprintln(sh.out, "0) Exit")
	fmt.Fprint(sh.out, "Select an option: ")
}

func (sh *Shell) readLine() (string, bool) {
	if !sh.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.sc.Text()), true
}

func (sh *Shell) ask(prompt string) (string, bool) {
	if sh.prompt {
		fmt.Fprint(sh.out, prompt)
	}
	return sh.readLine()
}

func (sh *Shell) handleAddBook() {
	title, ok := sh.ask("Title: ")
	if !ok {
		return
	}
	author, ok := sh.ask("Author: ")
	if !ok {
		return
	}
	yearStr, ok := sh.ask("Publish year (e.g., 2020): ")
	if !ok {
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		fmt.Fprintln(sh.out, "Invalid year. Please enter a valid number.")
		return
	}

	added := sh.store.Add(title, author, year)
	fmt.Fprintf(sh.out, "Book added successfully: %s\n", added)
}

func (sh *Shell) handleListBooks() {
	books := sh.store.List()
	if len(books) == 0 {
		fmt.Fprintln(sh.out, "No books in the library yet.")
		return
	}
	fmt.Fprintln(sh.out, "\n--- ALL BOOKS ---")
	for _, b := range books {
		fmt.Fprintln(sh.out, b)
	}
}

func (sh *Shell) handleSearch() {
	q, ok := sh.ask("Enter a title keyword: ")
	if !ok {
		return
	}
	found := sh.store.SearchByTitle(q)
	if len(found) == 0 {
		fmt.Fprintln(sh.out, "No matching books found.")
		return
	}
	fmt.Fprintln(sh.out, "\n--- SEARCH RESULTS ---")
	for _, b := range found {
		fmt.Fprintln(sh.out, b)
	}
}

func (sh *Shell) handleBorrow() {
	id, ok := sh.askID("Enter book ID to borrow: ")
	if !ok {
		return
	}
	fmt.Fprintln(sh.out, sh.store.Borrow(id).Message)
}

func (sh *Shell) handleReturn() {
	id, ok := sh.askID("Enter book ID to return: ")
	if !ok {
		return
	}
	fmt.Fprintln(sh.out, sh.store.Return(id).Message)
}

// askID reads a book id. It reports false on end of input or after telling
// the operator the id was not a number.
func (sh *Shell) askID(prompt string) (int64, bool) {
	idStr, ok := sh.ask(prompt)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		fmt.Fprintln(sh.out, "Invalid ID. Please enter a valid number.")
		return 0, false
	}
	return id, true
}
