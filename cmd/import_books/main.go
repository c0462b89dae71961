package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"library-catalog/cli"
	"library-catalog/library"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import_books", flag.ContinueOnError)
	fs.SetOutput(stderr)
	manifestPath := fs.String("manifest", "books.yaml", "YAML manifest listing the books to import")
	dataFile := fs.String("data", library.DefaultDataFile, "catalog data file")
	logLevel := fs.String("log-level", "warn", "log level (debug|info|warn|error)")
	if err := fs.Parse(args); err != nil {
		return cli.ExitCommandError
	}

	logger, err := cli.NewLogger(stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return cli.ExitCommandError
	}

	f, err := os.Open(*manifestPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening manifest: %v\n", err)
		return cli.ExitFailure
	}
	entries, err := library.ReadManifest(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(stderr, "Error reading manifest: %v\n", err)
		return cli.ExitFailure
	}

	store := library.NewStore(*dataFile, library.WithLogger(logger))
	fmt.Fprintf(stdout, "Importing %d book(s) from %s into %s...\n", len(entries), *manifestPath, store.Path())

	successCount := 0
	errorCount := 0
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			fmt.Fprintf(stdout, "Entry %d: ERROR - %v\n", i+1, err)
			errorCount++
			continue
		}
		fmt.Fprintf(stdout, "Importing: %s by %s... ", e.Title, e.Author)
		b := store.Add(e.Title, e.Author, e.Year)
		fmt.Fprintf(stdout, "SUCCESS (ID: %d)\n", b.ID)
		successCount++
	}

	fmt.Fprintf(stdout, "\nImport complete!\n")
	fmt.Fprintf(stdout, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(stdout, "Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Fprintln(stdout, "\nCatalog:")
		fmt.Fprintf(stdout, "%-4s %-50s %-30s\n", "ID", "Title", "Author")
		fmt.Fprintln(stdout, strings.Repeat("-", 86))
		for _, b := range store.List() {
			fmt.Fprintf(stdout, "%-4d %-50s %-30s\n", b.ID, cli.TruncateString(b.Title, 50), cli.TruncateString(b.Author, 30))
		}
	}
	if errorCount > 0 {
		return cli.ExitFailure
	}
	return cli.ExitSuccess
}
