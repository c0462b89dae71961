package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-catalog/library"
)

// RootOptions holds global flags and the state shared by all commands.
type RootOptions struct {
	DataFile   string
	ConfigFile string
	LogLevel   string
	Format     string // "text" | "json"
	Atomic     bool

	Logger *slog.Logger
	Store  *library.Store
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the library command. Without a subcommand it runs
// the interactive menu.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "library",
		Short:         "Single-user library catalog",
		Long:          "Add books, list and search them, and track borrow/return status in a flat text file.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(opts, cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataFile, "data", library.DefaultDataFile, "catalog data file")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().BoolVar(&opts.Atomic, "atomic", false, "save through a temp file and rename")

	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewBorrowCommand(opts))
	cmd.AddCommand(NewReturnCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// setup merges the config file, builds the logger and loads the store.
func (opts *RootOptions) setup(cmd *cobra.Command) error {
	if opts.ConfigFile != "" {
		cfg, err := LoadConfig(opts.ConfigFile)
		if err != nil {
			return exitError(ExitCommandError, fmt.Errorf("load config: %w", err))
		}
		cfg.apply(opts, func(name string) bool { return cmd.Flags().Changed(name) })
	}
	if !slices.Contains(ValidFormats, opts.Format) {
		return exitError(ExitCommandError, fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}
	logger, err := NewLogger(cmd.ErrOrStderr(), opts.LogLevel)
	if err != nil {
		return exitError(ExitCommandError, fmt.Errorf("configure logging: %w", err))
	}
	opts.Logger = logger
	opts.Store = library.NewStore(opts.DataFile,
		library.WithLogger(logger),
		library.WithAtomicSave(opts.Atomic),
	)
	logger.Debug("catalog loaded", "path", opts.DataFile, "books", opts.Store.Len())
	return nil
}

func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
