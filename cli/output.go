package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Business-rule failure (unknown id, already borrowed, not borrowed)
	ExitCommandError = 2 // Command error (bad arguments, unreadable config, export failure)
)

// Error codes reported in JSON output. Business-rule codes match the
// text form of library.Reason.
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeAlreadyBorrowed = "already_borrowed"
	ErrCodeNotBorrowed     = "not_borrowed"
	ErrCodeInvalidArgument = "invalid_argument"
	ErrCodeExport          = "export_failed"
	ErrCodeSnapshot        = "snapshot_failed"
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code int
	Err  error

	reported bool
}

func exitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// Reported is true when the OutputFormatter already showed the failure.
func (e *ExitError) Reported() bool { return e.reported }

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data"`            // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

// Success outputs a successful result. In text mode text is printed as is.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.isJSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs a failure and returns the matching ExitError.
func (f *OutputFormatter) Error(exitCode int, code, message string, cause error) error {
	if f.isJSON() {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	} else {
		fmt.Fprintln(f.Writer, message)
	}
	err := errors.New(message)
	if cause != nil {
		err = fmt.Errorf("%s: %w", message, cause)
	}
	exitErr := exitError(exitCode, err)
	exitErr.reported = true
	return exitErr
}
