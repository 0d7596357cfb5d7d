package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Order refused or failed
	ExitCommandError = 2 // Command error (bad config, unreadable session, database unavailable, etc.)
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric    = "E001" // Generic/unknown error
	ErrCodeValidation = "E002" // Submission refused
	ErrCodeConfig     = "E003" // Configuration invalid
	ErrCodeSession    = "E004" // Session could not be read or written
	ErrCodeOrderLog   = "E005" // Order log unavailable
	ErrCodeNotFound   = "E006" // Order not found
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // order log run correlation
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs data as JSON, or calls text to render it for humans.
// A nil text prints data with fmt.Fprintln.
func (f *OutputFormatter) Success(data any, text func(io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if text == nil {
		fmt.Fprintln(f.Writer, data)
		return nil
	}
	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports an error through the formatter and returns the ExitError the
// command should return.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	_ = f.Error(code, message, errDetails(err))
	return WrapExitError(exitCode, message, err)
}

func errDetails(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Live reports whether status changes should be streamed as they happen:
// text output going to a terminal.
func (f *OutputFormatter) Live() bool {
	if f.Format != "text" {
		return false
	}
	file, ok := f.Writer.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
