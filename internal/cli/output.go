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
	ExitFailure      = 1 // Script or test failure (script raised, scenarios failed, replay diverged)
	ExitCommandError = 2 // Command error (invalid paths, database not found, bad flags)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric       = "E001" // Generic/unknown error
	ErrCodeReadFailed    = "E002" // Input could not be read
	ErrCodeEmptySource   = "E003" // Script is empty
	ErrCodeSourceTooLong = "E004" // Script exceeds limits.max_source_length
	ErrCodeNotFound      = "E005" // Path or trace not found
	ErrCodeInvalidFlag   = "E006" // Flag value rejected
	ErrCodeWriteFailed   = "E007" // File write error
	ErrCodeStore         = "E008" // Trace archive error
	ErrCodeTestFailed    = "E009" // One or more scenarios failed
	ErrCodeScriptFailed  = "E010" // Script stopped with an error
	ErrCodeInvalidTrace  = "E011" // Trace JSON failed schema validation
	ErrCodeNotReplayable = "E012" // Trace cannot be replayed
	ErrCodeReplayDiffers = "E013" // Replay diverged from the archived trace
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set when the command already printed the failure as
	// part of its output; Execute then only sets the exit code.
	Reported bool
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

// reported marks err as already shown to the user.
func reported(err *ExitError) *ExitError {
	err.Reported = true
	return err
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
	ErrWriter io.Writer // verbose and diagnostic output; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // trace the response is about
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`    // "E001", "E010", etc.
	Message string `json:"message"` // human-readable message
	Details any    `json:"details,omitempty"`
}

// JSON writes an indented CLIResponse. A non-nil cliErr marks the
// response as an error; data is still included.
func (f *OutputFormatter) JSON(data any, cliErr *CLIError, traceID string) error {
	resp := CLIResponse{Status: "ok", Data: data, Error: cliErr, TraceID: traceID}
	if cliErr != nil {
		resp.Status = "error"
	}
	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(resp)
}

// Error reports a failed command on the diagnostic writer: a JSON error
// envelope, or "Error: <message>" in text mode. Verbose text output adds
// the underlying cause.
func (f *OutputFormatter) Error(err error) {
	w := f.errWriter()
	code, message := splitCode(err)

	if f.Format == "json" {
		resp := CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message}}
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err != nil {
			resp.Error.Details = exitErr.Err.Error()
		}
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		_ = encoder.Encode(resp)
		return
	}

	var exitErr *ExitError
	if f.Verbose && errors.As(err, &exitErr) && exitErr.Err != nil {
		fmt.Fprintf(w, "Error: %s\n  cause: %v\n", exitErr.Message, exitErr.Err)
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

// splitCode separates the "E0xx: " prefix that command errors carry.
// Errors without one get ErrCodeGeneric.
func splitCode(err error) (code, message string) {
	msg := err.Error()
	if len(msg) > 6 && msg[0] == 'E' && msg[4] == ':' && msg[5] == ' ' {
		return msg[:4], msg[6:]
	}
	return ErrCodeGeneric, msg
}

// VerboseLog writes a diagnostic line when verbose mode is on. It never
// goes to Writer when ErrWriter is set, so JSON output stays clean.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Execute runs the CLI with args and returns the process exit code.
// Errors are reported on stderr in the format the user chose.
func Execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Reported {
		return exitErr.Code
	}

	format := opts.Format
	if !isValidFormat(format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr, Verbose: opts.Verbose}
	f.Error(err)
	return GetExitCode(err)
}
