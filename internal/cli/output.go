package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Exit codes for tasklog commands.
const (
	ExitSuccess      = 0 // Command did what it was asked
	ExitFailure      = 1 // Scenario failed, schema violation, non-deterministic replay
	ExitCommandError = 2 // Bad arguments, missing files, unreadable journal
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Response is the envelope every command writes under --format json.
// SessionID names the journal session the data came from, when there is one.
type Response struct {
	Status    string         `json:"status"`
	SessionID string         `json:"session_id,omitempty"`
	Data      any            `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError reports a failure with one of the ErrCode values.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

const (
	statusOK    = "ok"
	statusError = "error"
)

// Output writes command results in the format chosen by --format.
type Output struct {
	Format  string
	Verbose bool
	Out     io.Writer

	// Diag receives verbose lines so they never interleave with JSON on Out.
	Diag io.Writer
}

// newOutput binds an Output to cmd's writers.
func newOutput(cmd *cobra.Command, opts *RootOptions) *Output {
	return &Output{
		Format:  opts.Format,
		Verbose: opts.Verbose,
		Out:     cmd.OutOrStdout(),
		Diag:    cmd.ErrOrStderr(),
	}
}

// JSON reports whether results are written as a Response.
func (o *Output) JSON() bool {
	return o.Format == "json"
}

// Result writes data as a successful Response. Text output is the caller's.
func (o *Output) Result(sessionID string, data any) error {
	return o.encode(Response{Status: statusOK, SessionID: sessionID, Data: data})
}

// Failure writes data as a failed Response in JSON mode and returns the
// ExitError for exit. In text mode the caller has already printed data.
func (o *Output) Failure(exit int, code, message string, data any) error {
	if o.JSON() {
		resp := Response{
			Status: statusError,
			Data:   data,
			Error:  &ResponseError{Code: code, Message: message},
		}
		if err := o.encode(resp); err != nil {
			return err
		}
	}
	return NewExitError(exit, message)
}

// Problem reports an error that produced no data, in either format, and
// returns the ExitError for exit.
func (o *Output) Problem(exit int, code, message string, details any) error {
	if o.JSON() {
		resp := Response{
			Status: statusError,
			Error:  &ResponseError{Code: code, Message: message, Details: details},
		}
		if err := o.encode(resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(o.Out, "Error [%s]: %s\n", code, message)
		if o.Verbose && details != nil {
			fmt.Fprintf(o.Out, "Details: %v\n", details)
		}
	}
	return NewExitError(exit, fmt.Sprintf("%s: %s", code, message))
}

// Logf writes a diagnostic line when --verbose is set.
func (o *Output) Logf(format string, args ...any) {
	if !o.Verbose {
		return
	}
	w := o.Diag
	if w == nil {
		w = o.Out
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (o *Output) encode(resp Response) error {
	encoder := json.NewEncoder(o.Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}
