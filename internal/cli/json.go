package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/plesql/plesql/internal/errs"
)

// Global JSON output flag
var jsonOutput bool

// stdout is where command results go. Tests replace it.
var stdout io.Writer = os.Stdout

// Response is the standard JSON envelope for all CLI output.
type Response struct {
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *ErrorInfo `json:"error,omitempty"`
	Meta  *Meta      `json:"meta,omitempty"`
}

// ErrorInfo contains structured error information.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// LanguageErrorDetails describes a script error inside ErrorInfo.Details.
type LanguageErrorDetails struct {
	Kind   errs.Kind `json:"kind"`
	Line   int       `json:"line,omitempty"`
	Column int       `json:"column,omitempty"`
}

// Meta contains metadata about the response.
type Meta struct {
	Count      int    `json:"count,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// exitError carries a failure that has already been reported, so the
// process exits non-zero without Cobra printing it again.
type exitError struct {
	err error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// outputJSON outputs the response as JSON to stdout.
func outputJSON(resp Response) {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

// outputSuccess outputs a successful JSON response.
func outputSuccess(data any, meta *Meta) {
	outputJSON(Response{
		OK:   true,
		Data: data,
		Meta: meta,
	})
}

// outputError outputs an error JSON response.
func outputError(code, message string, details any, suggestion string) {
	outputJSON(Response{
		OK: false,
		Error: &ErrorInfo{
			Code:       code,
			Message:    message,
			Details:    details,
			Suggestion: suggestion,
		},
	})
}

// isJSONOutput returns true if JSON output is enabled.
func isJSONOutput() bool {
	return jsonOutput
}

// errorDetails returns structured details for script errors.
func errorDetails(err error) any {
	if errs.KindOf(err) == "" {
		return nil
	}
	e := errs.From(err)
	return LanguageErrorDetails{Kind: e.Kind, Line: e.Line, Column: e.Column}
}

// handleError handles an error appropriately based on output mode.
// In JSON mode, outputs a JSON error and returns an already-reported error
// so the exit status is still non-zero.
func handleError(code string, err error, suggestion string) error {
	if jsonOutput {
		outputError(code, err.Error(), errorDetails(err), suggestion)
		return &exitError{err: err}
	}
	if suggestion != "" {
		return fmt.Errorf("%w\n\n%s", err, suggestion)
	}
	return err
}

// handleErrorMsg handles an error message appropriately based on output mode.
func handleErrorMsg(code, message, suggestion string) error {
	return handleError(code, fmt.Errorf("%s", message), suggestion)
}
