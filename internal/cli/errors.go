// Package cli provides shared configuration and exit handling for the
// planmatrix CLI.
package cli

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes. Every failure, including an unsatisfiable matrix or a
// malformed schema, exits 1; anything the tool completed exits 0.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ExitError wraps an error with an exit code.
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

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", exitErr.Error())
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitFailure)
}

// FailureError creates an ExitError with ExitFailure code.
func FailureError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitFailure, Message: msg, Err: err}
}
