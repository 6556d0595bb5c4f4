package serviceconfig

import (
	"errors"
	"fmt"
)

const (
	// CodeFetch classifies transport failures, non-200 responses, invalid
	// response bodies, and pagination exhausted without an active rollout.
	CodeFetch = 1
	// CodeValidation classifies identity and structure failures in a
	// fetched configuration document.
	CodeValidation = 2
)

// FetchError is the structured error surface of the fetch-and-validate
// pipeline. Message carries enough context (URL, status, reason) to
// diagnose a failure without re-running.
type FetchError struct {
	Code    int
	Message string
}

func (e *FetchError) Error() string {
	return e.Message
}

// Errorf constructs a FetchError with the given code.
func Errorf(code int, format string, args ...any) *FetchError {
	return &FetchError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code for process exit handling. Errors outside
// the FetchError surface are treated as fetch-class.
func CodeOf(err error) int {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeFetch
}
