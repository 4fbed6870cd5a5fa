package fattura

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingSection is returned when a mandatory group of the invoice is absent.
	ErrMissingSection = errors.New("missing mandatory section")

	// ErrMalformedXML is returned when the input is not well-formed XML or has the wrong root.
	ErrMalformedXML = errors.New("malformed invoice XML")
)

// ParseError wraps structural failures of the invoice parser.
// No partial result is ever returned alongside it.
type ParseError struct {
	// Op is the step that failed (e.g., "read", "decode", "header").
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("fattura: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(op string, err error) *ParseError {
	return &ParseError{Op: op, Err: err}
}

func missing(path string) error {
	return newParseError("structure", fmt.Errorf("%w: %s", ErrMissingSection, path))
}
