package analysis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrInvalidDocumentType is returned for a type tag other than invoice or payslip.
	ErrInvalidDocumentType = errors.New("invalid document type")

	// ErrNilDocument is returned when no document is supplied.
	ErrNilDocument = errors.New("document is nil")

	// ErrDocumentTypeMismatch is returned when the tag does not match the document's own type.
	ErrDocumentTypeMismatch = errors.New("document type does not match document")

	// ErrNoProviders is recorded when no provider could be tried for an analysis.
	ErrNoProviders = errors.New("no language model provider available")
)

// Provider sends a prompt to a hosted language model and returns its text answer.
// Implementations own authentication and request shape; sampling settings are fixed at construction.
type Provider interface {
	Name() string
	Model() string
	SendPrompt(ctx context.Context, prompt string) (string, error)
}

// ProviderError is a non-rate-limit provider failure
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates a provider returned HTTP 429.
// The engine skips the provider until RetryAfter has elapsed.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}
