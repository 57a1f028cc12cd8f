// Package errors defines the categorized errors raised while collecting and
// exporting the leaderboard.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryProvider represents transport failures talking to the leaderboard API
	CategoryProvider ErrorCategory = "provider"
	// CategoryHTTPStatus represents non-2xx responses from the leaderboard API
	CategoryHTTPStatus ErrorCategory = "http_status"
	// CategoryDecode represents malformed response bodies or field type mismatches
	CategoryDecode ErrorCategory = "decode"
	// CategoryConsistency represents a fetched record count that disagrees with totalCount
	CategoryConsistency ErrorCategory = "consistency"
	// CategoryWrite represents sink failures
	CategoryWrite ErrorCategory = "write"
	// CategoryConfig represents invalid configuration
	CategoryConfig ErrorCategory = "config"
)

// CategorizedError represents an error with category and code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates an error for a request that never produced a response
func NewProviderError(offset int, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryProvider,
		Code:     "PROVIDER_ERROR",
		Message:  fmt.Sprintf("leaderboard request failed at offset %d", offset),
		Cause:    cause,
		Details: map[string]interface{}{
			"offset": offset,
		},
	}
}

// NewHTTPStatusError creates an error for a non-2xx response
func NewHTTPStatusError(offset, statusCode int, body string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryHTTPStatus,
		StatusCode: statusCode,
		Code:       "HTTP_STATUS",
		Message:    fmt.Sprintf("leaderboard API returned %d at offset %d", statusCode, offset),
		Details: map[string]interface{}{
			"offset": offset,
			"status": statusCode,
			"body":   body,
		},
	}
}

// NewDecodeError creates an error for a body or field that could not be decoded
func NewDecodeError(what string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDecode,
		Code:     "DECODE_ERROR",
		Message:  fmt.Sprintf("failed to decode %s", what),
		Cause:    cause,
	}
}

// NewCountMismatchError creates an error for a result set that disagrees with totalCount
func NewCountMismatchError(expected, actual int) *CategorizedError {
	return &CategorizedError{
		Category: CategoryConsistency,
		Code:     "COUNT_MISMATCH",
		Message:  fmt.Sprintf("fetched %d records but first page reported totalCount %d", actual, expected),
		Details: map[string]interface{}{
			"expected": expected,
			"actual":   actual,
		},
	}
}

// NewWriteError creates an error for a sink failure
func NewWriteError(sink, target string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryWrite,
		Code:     "WRITE_ERROR",
		Message:  fmt.Sprintf("%s sink failed writing %s", sink, target),
		Cause:    cause,
		Details: map[string]interface{}{
			"sink":   sink,
			"target": target,
		},
	}
}

// NewUnknownFormatError creates an error for an output format with no registered sink
func NewUnknownFormatError(format string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryConfig,
		Code:     "UNKNOWN_FORMAT",
		Message:  fmt.Sprintf("unknown output format %q (no sink registered)", format),
		Details: map[string]interface{}{
			"format": format,
		},
	}
}

// Categorize returns the first CategorizedError in err's chain, or nil
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}
	return nil
}

// IsCategory reports whether err carries the given category
func IsCategory(err error, category ErrorCategory) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.Category == category
}

// IsRetryable determines if a fetch error is worth another attempt
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryProvider:
		return true
	case CategoryHTTPStatus:
		return catErr.StatusCode == http.StatusTooManyRequests || catErr.StatusCode >= 500
	default:
		return false
	}
}
