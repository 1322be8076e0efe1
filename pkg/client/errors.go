package client

import (
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when a successful response carries no data.
var ErrEmptyResponse = errors.New("empty response data")

// HTTPError represents a non-2xx HTTP response from the API.
// Message holds the API's human-readable reason when one was sent.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Reason returns the API's reason string carried by err, or "" when err is not an HTTPError.
func Reason(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return ""
}
