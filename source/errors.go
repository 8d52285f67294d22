package source

import (
	"errors"
	"fmt"

	"github.com/poiesic/catalogsync/core"
)

const maxErrorBody = 500

var (
	// ErrNoBaseURL is returned when the client is built without a base URL.
	ErrNoBaseURL = errors.New("source: base URL is required")

	// ErrInvalidPageSize is returned for a page size below one.
	ErrInvalidPageSize = errors.New("source: page size must be positive")

	// ErrMalformedBody indicates the response was not valid JSON.
	ErrMalformedBody = errors.New("source: malformed response body")
)

// ResponseError is a non-2xx answer from the source API. It is never retried.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("source: status %d: %s", e.StatusCode, e.Body)
}

func (e *ResponseError) Unwrap() error {
	return core.ErrUpstreamResponse
}

// IsTransient reports whether err is worth retrying: a timeout or a
// connection-level failure. Response errors are not transient.
func IsTransient(err error) bool {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return false
	}
	return core.IsTransient(err)
}
