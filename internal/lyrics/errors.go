package lyrics

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound means the lookup completed and nothing matched.
	ErrNotFound = errors.New("lyrics not found")

	// ErrInvalidQuery is returned when a query has no usable title.
	ErrInvalidQuery = errors.New("query needs at least a title")

	ErrUnsupportedScheme = errors.New("lrclib url must be http or https")
)

// StatusError is an unexpected http status from the lyrics server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("lrclib returned status %d", e.Code)
	}
	return fmt.Sprintf("lrclib returned status %d: %s", e.Code, e.Body)
}

// Transient reports whether retrying the request could succeed.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// FetchError is returned once every attempt of a fetch failed.
type FetchError struct {
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("lyrics fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
