package prismic

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup by UID or ID matches no document.
	ErrNotFound = errors.New("document not found")
	// ErrForeignCursor is returned when a next-page URL does not point at the configured API.
	ErrForeignCursor = errors.New("cursor does not belong to the configured content API")
	// ErrNoMasterRef is returned when the API root lists no master ref.
	ErrNoMasterRef = errors.New("content API returned no master ref")
)

// APIError is a non-2xx response from the content API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("content API returned status %d: %s", e.StatusCode, e.Body)
}
