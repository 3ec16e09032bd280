package pagination

import "errors"

var (
	// ErrLoadInProgress is returned when a page load is already in flight.
	// Concurrent loads are rejected, not queued.
	ErrLoadInProgress = errors.New("page load already in progress")

	// ErrNoNextPage is returned when the server reported no further pages
	ErrNoNextPage = errors.New("no next page")

	// ErrSuperseded is returned when the list was reset while a load was in flight.
	// The fetched page is discarded.
	ErrSuperseded = errors.New("page load superseded by reset")
)

// IsNoop reports whether err means the load was skipped without touching state
func IsNoop(err error) bool {
	return errors.Is(err, ErrLoadInProgress) || errors.Is(err, ErrNoNextPage) || errors.Is(err, ErrSuperseded)
}
