package feed

import "errors"

var (
	// ErrSearchActive is returned by LoadMore while a discovery search is shown
	ErrSearchActive = errors.New("feed pagination is paused during search")

	// ErrNoProfile is returned by LoadMoreProfile before any profile was loaded
	ErrNoProfile = errors.New("no profile loaded")
)
