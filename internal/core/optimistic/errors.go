package optimistic

import (
	"errors"
	"fmt"

	"Tally/internal/core/posts"
)

var (
	// ErrMutationInFlight is returned when the same entity already has a
	// pending mutation of the same kind. The request is rejected, not queued.
	ErrMutationInFlight = errors.New("mutation already in flight")

	// ErrEntityNotFound is returned when the entity is not in the store
	ErrEntityNotFound = fmt.Errorf("optimistic: %w", posts.ErrNotFound)

	// ErrRolledBack wraps the confirm error after the previous snapshot was restored
	ErrRolledBack = errors.New("mutation rolled back")

	// ErrConfirmTimeout is returned when confirm did not finish within the coordinator timeout
	ErrConfirmTimeout = errors.New("mutation confirm timed out")
)
