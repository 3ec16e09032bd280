package trending

import "errors"

var (
	// ErrCircuitOpen is returned when the trending endpoint has failed repeatedly
	// and is not being called until the open period ends
	ErrCircuitOpen = errors.New("trending circuit breaker is open")

	// ErrNoSource is returned by Fetch when the engine runs without a server source
	ErrNoSource = errors.New("no trending source configured")
)
