package backend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrTransient covers timeouts, lost connectivity, rate limiting and 5xx
	// responses. Retrying the same action may succeed.
	ErrTransient = errors.New("transient network error")

	// ErrUnauthorized is returned when no token is available or the server rejected it
	ErrUnauthorized = errors.New("not authenticated")
)

// RejectionError is a {"success": false} envelope or a 4xx response.
// Message is the server's human-readable text and is shown to the user verbatim.
type RejectionError struct {
	Fields  map[string][]string
	Message string
	Status  int
}

func (e *RejectionError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
	}

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	details := make([]string, 0, len(keys))
	for _, k := range keys {
		details = append(details, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return fmt.Sprintf("server rejected request (%d): %s [%s]", e.Status, e.Message, strings.Join(details, "; "))
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsRejection reports whether the server rejected the request
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// UserMessage returns the text to show for err. Rejections carry the
// server's own message; everything else gets a generic sentence.
func UserMessage(err error) string {
	var rej *RejectionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rej) && rej.Message != "":
		return rej.Message
	case IsAuthError(err):
		return "Please sign in to continue."
	case IsTransient(err):
		return "Network problem. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}
