package feed

import (
	"errors"
	"log/slog"
	"net/http"

	"Tally/internal/api/handlers"
	"Tally/internal/core/posts"
)

// handleServiceError converts repository errors to envelope responses
func handleServiceError(w http.ResponseWriter, err error) {
	var verr *posts.ValidationError
	switch {
	case errors.As(err, &verr):
		handlers.WriteError(w, http.StatusUnprocessableEntity, verr.Message, map[string][]string{
			verr.Field: {verr.Message},
		})
	case errors.Is(err, posts.ErrInvalidSearchType):
		handlers.WriteError(w, http.StatusUnprocessableEntity, "Invalid search type", map[string][]string{
			"type": {"type must be one of posts, users, all"},
		})
	case errors.Is(err, posts.ErrSelfFollow):
		handlers.WriteError(w, http.StatusUnprocessableEntity, "You cannot follow yourself", nil)
	case errors.Is(err, posts.ErrNotFound):
		handlers.WriteError(w, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, posts.ErrForbidden):
		handlers.WriteError(w, http.StatusForbidden, "You are not allowed to do that", nil)
	default:
		slog.Error("feed handler error", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "An internal error occurred", nil)
	}
}
