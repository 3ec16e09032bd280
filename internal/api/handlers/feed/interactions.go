package feed

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Tally/internal/api/handlers"
	"Tally/internal/api/middleware"
	"Tally/internal/backend"
	"Tally/internal/core/posts"
)

// InteractionHandler handles likes, follows and deletions.
// All routes require authentication.
type InteractionHandler struct {
	repo posts.Repository
}

// NewInteractionHandler creates a new interaction handler
func NewInteractionHandler(repo posts.Repository) *InteractionHandler {
	return &InteractionHandler{repo: repo}
}

// HandleLike toggles the viewer's like
// POST /api/posts/{id}/like?kind=post
func (h *InteractionHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	switch kind := posts.EntityKind(r.URL.Query().Get("kind")); kind {
	case "", posts.KindPost:
	default:
		// comments live outside this backend
		handlers.WriteError(w, http.StatusUnprocessableEntity, "Unsupported like kind", map[string][]string{
			"kind": {"only posts can be liked"},
		})
		return
	}

	liked, count, err := h.repo.ToggleLike(r.Context(), viewerID, posts.ID(chi.URLParam(r, "id")))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteData(w, http.StatusOK, backend.LikeData{
		IsLiked:    backend.FlexBool(liked),
		LikesCount: backend.FlexInt(count),
	})
}

// HandleFollow toggles whether the viewer follows a user
// POST /api/users/{id}/follow
func (h *InteractionHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	following, count, err := h.repo.ToggleFollow(r.Context(), viewerID, posts.ID(chi.URLParam(r, "id")))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteData(w, http.StatusOK, backend.FollowData{
		IsFollowing:    backend.FlexBool(following),
		FollowersCount: backend.FlexInt(count),
	})
}

// HandleDelete deletes a post authored by the viewer
// DELETE /api/posts/{id}
func (h *InteractionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireViewer(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), viewerID, posts.ID(chi.URLParam(r, "id"))); err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteData(w, http.StatusOK, map[string]bool{"deleted": true})
}

func requireViewer(w http.ResponseWriter, r *http.Request) (posts.ID, bool) {
	viewerID := middleware.GetUserID(r)
	if viewerID.IsZero() {
		handlers.WriteError(w, http.StatusUnauthorized, "Authentication required", nil)
		return "", false
	}
	return viewerID, true
}
