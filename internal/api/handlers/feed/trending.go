package feed

import (
	"net/http"

	"Tally/internal/api/handlers"
	"Tally/internal/api/middleware"
	"Tally/internal/backend"
	"Tally/internal/core/posts"
)

// TrendingHandler serves the server-ranked trending list
type TrendingHandler struct {
	repo  posts.Repository
	limit int
}

// NewTrendingHandler creates a new trending handler returning at most limit posts
func NewTrendingHandler(repo posts.Repository, limit int) *TrendingHandler {
	if limit <= 0 {
		limit = 10
	}
	return &TrendingHandler{repo: repo, limit: limit}
}

// HandleTrending returns trending posts
// GET /api/posts/trending
func (h *TrendingHandler) HandleTrending(w http.ResponseWriter, r *http.Request) {
	views, err := h.repo.Trending(r.Context(), middleware.GetUserID(r), h.limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteData(w, http.StatusOK, backend.TrendingData{Posts: toWirePosts(views)})
}
