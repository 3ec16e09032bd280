package feed

import (
	"net/http"
	"strconv"
	"strings"

	"Tally/internal/api/handlers"
	"Tally/internal/api/middleware"
	"Tally/internal/backend"
	"Tally/internal/core/posts"
)

const defaultPerPage = 10

// ListPostsHandler serves the paginated feed, profile and search listings
type ListPostsHandler struct {
	repo posts.Repository
}

// NewListPostsHandler creates a new list handler
func NewListPostsHandler(repo posts.Repository) *ListPostsHandler {
	return &ListPostsHandler{repo: repo}
}

// HandleList lists posts
// GET /api/posts?page=1&per_page=10&search=...&type=posts|users|all&author_id=...
func (h *ListPostsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.repo.List(r.Context(), middleware.GetUserID(r), q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	handlers.WriteData(w, http.StatusOK, backend.FeedPageData{
		Posts:       toWirePosts(result.Posts),
		PinnedPosts: toWirePosts(result.Pinned),
		Users:       toWireUsers(result.Users),
		Pagination:  toWirePagination(result.Info),
	})
}

func parseListQuery(r *http.Request) (posts.ListQuery, error) {
	values := r.URL.Query()
	q := posts.ListQuery{
		Search:   strings.TrimSpace(values.Get("search")),
		Type:     posts.SearchType(values.Get("type")),
		AuthorID: posts.ID(values.Get("author_id")),
		Page:     1,
		PerPage:  defaultPerPage,
	}

	if s := values.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return q, posts.NewValidationError("page", "page must be a positive integer")
		}
		q.Page = page
	}

	if s := values.Get("per_page"); s != "" {
		perPage, err := strconv.Atoi(s)
		if err != nil {
			return q, posts.NewValidationError("per_page", "per_page must be an integer")
		}
		q.PerPage = perPage
	}

	return q, nil
}
