package routes

import (
	"github.com/go-chi/chi/v5"

	"Tally/internal/api/handlers/feed"
	"Tally/internal/api/middleware"
	"Tally/internal/core/posts"
)

// RegisterFeedRoutes registers the feed, trending and interaction endpoints.
// Reads accept an optional token so viewer flags are filled in; writes require one.
func RegisterFeedRoutes(r chi.Router, repo posts.Repository, trendingLimit int, auth *middleware.JWTAuth) {
	listHandler := feed.NewListPostsHandler(repo)
	trendingHandler := feed.NewTrendingHandler(repo, trendingLimit)
	interactionHandler := feed.NewInteractionHandler(repo)

	r.With(auth.OptionalAuth).Get("/api/posts", listHandler.HandleList)
	r.With(auth.OptionalAuth).Get("/api/posts/trending", trendingHandler.HandleTrending)

	r.With(auth.RequireAuth).Post("/api/posts/{id}/like", interactionHandler.HandleLike)
	r.With(auth.RequireAuth).Delete("/api/posts/{id}", interactionHandler.HandleDelete)
	r.With(auth.RequireAuth).Post("/api/users/{id}/follow", interactionHandler.HandleFollow)
}
