package feed_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Tally/internal/api/middleware"
	"Tally/internal/api/routes"
	"Tally/internal/backend"
	"Tally/internal/core/feed"
	"Tally/internal/core/optimistic"
	"Tally/internal/core/posts"
	"Tally/internal/core/trending"
	"Tally/internal/db/memory"
)

// newStack runs the dev backend over httptest and points a service at it
// authenticated as viewer.
func newStack(t *testing.T, viewer posts.ID, mode trending.Mode) *feed.Service {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	repo := memory.NewPostRepository(nil)
	repo.AddUser(ctx, posts.User{ID: "u1", Name: "Ada", FollowersCount: 1})
	repo.AddUser(ctx, posts.User{ID: "u2", Name: "Grace", FollowersCount: 5})
	repo.AddPost(ctx, posts.Post{ID: "p1", AuthorID: "u1", Title: "budget basics", LikesCount: 1}, now.Add(-1*time.Hour))
	repo.AddPost(ctx, posts.Post{ID: "p2", AuthorID: "u2", Title: "savings goal", LikesCount: 4}, now.Add(-2*time.Hour))
	repo.AddPost(ctx, posts.Post{ID: "p3", AuthorID: "u2", Title: "rent split"}, now.Add(-3*time.Hour))
	repo.AddPost(ctx, posts.Post{ID: "p4", AuthorID: "u1", Title: "house rules", IsPinned: true}, now.Add(-4*time.Hour))
	repo.AddPost(ctx, posts.Post{ID: "p5", AuthorID: "u2", Title: "budget app review", LikesCount: 2}, now.Add(-5*time.Hour))

	auth := middleware.NewJWTAuth("integration-secret", nil)
	r := chi.NewRouter()
	routes.RegisterFeedRoutes(r, repo, 3, auth)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	token, err := auth.IssueToken(viewer, time.Hour)
	require.NoError(t, err)

	client := backend.NewRESTClient(backend.ClientConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 5 * time.Second,
	}, backend.StaticTokenProvider(token), nil)
	t.Cleanup(func() { _ = client.Close() })

	return feed.NewService(client, feed.Config{
		Trending:        trending.Config{Mode: mode, Limit: 3},
		PerPage:         2,
		MutationTimeout: 5 * time.Second,
	}, nil)
}

func viewIDs(views []posts.PostView) []posts.ID {
	return lo.Map(views, func(v posts.PostView, _ int) posts.ID { return v.ID })
}

func TestIntegration_BrowseFeed(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t, "u1", trending.ModeServer)

	require.NoError(t, svc.InitialLoad(ctx))
	assert.Equal(t, []posts.ID{"p1", "p2"}, viewIDs(svc.GetVisibleFeed()))
	assert.Equal(t, []posts.ID{"p4"}, viewIDs(svc.GetPinned()))
	assert.Equal(t, []posts.ID{"p2", "p5", "p1"}, viewIDs(svc.GetTrending()))

	state := svc.PageState()
	assert.Equal(t, 1, state.CurrentPage)
	assert.Equal(t, 3, state.LastPage)
	assert.True(t, state.CanLoadNext())

	_, err := svc.LoadMore(ctx)
	require.NoError(t, err)
	_, err = svc.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []posts.ID{"p1", "p2", "p3", "p4", "p5"}, viewIDs(svc.GetVisibleFeed()))

	_, err = svc.LoadMore(ctx)
	assert.True(t, feed.IsNoop(err))
	assert.Len(t, svc.GetVisibleFeed(), 5)
}

func TestIntegration_ClientTrending(t *testing.T) {
	svc := newStack(t, "u1", trending.ModeClient)

	require.NoError(t, svc.InitialLoad(context.Background()))
	// only page 1 is ranked locally
	assert.Equal(t, []posts.ID{"p2", "p1"}, viewIDs(svc.GetTrending()))
}

func TestIntegration_LikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t, "u1", trending.ModeServer)
	require.NoError(t, svc.InitialLoad(ctx))

	require.NoError(t, svc.Like(ctx, "p2"))

	p, err := svc.Post("p2")
	require.NoError(t, err)
	assert.True(t, p.IsLiked)
	assert.Equal(t, 5, p.LikesCount)

	// trending shares the record
	trendingP2, ok := lo.Find(svc.GetTrending(), func(v posts.PostView) bool { return v.ID == "p2" })
	require.True(t, ok)
	assert.True(t, trendingP2.IsLiked)

	require.NoError(t, svc.Like(ctx, "p2"))
	p, err = svc.Post("p2")
	require.NoError(t, err)
	assert.False(t, p.IsLiked)
	assert.Equal(t, 4, p.LikesCount)
}

func TestIntegration_FollowUpdatesAuthorEverywhere(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t, "u1", trending.ModeServer)
	require.NoError(t, svc.InitialLoad(ctx))

	require.NoError(t, svc.Follow(ctx, "u2"))

	for _, v := range append(svc.GetVisibleFeed(), svc.GetTrending()...) {
		if v.AuthorID == "u2" {
			require.NotNil(t, v.Author)
			assert.True(t, v.Author.IsFollowing)
			assert.Equal(t, 6, v.Author.FollowersCount)
		}
	}
}

func TestIntegration_RejectedDeleteRestores(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t, "u1", trending.ModeServer)
	require.NoError(t, svc.InitialLoad(ctx))

	// p2 belongs to u2
	err := svc.DeletePost(ctx, "p2")
	require.Error(t, err)
	assert.ErrorIs(t, err, optimistic.ErrRolledBack)
	assert.True(t, backend.IsRejection(err))

	assert.Equal(t, []posts.ID{"p1", "p2"}, viewIDs(svc.GetVisibleFeed()))
	assert.Contains(t, viewIDs(svc.GetTrending()), posts.ID("p2"))

	select {
	case n := <-svc.Notices():
		assert.Equal(t, feed.NoticeRejected, n.Kind)
		assert.Equal(t, posts.ID("p2"), n.EntityID)
	default:
		t.Fatal("expected a notice for the rejected delete")
	}
}

func TestIntegration_DeleteOwnPost(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t, "u1", trending.ModeServer)
	require.NoError(t, svc.InitialLoad(ctx))

	require.NoError(t, svc.DeletePost(ctx, "p1"))
	assert.NotContains(t, viewIDs(svc.GetVisibleFeed()), posts.ID("p1"))
	assert.NotContains(t, viewIDs(svc.GetTrending()), posts.ID("p1"))

	_, err := svc.Post("p1")
	assert.True(t, errors.Is(err, posts.ErrNotFound))
}

func TestIntegration_SearchAndClear(t *testing.T) {
	ctx := context.Background()
	svc := newStack(t, "u1", trending.ModeServer)
	require.NoError(t, svc.InitialLoad(ctx))

	require.NoError(t, svc.Search(ctx, "budget", posts.SearchPosts))
	assert.True(t, svc.IsSearching())
	assert.Equal(t, []posts.ID{"p1", "p5"}, viewIDs(svc.GetVisibleFeed()))

	_, err := svc.LoadMore(ctx)
	assert.ErrorIs(t, err, feed.ErrSearchActive)

	svc.ClearSearch()
	assert.False(t, svc.IsSearching())
	assert.Equal(t, []posts.ID{"p1", "p2"}, viewIDs(svc.GetVisibleFeed()))
}
