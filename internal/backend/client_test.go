package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Tally/internal/core/posts"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewRESTClient(ClientConfig{
		BaseURL:           srv.URL,
		RequestTimeout:    2 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             100,
	}, StaticTokenProvider(token), nil)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestFetchFeedPage_DecodesPageAndToleratesBadItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		assert.Equal(t, "cats", r.URL.Query().Get("search"))
		assert.Equal(t, "all", r.URL.Query().Get("type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, `{
			"success": true,
			"data": {
				"posts": [
					{"id": 7, "title": "ok", "user": {"id": 3, "name": "Ada", "followers_count": "12"},
					 "created_at": "2 hours ago", "likes_count": "4", "is_liked": 1},
					{"id": null, "title": "no id"},
					"garbage",
					{"id": "8", "likes_count": -2, "comments_count": null, "user_id": 3}
				],
				"pinned_posts": [{"id": 9, "is_pinned": true, "user": {"id": 4, "name": "Bo"}}],
				"users": [{"id": 3, "name": "Ada"}, {"name": "nobody"}],
				"pagination": {"current_page": 2, "last_page": 4, "per_page": 5, "total": 18,
				               "has_next_page": true, "has_prev_page": true}
			}
		}`)
	}, "")

	page, err := c.FetchFeedPage(context.Background(), 2, 5, FeedQuery{Search: "cats", Type: posts.SearchAll})
	require.NoError(t, err)

	require.Len(t, page.Posts, 2)
	assert.Equal(t, posts.ID("7"), page.Posts[0].ID)
	assert.Equal(t, posts.ID("3"), page.Posts[0].AuthorID)
	assert.Equal(t, 4, page.Posts[0].LikesCount)
	assert.True(t, page.Posts[0].IsLiked)

	assert.Equal(t, posts.ID("8"), page.Posts[1].ID)
	assert.Equal(t, 0, page.Posts[1].LikesCount)
	assert.Equal(t, 0, page.Posts[1].CommentsCount)
	assert.Equal(t, posts.ID("3"), page.Posts[1].AuthorID)

	require.Len(t, page.Pinned, 1)
	assert.True(t, page.Pinned[0].IsPinned)

	require.Len(t, page.Users, 1)
	assert.Len(t, page.Authors, 2)

	assert.Equal(t, posts.PageInfo{
		CurrentPage: 2, LastPage: 4, PerPage: 5, Total: 18, HasNextPage: true, HasPrevPage: true,
	}, page.Info)
}

func TestFetchFeedPage_SendsTokenWhenAvailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "u9", r.URL.Query().Get("author_id"))
		writeJSON(w, http.StatusOK, `{"success": true, "data": {"posts": [], "pagination": {}}}`)
	}, "secret")

	page, err := c.FetchFeedPage(context.Background(), 0, 10, FeedQuery{AuthorID: "u9"})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
		rejection bool
		auth      bool
		message   string
	}{
		{name: "server error", status: 503, body: `oops`, transient: true},
		{name: "rate limited", status: 429, body: `{"success": false, "message": "slow down"}`, transient: true},
		{name: "unauthorized", status: 401, body: `{"success": false, "message": "expired"}`, auth: true},
		{
			name:      "validation",
			status:    422,
			body:      `{"success": false, "message": "Invalid post", "errors": {"id": ["not yours"]}}`,
			rejection: true,
			message:   "Invalid post",
		},
		{
			name:      "success false with 200",
			status:    200,
			body:      `{"success": false, "message": "Already liked"}`,
			rejection: true,
			message:   "Already liked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, "token")

			_, err := c.MutateLike(context.Background(), "1", posts.KindPost)
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err), err)
			assert.Equal(t, tt.rejection, IsRejection(err), err)
			assert.Equal(t, tt.auth, IsAuthError(err), err)
			if tt.message != "" {
				assert.Equal(t, tt.message, UserMessage(err))
			}
		})
	}
}

func TestClient_RejectionFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 422, `{"success": false, "message": "Bad", "errors": {"id": "missing"}}`)
	}, "token")

	err := c.DeletePost(context.Background(), "1")
	var rej *RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, 422, rej.Status)
	assert.Equal(t, []string{"missing"}, rej.Fields["id"])
	assert.Contains(t, rej.Error(), "id: missing")
}

func TestClient_MutationsRequireToken(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 200, `{"success": true}`)
	}, "")

	_, err := c.MutateLike(context.Background(), "1", posts.KindPost)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = c.MutateFollow(context.Background(), "1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, c.DeletePost(context.Background(), "1"), ErrUnauthorized)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_MutateLike(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/posts/42/like", r.URL.Path)
		assert.Equal(t, "comment", r.URL.Query().Get("kind"))
		writeJSON(w, 200, `{"success": true, "data": {"is_liked": true, "likes_count": 11}}`)
	}, "token")

	res, err := c.MutateLike(context.Background(), "42", posts.KindComment)
	require.NoError(t, err)
	assert.Equal(t, &LikeResult{IsLiked: true, LikesCount: 11}, res)
}

func TestClient_MutateFollow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/7/follow", r.URL.Path)
		writeJSON(w, 200, `{"success": true, "data": {"is_following": "true", "followers_count": 3}}`)
	}, "token")

	res, err := c.MutateFollow(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, &FollowResult{IsFollowing: true, FollowersCount: 3}, res)
}

func TestClient_TimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, "token")
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchTrending(ctx)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestFetchTrending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts/trending", r.URL.Path)
		body, _ := json.Marshal(Envelope{Success: true, Data: mustJSON(t, TrendingData{
			Posts: []WirePost{ToWirePost(posts.Post{ID: "1", LikesCount: 5}, &posts.User{ID: "u1", Name: "Ada"})},
		})})
		writeJSON(w, 200, string(body))
	}, "")

	res, err := c.FetchTrending(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, 5, res.Posts[0].LikesCount)
	assert.Equal(t, []posts.User{{ID: "u1", Name: "Ada"}}, res.Authors)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
