// Package backend is the REST client for the feed API.
package backend

import (
	"context"

	"Tally/internal/core/posts"
)

// FeedQuery narrows a feed request. The zero value is the home feed.
type FeedQuery struct {
	Search   string
	Type     posts.SearchType
	AuthorID posts.ID
}

// FeedPage is one decoded page of the feed
type FeedPage struct {
	Posts  []posts.Post
	Pinned []posts.Post
	// Users are the people results of a search
	Users []posts.User
	// Authors are the users embedded in Posts and Pinned
	Authors []posts.User
	Info    posts.PageInfo
}

// TrendingResult is the decoded trending endpoint response
type TrendingResult struct {
	Posts   []posts.Post
	Authors []posts.User
}

// LikeResult is the server's like state after a toggle
type LikeResult struct {
	IsLiked    bool
	LikesCount int
}

// FollowResult is the server's follow state after a toggle
type FollowResult struct {
	IsFollowing    bool
	FollowersCount int
}

// Client is the set of API operations the feed engine consumes.
// Every method treats a {"success": false} envelope like a transport failure.
type Client interface {
	FetchFeedPage(ctx context.Context, page, perPage int, q FeedQuery) (*FeedPage, error)
	FetchTrending(ctx context.Context) (*TrendingResult, error)
	MutateLike(ctx context.Context, id posts.ID, kind posts.EntityKind) (*LikeResult, error)
	MutateFollow(ctx context.Context, userID posts.ID) (*FollowResult, error)
	DeletePost(ctx context.Context, id posts.ID) error
}
