package posts

import "context"

// ListQuery selects a page of posts on the server side
type ListQuery struct {
	Search   string
	Type     SearchType
	AuthorID ID
	Page     int
	PerPage  int
}

// ListResult is one page as the server returns it. Pinned is only filled
// for the first page of the home feed.
type ListResult struct {
	Posts  []PostView
	Pinned []PostView
	Users  []User
	Info   PageInfo
}

// Repository is the server-side post store behind the dev API.
// viewerID is empty for anonymous requests; per-viewer flags are then false.
type Repository interface {
	List(ctx context.Context, viewerID ID, q ListQuery) (*ListResult, error)
	Trending(ctx context.Context, viewerID ID, limit int) ([]PostView, error)
	ToggleLike(ctx context.Context, viewerID, postID ID) (liked bool, likes int, err error)
	ToggleFollow(ctx context.Context, viewerID, userID ID) (following bool, followers int, err error)
	Delete(ctx context.Context, viewerID, postID ID) error
}
