package backend

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"Tally/internal/core/posts"
)

// Envelope is the uniform response wrapper used by every endpoint
type Envelope struct {
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`
	Message string          `json:"message,omitempty"`
	Success bool            `json:"success"`
}

// FlexInt decodes counts sent as numbers, numeric strings or null.
// Anything unreadable decodes to zero.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	switch {
	case f >= math.MaxInt:
		*n = math.MaxInt
	case f <= math.MinInt:
		*n = math.MinInt
	default:
		*n = FlexInt(int(f))
	}
	return nil
}

// FlexBool decodes flags sent as booleans, 0/1 or their string forms
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

// WireUser is a user summary on the wire
type WireUser struct {
	ID             posts.ID `json:"id"`
	Name           string   `json:"name"`
	Email          string   `json:"email,omitempty"`
	IsFollowing    FlexBool `json:"is_following"`
	FollowersCount FlexInt  `json:"followers_count"`
}

// WirePost is a post on the wire. The author is embedded as user;
// user_id is accepted when the server sends only the reference.
type WirePost struct {
	ImagePath     *string   `json:"image_path"`
	User          *WireUser `json:"user,omitempty"`
	ID            posts.ID  `json:"id"`
	UserID        posts.ID  `json:"user_id,omitempty"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	CreatedAt     string    `json:"created_at"`
	LikesCount    FlexInt   `json:"likes_count"`
	CommentsCount FlexInt   `json:"comments_count"`
	IsLiked       FlexBool  `json:"is_liked"`
	IsPinned      FlexBool  `json:"is_pinned"`
}

// WirePagination is the page block of a feed response
type WirePagination struct {
	CurrentPage FlexInt  `json:"current_page"`
	LastPage    FlexInt  `json:"last_page"`
	PerPage     FlexInt  `json:"per_page"`
	Total       FlexInt  `json:"total"`
	HasNextPage FlexBool `json:"has_next_page"`
	HasPrevPage FlexBool `json:"has_prev_page"`
}

// FeedPageData is the data of GET /api/posts
type FeedPageData struct {
	Posts       []WirePost     `json:"posts"`
	PinnedPosts []WirePost     `json:"pinned_posts,omitempty"`
	Users       []WireUser     `json:"users,omitempty"`
	Pagination  WirePagination `json:"pagination"`
}

// TrendingData is the data of GET /api/posts/trending
type TrendingData struct {
	Posts []WirePost `json:"posts"`
}

// LikeData is the data of POST /api/posts/{id}/like
type LikeData struct {
	IsLiked    FlexBool `json:"is_liked"`
	LikesCount FlexInt  `json:"likes_count"`
}

// FollowData is the data of POST /api/users/{id}/follow
type FollowData struct {
	IsFollowing    FlexBool `json:"is_following"`
	FollowersCount FlexInt  `json:"followers_count"`
}

// rawFeedPage defers item decoding so one bad item cannot fail the page
type rawFeedPage struct {
	Posts       []json.RawMessage `json:"posts"`
	PinnedPosts []json.RawMessage `json:"pinned_posts"`
	Users       []json.RawMessage `json:"users"`
	Pagination  WirePagination    `json:"pagination"`
}

type rawTrending struct {
	Posts []json.RawMessage `json:"posts"`
}

// ToWireUser converts a domain user for encoding
func ToWireUser(u posts.User) WireUser {
	return WireUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		IsFollowing:    FlexBool(u.IsFollowing),
		FollowersCount: FlexInt(u.FollowersCount),
	}
}

// ToWirePost converts a domain post and its author for encoding
func ToWirePost(p posts.Post, author *posts.User) WirePost {
	w := WirePost{
		ID:            p.ID,
		Title:         p.Title,
		Content:       p.Content,
		CreatedAt:     p.CreatedAt,
		LikesCount:    FlexInt(p.LikesCount),
		CommentsCount: FlexInt(p.CommentsCount),
		IsLiked:       FlexBool(p.IsLiked),
		IsPinned:      FlexBool(p.IsPinned),
		ImagePath:     p.ImagePath,
		UserID:        p.AuthorID,
	}
	if author != nil {
		u := ToWireUser(*author)
		w.User = &u
	}
	return w
}

func (w WireUser) toUser() posts.User {
	u := posts.User{
		ID:             w.ID,
		Name:           w.Name,
		Email:          w.Email,
		IsFollowing:    bool(w.IsFollowing),
		FollowersCount: int(w.FollowersCount),
	}
	u.Normalize()
	return u
}

// toPost returns the post and, when embedded, its author
func (w WirePost) toPost() (posts.Post, *posts.User) {
	p := posts.Post{
		ID:            w.ID,
		Title:         w.Title,
		Content:       w.Content,
		AuthorID:      w.UserID,
		CreatedAt:     w.CreatedAt,
		LikesCount:    int(w.LikesCount),
		CommentsCount: int(w.CommentsCount),
		IsLiked:       bool(w.IsLiked),
		IsPinned:      bool(w.IsPinned),
		ImagePath:     w.ImagePath,
	}

	var author *posts.User
	if w.User != nil && !w.User.ID.IsZero() {
		u := w.User.toUser()
		author = &u
		p.AuthorID = u.ID
	}

	p.Normalize()
	return p, author
}

func (p WirePagination) toPageInfo() posts.PageInfo {
	return posts.PageInfo{
		CurrentPage: int(p.CurrentPage),
		LastPage:    int(p.LastPage),
		PerPage:     int(p.PerPage),
		Total:       max(int(p.Total), 0),
		HasNextPage: bool(p.HasNextPage),
		HasPrevPage: bool(p.HasPrevPage),
	}
}
