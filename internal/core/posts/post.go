package posts

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ID identifies a post or a user. The backend sends ids as either JSON numbers
// or strings, so both decode into the same canonical string form.
type ID string

// UnmarshalJSON accepts numbers, strings, and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// String returns the id as a plain string
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is missing
func (id ID) IsZero() bool {
	return id == ""
}

// EntityKind is the kind of entity a like targets
type EntityKind string

const (
	KindPost    EntityKind = "post"
	KindComment EntityKind = "comment"
)

// Post is the client-side record for a feed post.
// IsLiked and LikesCount describe the viewing user and always change together.
type Post struct {
	ImagePath     *string
	ID            ID
	AuthorID      ID
	Title         string
	Content       string
	CreatedAt     string // raw server value, either ISO-8601 or relative ("3 hours ago")
	LikesCount    int
	CommentsCount int
	IsLiked       bool
	IsPinned      bool
}

// Normalize replaces out-of-range values with safe defaults
func (p *Post) Normalize() {
	if p.LikesCount < 0 {
		p.LikesCount = 0
	}
	if p.CommentsCount < 0 {
		p.CommentsCount = 0
	}
}

// User is the summary of a user as shown next to posts and in people lists
type User struct {
	ID             ID
	Name           string
	Email          string
	FollowersCount int
	IsFollowing    bool
}

// Normalize replaces out-of-range values with safe defaults
func (u *User) Normalize() {
	if u.FollowersCount < 0 {
		u.FollowersCount = 0
	}
}

// PostView is a post joined with its author's current summary.
// Author is nil when the author record is unknown.
type PostView struct {
	Author *User
	Post
}

// PageInfo is the pagination block returned by the backend for one page
type PageInfo struct {
	CurrentPage int
	LastPage    int
	PerPage     int
	Total       int
	HasNextPage bool
	HasPrevPage bool
}

// SearchType selects which collections a discovery search returns
type SearchType string

const (
	SearchPosts SearchType = "posts"
	SearchUsers SearchType = "users"
	SearchAll   SearchType = "all"
)

// Valid reports whether t is a known search type
func (t SearchType) Valid() bool {
	switch t {
	case SearchPosts, SearchUsers, SearchAll:
		return true
	}
	return false
}

// IncludesPosts reports whether a search of this type returns posts
func (t SearchType) IncludesPosts() bool {
	return t == SearchPosts || t == SearchAll
}

// IncludesUsers reports whether a search of this type returns users
func (t SearchType) IncludesUsers() bool {
	return t == SearchUsers || t == SearchAll
}
