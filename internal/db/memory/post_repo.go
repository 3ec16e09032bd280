// Package memory is an in-process post store for the dev backend.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"Tally/internal/core/dates"
	"Tally/internal/core/posts"
	"Tally/internal/core/trending"
	"Tally/internal/db/seed"
)

const trendingWindowDays = 7

type postRecord struct {
	createdAt time.Time
	post      posts.Post
}

type memoryPostRepo struct {
	now     func() time.Time
	users   map[posts.ID]*posts.User
	likes   map[posts.ID]map[posts.ID]struct{} // post -> viewers
	follows map[posts.ID]map[posts.ID]struct{} // user -> followers
	records []*postRecord
	nextID  int
	mu      sync.RWMutex
}

// PostRepository is the in-memory repository plus the write methods used to seed it
type PostRepository interface {
	posts.Repository
	seed.Store
}

// NewPostRepository creates an empty repository. A nil clock uses time.Now.
func NewPostRepository(now func() time.Time) PostRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryPostRepo{
		now:     now,
		users:   make(map[posts.ID]*posts.User),
		likes:   make(map[posts.ID]map[posts.ID]struct{}),
		follows: make(map[posts.ID]map[posts.ID]struct{}),
	}
}

func (r *memoryPostRepo) newID() posts.ID {
	r.nextID++
	return posts.ID(strconv.Itoa(r.nextID))
}

// AddUser stores u, assigning an id when it has none
func (r *memoryPostRepo) AddUser(ctx context.Context, u posts.User) (posts.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = r.newID()
	}
	u.IsFollowing = false
	u.Normalize()
	r.users[u.ID] = &u
	return u, nil
}

// AddPost stores p, assigning an id when it has none. Posts are kept newest first.
func (r *memoryPostRepo) AddPost(ctx context.Context, p posts.Post, createdAt time.Time) (posts.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = r.newID()
	}
	p.IsLiked = false
	p.Normalize()

	rec := &postRecord{post: p, createdAt: createdAt}
	i, _ := slices.BinarySearchFunc(r.records, rec, func(a, b *postRecord) int {
		return b.createdAt.Compare(a.createdAt)
	})
	r.records = slices.Insert(r.records, i, rec)
	return p, nil
}

func (r *memoryPostRepo) List(ctx context.Context, viewerID posts.ID, q posts.ListQuery) (*posts.ListResult, error) {
	if q.Type == "" {
		q.Type = posts.SearchAll
	}
	if !q.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", posts.ErrInvalidSearchType, q.Type)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > 100 {
		return nil, posts.NewValidationError("per_page", "per_page must be between 1 and 100")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	result := &posts.ListResult{}

	var matched []*postRecord
	if q.Type.IncludesPosts() {
		matched = lo.Filter(r.records, func(rec *postRecord, _ int) bool {
			if !q.AuthorID.IsZero() && rec.post.AuthorID != q.AuthorID {
				return false
			}
			if search == "" {
				return true
			}
			return strings.Contains(strings.ToLower(rec.post.Title), search) ||
				strings.Contains(strings.ToLower(rec.post.Content), search)
		})
	}

	if q.Type.IncludesUsers() && search != "" {
		for _, u := range r.sortedUsers() {
			if strings.Contains(strings.ToLower(u.Name), search) || strings.Contains(strings.ToLower(u.Email), search) {
				result.Users = append(result.Users, r.userView(viewerID, u))
			}
		}
	}

	total := len(matched)
	lastPage := max((total+q.PerPage-1)/q.PerPage, 1)
	start := min((q.Page-1)*q.PerPage, total)
	end := min(start+q.PerPage, total)

	for _, rec := range matched[start:end] {
		result.Posts = append(result.Posts, r.postView(viewerID, rec))
	}

	if q.Page == 1 && search == "" && q.AuthorID.IsZero() {
		for _, rec := range r.records {
			if rec.post.IsPinned {
				result.Pinned = append(result.Pinned, r.postView(viewerID, rec))
			}
		}
	}

	result.Info = posts.PageInfo{
		CurrentPage: q.Page,
		LastPage:    lastPage,
		PerPage:     q.PerPage,
		Total:       total,
		HasNextPage: q.Page < lastPage,
		HasPrevPage: q.Page > 1,
	}
	return result, nil
}

// Trending ranks with the same tiers the client uses locally
func (r *memoryPostRepo) Trending(ctx context.Context, viewerID posts.ID, limit int) ([]posts.PostView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byID := make(map[posts.ID]*postRecord, len(r.records))
	candidates := make([]posts.Post, 0, len(r.records))
	for _, rec := range r.records {
		byID[rec.post.ID] = rec
		candidates = append(candidates, r.postView(viewerID, rec).Post)
	}

	ranking := trending.NewRanker(r.now).Rank(candidates, trendingWindowDays, limit)
	return lo.Map(ranking.Posts(), func(p posts.Post, _ int) posts.PostView {
		return r.postView(viewerID, byID[p.ID])
	}), nil
}

func (r *memoryPostRepo) ToggleLike(ctx context.Context, viewerID, postID posts.ID) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.find(postID)
	if rec == nil {
		return false, 0, posts.ErrNotFound
	}

	liked := toggle(r.likes, postID, viewerID)
	if liked {
		rec.post.LikesCount++
	} else {
		rec.post.LikesCount = max(rec.post.LikesCount-1, 0)
	}
	return liked, rec.post.LikesCount, nil
}

func (r *memoryPostRepo) ToggleFollow(ctx context.Context, viewerID, userID posts.ID) (bool, int, error) {
	if viewerID == userID {
		return false, 0, posts.ErrSelfFollow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return false, 0, posts.ErrNotFound
	}

	following := toggle(r.follows, userID, viewerID)
	if following {
		u.FollowersCount++
	} else {
		u.FollowersCount = max(u.FollowersCount-1, 0)
	}
	return following, u.FollowersCount, nil
}

func (r *memoryPostRepo) Delete(ctx context.Context, viewerID, postID posts.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := slices.IndexFunc(r.records, func(rec *postRecord) bool { return rec.post.ID == postID })
	if i < 0 {
		return posts.ErrNotFound
	}
	if r.records[i].post.AuthorID != viewerID {
		return posts.ErrForbidden
	}

	r.records = slices.Delete(r.records, i, i+1)
	delete(r.likes, postID)
	return nil
}

// find must be called with the lock held
func (r *memoryPostRepo) find(id posts.ID) *postRecord {
	rec, _ := lo.Find(r.records, func(rec *postRecord) bool { return rec.post.ID == id })
	return rec
}

func (r *memoryPostRepo) sortedUsers() []*posts.User {
	users := lo.Values(r.users)
	slices.SortFunc(users, func(a, b *posts.User) int { return strings.Compare(a.Name, b.Name) })
	return users
}

// postView renders a record for viewerID. Must be called with the lock held.
func (r *memoryPostRepo) postView(viewerID posts.ID, rec *postRecord) posts.PostView {
	p := rec.post
	p.CreatedAt = dates.Humanize(rec.createdAt, r.now())
	_, p.IsLiked = r.likes[p.ID][viewerID]

	view := posts.PostView{Post: p}
	if u, ok := r.users[p.AuthorID]; ok {
		author := r.userView(viewerID, u)
		view.Author = &author
	}
	return view
}

func (r *memoryPostRepo) userView(viewerID posts.ID, u *posts.User) posts.User {
	out := *u
	_, out.IsFollowing = r.follows[u.ID][viewerID]
	return out
}

// toggle flips membership of member in set[key] and reports the new state
func toggle(set map[posts.ID]map[posts.ID]struct{}, key, member posts.ID) bool {
	members, ok := set[key]
	if !ok {
		members = make(map[posts.ID]struct{})
		set[key] = members
	}
	if _, on := members[member]; on {
		delete(members, member)
		return false
	}
	members[member] = struct{}{}
	return true
}
