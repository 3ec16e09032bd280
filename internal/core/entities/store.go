// Package entities holds the single authoritative copy of every post and user
// the client knows about. Views (feed, pinned, trending, profile, search) are
// ordered lists of ids into the store, so a change to one record is seen by
// every view that references it.
package entities

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"Tally/internal/core/posts"
)

// View names an ordered list of post ids
type View string

const (
	ViewFeed     View = "feed"
	ViewPinned   View = "pinned"
	ViewTrending View = "trending"
	ViewProfile  View = "profile"
	ViewSearch   View = "search"
)

// AllViews lists every post view in a stable order
var AllViews = []View{ViewFeed, ViewPinned, ViewTrending, ViewProfile, ViewSearch}

// Store is safe for concurrent use
type Store struct {
	posts map[posts.ID]*posts.Post
	users map[posts.ID]*posts.User
	views map[View][]posts.ID
	// ids with a pending mutation; server upserts skip them
	heldPosts map[posts.ID]int
	heldUsers map[posts.ID]int
	logger    *slog.Logger
	people    []posts.ID
	mu        sync.RWMutex
}

// NewStore creates an empty store
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		posts:     make(map[posts.ID]*posts.Post),
		users:     make(map[posts.ID]*posts.User),
		views:     make(map[View][]posts.ID),
		heldPosts: make(map[posts.ID]int),
		heldUsers: make(map[posts.ID]int),
		logger:    logger,
	}
}

// UpsertPosts writes server copies of posts into the store.
// Records with a pending mutation keep their local state.
func (s *Store) UpsertPosts(items []posts.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		s.putPostLocked(items[i], true)
	}
}

// AddPosts inserts posts that are not yet known and leaves existing records untouched
func (s *Store) AddPosts(items []posts.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		s.putPostLocked(items[i], false)
	}
}

func (s *Store) putPostLocked(p posts.Post, overwrite bool) {
	if p.ID.IsZero() {
		return
	}
	if _, exists := s.posts[p.ID]; exists && (!overwrite || s.heldPosts[p.ID] > 0) {
		return
	}
	p.Normalize()
	s.posts[p.ID] = &p
}

// UpsertUsers writes server copies of users into the store.
// Records with a pending mutation keep their local state.
func (s *Store) UpsertUsers(items []posts.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		s.putUserLocked(items[i], true)
	}
}

// AddUsers inserts users that are not yet known and leaves existing records untouched
func (s *Store) AddUsers(items []posts.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range items {
		s.putUserLocked(items[i], false)
	}
}

func (s *Store) putUserLocked(u posts.User, overwrite bool) {
	if u.ID.IsZero() {
		return
	}
	if _, exists := s.users[u.ID]; exists && (!overwrite || s.heldUsers[u.ID] > 0) {
		return
	}
	u.Normalize()
	s.users[u.ID] = &u
}

// Post returns a copy of the post record
func (s *Store) Post(id posts.ID) (posts.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return posts.Post{}, false
	}
	return *p, true
}

// User returns a copy of the user record
func (s *Store) User(id posts.ID) (posts.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return posts.User{}, false
	}
	return *u, true
}

// PutPost replaces the post record. Every view referencing id sees the new value.
func (s *Store) PutPost(p posts.Post) {
	if p.ID.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Normalize()
	s.posts[p.ID] = &p
}

// PutUser replaces the user record. Every post authored by id sees the new value.
func (s *Store) PutUser(u posts.User) {
	if u.ID.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Normalize()
	s.users[u.ID] = &u
}

// HoldPost marks a post as having a pending mutation
func (s *Store) HoldPost(id posts.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heldPosts[id]++
}

// ReleasePost undoes one HoldPost
func (s *Store) ReleasePost(id posts.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	release(s.heldPosts, id)
}

// HoldUser marks a user as having a pending mutation
func (s *Store) HoldUser(id posts.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heldUsers[id]++
}

// ReleaseUser undoes one HoldUser
func (s *Store) ReleaseUser(id posts.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	release(s.heldUsers, id)
}

func release(held map[posts.ID]int, id posts.ID) {
	if held[id] <= 1 {
		delete(held, id)
		return
	}
	held[id]--
}

// SetView replaces the ids of a view. Duplicate ids keep their first position.
func (s *Store) SetView(v View, ids []posts.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.views[v] = lo.Uniq(lo.Compact(ids))
}

// AppendView adds ids to the end of a view, skipping ids it already holds.
// It returns the ids that were actually added.
func (s *Store) AppendView(v View, ids []posts.ID) []posts.ID {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.views[v]
	seen := make(map[posts.ID]struct{}, len(existing)+len(ids))
	for _, id := range existing {
		seen[id] = struct{}{}
	}

	added := make([]posts.ID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		added = append(added, id)
	}

	s.views[v] = append(existing, added...)
	return added
}

// ClearView empties a view
func (s *Store) ClearView(v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, v)
}

// ViewIDs returns a copy of the ids in a view
func (s *Store) ViewIDs(v View) []posts.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.views[v])
}

// Contains reports whether a view references id
func (s *Store) Contains(v View, id posts.ID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.views[v], id)
}

// View materializes a view, joining each post with its author.
// Ids whose record is missing are skipped.
func (s *Store) View(v View) []posts.PostView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.views[v]
	out := make([]posts.PostView, 0, len(ids))
	for _, id := range ids {
		p, ok := s.posts[id]
		if !ok {
			continue
		}
		pv := posts.PostView{Post: *p}
		if author, ok := s.users[p.AuthorID]; ok {
			a := *author
			pv.Author = &a
		}
		out = append(out, pv)
	}
	return out
}

// SetPeople replaces the people list
func (s *Store) SetPeople(ids []posts.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people = lo.Uniq(lo.Compact(ids))
}

// People materializes the people list
func (s *Store) People() []posts.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]posts.User, 0, len(s.people))
	for _, id := range s.people {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out
}

// Prune drops records that no view references and no mutation holds.
// Users stay while any remaining post is authored by them.
func (s *Store) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	referenced := make(map[posts.ID]struct{})
	for _, ids := range s.views {
		for _, id := range ids {
			referenced[id] = struct{}{}
		}
	}

	droppedPosts := 0
	for id := range s.posts {
		if _, ok := referenced[id]; ok || s.heldPosts[id] > 0 {
			continue
		}
		delete(s.posts, id)
		droppedPosts++
	}

	authors := make(map[posts.ID]struct{}, len(s.posts)+len(s.people))
	for _, p := range s.posts {
		authors[p.AuthorID] = struct{}{}
	}
	for _, id := range s.people {
		authors[id] = struct{}{}
	}

	droppedUsers := 0
	for id := range s.users {
		if _, ok := authors[id]; ok || s.heldUsers[id] > 0 {
			continue
		}
		delete(s.users, id)
		droppedUsers++
	}

	s.logger.Debug("entity store pruned",
		"dropped_posts", droppedPosts,
		"dropped_users", droppedUsers,
		"posts", len(s.posts),
		"users", len(s.users))
}
