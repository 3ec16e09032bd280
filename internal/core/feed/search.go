package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"Tally/internal/backend"
	"Tally/internal/core/entities"
	"Tally/internal/core/pagination"
	"Tally/internal/core/posts"
)

// searchPerPage is the size of the one-shot discovery request
const searchPerPage = 50

type searchKey struct {
	query string
	typ   posts.SearchType
}

// searchState exists only while a search is shown. snapshot is the feed
// as it was when the first search of the session began.
type searchState struct {
	snapshot pagination.Snapshot
	query    string
	typ      posts.SearchType
}

// IsSearching reports whether search results are shown instead of the feed
func (s *Service) IsSearching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search != nil
}

// SearchQuery returns the active query and type
func (s *Service) SearchQuery() (string, posts.SearchType, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.search == nil {
		return "", "", false
	}
	return s.search.query, s.search.typ, true
}

// Search runs a one-shot discovery search for posts, users, or both. The
// feed's list and cursor are set aside untouched and come back on
// ClearSearch. When searches overlap, only the latest one is applied.
func (s *Service) Search(ctx context.Context, query string, typ posts.SearchType) error {
	query = strings.TrimSpace(query)
	if query == "" {
		err := posts.NewValidationError("query", "search query cannot be empty")
		s.notify("search", "", err)
		return err
	}
	if typ == "" {
		typ = posts.SearchAll
	}
	if !typ.Valid() {
		err := fmt.Errorf("%w: %q", posts.ErrInvalidSearchType, typ)
		s.notify("search", "", err)
		return err
	}

	s.mu.Lock()
	if s.search == nil {
		s.search = &searchState{snapshot: s.feed.Snapshot()}
	}
	s.search.query = query
	s.search.typ = typ
	s.searchSeq++
	seq := s.searchSeq
	s.mu.Unlock()

	key := searchKey{query: strings.ToLower(query), typ: typ}
	if page, ok := s.cache.Get(key); ok {
		s.logger.Debug("search cache hit", "query", query, "type", typ)
		s.applySearch(seq, page, false)
		return nil
	}

	page, err := s.client.FetchFeedPage(ctx, 1, searchPerPage, backend.FeedQuery{Search: query, Type: typ})
	if err != nil {
		s.notify("search", "", err)
		return err
	}

	if s.applySearch(seq, page, true) {
		s.cache.Add(key, page)
	}
	return nil
}

// applySearch shows page as the search result unless a newer search or a
// ClearSearch happened meanwhile. fresh pages overwrite store records;
// cached ones only fill in records that were pruned.
func (s *Service) applySearch(seq uint64, page *backend.FeedPage, fresh bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.search == nil || seq != s.searchSeq {
		s.logger.Debug("discarding stale search result", "seq", seq)
		return false
	}
	typ := s.search.typ

	var found []posts.Post
	var people []posts.User
	if typ.IncludesPosts() {
		found = page.Posts
	}
	if typ.IncludesUsers() {
		people = page.Users
	}

	if fresh {
		s.store.UpsertUsers(page.Authors)
		s.store.UpsertUsers(people)
		s.store.UpsertPosts(found)
	} else {
		s.store.AddUsers(page.Authors)
		s.store.AddUsers(people)
		s.store.AddPosts(found)
	}

	s.store.SetView(entities.ViewSearch, lo.Map(found, func(p posts.Post, _ int) posts.ID { return p.ID }))
	s.store.SetPeople(lo.Map(people, func(u posts.User, _ int) posts.ID { return u.ID }))

	s.logger.Info("search applied",
		"query", s.search.query,
		"type", typ,
		"posts", len(found),
		"users", len(people),
		"cached", !fresh)
	return true
}

// ClearSearch leaves search mode and restores the feed exactly as it was,
// same items and same page. Results of a search still in flight are dropped.
func (s *Service) ClearSearch() {
	s.mu.Lock()
	state := s.search
	s.search = nil
	s.searchSeq++
	s.mu.Unlock()

	if state == nil {
		return
	}

	s.store.ClearView(entities.ViewSearch)
	s.store.SetPeople(nil)
	s.feed.Restore(state.snapshot)
	s.logger.Debug("search cleared", "page", state.snapshot.State.CurrentPage)
}
