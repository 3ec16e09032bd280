package entities

import (
	"slices"

	"Tally/internal/core/posts"
)

// Placement captures a post record together with every position it holds in
// the views, so a removal can be undone exactly.
type Placement struct {
	Positions map[View]int
	Post      posts.Post
	Present   bool
}

// Placement returns where id currently sits. ok is false when the post is unknown.
func (s *Store) Placement(id posts.ID) (Placement, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return Placement{}, false
	}

	positions := make(map[View]int)
	for v, ids := range s.views {
		if i := slices.Index(ids, id); i >= 0 {
			positions[v] = i
		}
	}

	return Placement{Post: *p, Positions: positions, Present: true}, true
}

// ApplyPlacement makes the store match pl: a present placement re-inserts the
// post at its recorded positions, an absent one removes the post from every view.
// The record itself is only written back when it is missing, so a restore never
// replaces fields changed after the placement was captured.
func (s *Store) ApplyPlacement(pl Placement) {
	id := pl.Post.ID
	if id.IsZero() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !pl.Present {
		for v, ids := range s.views {
			s.views[v] = slices.DeleteFunc(slices.Clone(ids), func(x posts.ID) bool { return x == id })
		}
		return
	}

	if _, ok := s.posts[id]; !ok {
		p := pl.Post
		s.posts[id] = &p
	}

	for v, pos := range pl.Positions {
		ids := s.views[v]
		if slices.Contains(ids, id) {
			continue
		}
		if pos > len(ids) {
			pos = len(ids)
		}
		s.views[v] = slices.Insert(slices.Clone(ids), pos, id)
	}
}

// Forget drops the post record. Views are left alone.
func (s *Store) Forget(id posts.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
}
