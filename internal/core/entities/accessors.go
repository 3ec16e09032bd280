package entities

import "Tally/internal/core/posts"

// PostRecords exposes the post table as a keyed record set with holds
type PostRecords struct{ s *Store }

// UserRecords exposes the user table as a keyed record set with holds
type UserRecords struct{ s *Store }

// Placements exposes post placements, used to undo a removal
type Placements struct{ s *Store }

// PostRecords returns an accessor over the post table
func (s *Store) PostRecords() PostRecords { return PostRecords{s: s} }

// UserRecords returns an accessor over the user table
func (s *Store) UserRecords() UserRecords { return UserRecords{s: s} }

// Placements returns an accessor over post placements
func (s *Store) Placements() Placements { return Placements{s: s} }

func (r PostRecords) Get(id posts.ID) (posts.Post, bool) { return r.s.Post(id) }
func (r PostRecords) Put(_ posts.ID, p posts.Post)       { r.s.PutPost(p) }
func (r PostRecords) Hold(id posts.ID)                   { r.s.HoldPost(id) }
func (r PostRecords) Release(id posts.ID)                { r.s.ReleasePost(id) }

func (r UserRecords) Get(id posts.ID) (posts.User, bool) { return r.s.User(id) }
func (r UserRecords) Put(_ posts.ID, u posts.User)       { r.s.PutUser(u) }
func (r UserRecords) Hold(id posts.ID)                   { r.s.HoldUser(id) }
func (r UserRecords) Release(id posts.ID)                { r.s.ReleaseUser(id) }

func (r Placements) Get(id posts.ID) (Placement, bool) { return r.s.Placement(id) }
func (r Placements) Put(_ posts.ID, pl Placement)      { r.s.ApplyPlacement(pl) }
func (r Placements) Hold(id posts.ID)                  { r.s.HoldPost(id) }
func (r Placements) Release(id posts.ID)               { r.s.ReleasePost(id) }
