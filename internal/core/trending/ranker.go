// Package trending ranks posts for the trending surface, either locally with a
// tiered algorithm or by validating results from a server endpoint.
package trending

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"Tally/internal/core/dates"
	"Tally/internal/core/posts"
)

// Tier records which stage of the ranking produced the result
type Tier string

const (
	// TierRecent holds posts inside the window with at least one like, by likes
	TierRecent Tier = "recent"
	// TierLiked drops the window and keeps any post with likes, by likes
	TierLiked Tier = "liked"
	// TierLatest is the first posts in input order
	TierLatest Tier = "latest"
	// TierServer is a validated server result
	TierServer Tier = "server"
	// TierNone means there were no candidates
	TierNone Tier = "none"
)

// Candidate is a post projected for ranking
type Candidate struct {
	CreatedAt    time.Time
	Post         posts.Post
	Rank         int
	HasCreatedAt bool
}

// Ranking is an ordered trending list
type Ranking struct {
	Tier       Tier
	Candidates []Candidate
}

// Posts returns the ranked posts in order
func (r Ranking) Posts() []posts.Post {
	return lo.Map(r.Candidates, func(c Candidate, _ int) posts.Post { return c.Post })
}

// IDs returns the ranked post ids in order
func (r Ranking) IDs() []posts.ID {
	return lo.Map(r.Candidates, func(c Candidate, _ int) posts.ID { return c.Post.ID })
}

// Ranker computes trending lists locally
type Ranker struct {
	parser *dates.Parser
	now    func() time.Time
}

// NewRanker creates a ranker. A nil clock uses time.Now.
func NewRanker(now func() time.Time) *Ranker {
	if now == nil {
		now = time.Now
	}
	return &Ranker{now: now, parser: dates.NewParser(now)}
}

// Candidates resolves the creation time of each post
func (r *Ranker) Candidates(items []posts.Post) []Candidate {
	return lo.Map(items, func(p posts.Post, _ int) Candidate {
		at, ok := r.parser.Parse(p.CreatedAt)
		return Candidate{Post: p, CreatedAt: at, HasCreatedAt: ok}
	})
}

// Rank returns at most limit posts. Each tier runs only when the previous one is empty:
// recent posts with likes, then any posts with likes, then the first posts in input order.
// Posts whose date cannot be parsed are only excluded from the first tier.
func (r *Ranker) Rank(items []posts.Post, windowDays, limit int) Ranking {
	if limit <= 0 || len(items) == 0 {
		return Ranking{Tier: TierNone}
	}

	candidates := r.Candidates(items)
	cutoff := r.now().Add(-time.Duration(windowDays) * 24 * time.Hour)

	recent := lo.Filter(candidates, func(c Candidate, _ int) bool {
		return c.HasCreatedAt && !c.CreatedAt.Before(cutoff) && c.Post.LikesCount > 0
	})
	if len(recent) > 0 {
		return ranked(TierRecent, byLikes(recent), limit)
	}

	liked := lo.Filter(candidates, func(c Candidate, _ int) bool {
		return c.Post.LikesCount > 0
	})
	if len(liked) > 0 {
		return ranked(TierLiked, byLikes(liked), limit)
	}

	return ranked(TierLatest, candidates, limit)
}

// byLikes sorts by likes descending; ties keep input order
func byLikes(cs []Candidate) []Candidate {
	slices.SortStableFunc(cs, func(a, b Candidate) int {
		return b.Post.LikesCount - a.Post.LikesCount
	})
	return cs
}

func ranked(tier Tier, cs []Candidate, limit int) Ranking {
	if len(cs) > limit {
		cs = cs[:limit]
	}
	out := make([]Candidate, len(cs))
	for i, c := range cs {
		c.Rank = i + 1
		out[i] = c
	}
	return Ranking{Tier: tier, Candidates: out}
}
