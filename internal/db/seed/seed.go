// Package seed fills a dev backend store with demo users and posts.
package seed

import (
	"context"
	"fmt"
	"slices"
	"time"

	"Tally/internal/core/posts"
)

// Store is the write side a seedable repository exposes
type Store interface {
	AddUser(ctx context.Context, u posts.User) (posts.User, error)
	AddPost(ctx context.Context, p posts.Post, createdAt time.Time) (posts.Post, error)
}

// DemoPostCount is the number of posts Demo creates
const DemoPostCount = 24

var demoUsers = []posts.User{
	{ID: "u1", Name: "Ada Lovelace", Email: "ada@example.com", FollowersCount: 120},
	{ID: "u2", Name: "Grace Hopper", Email: "grace@example.com", FollowersCount: 87},
	{ID: "u3", Name: "Alan Turing", Email: "alan@example.com", FollowersCount: 45},
	{ID: "u4", Name: "Katherine Johnson", Email: "katherine@example.com", FollowersCount: 9},
}

var topics = []string{
	"Weekly savings challenge",
	"Budgeting tips for students",
	"Where do you keep your emergency fund?",
	"First month using the wallet",
	"Splitting bills with roommates",
	"Cashback cards worth it?",
	"Community meetup photos",
	"Ask me anything about index funds",
}

// DemoUsers returns the users Demo creates
func DemoUsers() []posts.User {
	return slices.Clone(demoUsers)
}

// Demo adds a few users and posts spread over the last weeks.
// It returns the seeded users so callers can mint tokens for them.
func Demo(ctx context.Context, store Store, now time.Time) ([]posts.User, error) {
	users := make([]posts.User, 0, len(demoUsers))
	for _, u := range demoUsers {
		added, err := store.AddUser(ctx, u)
		if err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
		users = append(users, added)
	}

	for i := 0; i < DemoPostCount; i++ {
		author := users[i%len(users)]
		age := time.Duration(i*i) * 40 * time.Minute
		_, err := store.AddPost(ctx, posts.Post{
			AuthorID:      author.ID,
			Title:         topics[i%len(topics)],
			Content:       fmt.Sprintf("%s, part %d.", topics[i%len(topics)], i/len(topics)+1),
			LikesCount:    (i * 7) % 11,
			CommentsCount: i % 4,
			IsPinned:      i == 5,
		}, now.Add(-age))
		if err != nil {
			return nil, fmt.Errorf("failed to seed post %d: %w", i, err)
		}
	}

	return users, nil
}
