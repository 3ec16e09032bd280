package seed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Tally/internal/core/posts"
	"Tally/internal/db/memory"
	"Tally/internal/db/seed"
)

func TestDemo(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewPostRepository(func() time.Time { return now })

	users, err := seed.Demo(ctx, repo, now)
	require.NoError(t, err)
	require.Len(t, users, 4)

	res, err := repo.List(ctx, "", posts.ListQuery{PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, seed.DemoPostCount, res.Info.Total)
	assert.Equal(t, 3, res.Info.LastPage)
	assert.Len(t, res.Pinned, 1)
}

type failingStore struct{}

func (failingStore) AddUser(ctx context.Context, u posts.User) (posts.User, error) {
	return posts.User{}, errors.New("disk full")
}

func (failingStore) AddPost(ctx context.Context, p posts.Post, createdAt time.Time) (posts.Post, error) {
	return posts.Post{}, errors.New("disk full")
}

func TestDemo_PropagatesErrors(t *testing.T) {
	_, err := seed.Demo(context.Background(), failingStore{}, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to seed user u1")
}
