package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Tally/internal/core/posts"
)

func ids(values ...string) []posts.ID {
	out := make([]posts.ID, len(values))
	for i, v := range values {
		out[i] = posts.ID(v)
	}
	return out
}

func viewIDs(views []posts.PostView) []posts.ID {
	out := make([]posts.ID, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func TestStore_SingleRecordSharedAcrossViews(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "42", LikesCount: 3}})
	s.SetView(ViewFeed, ids("42"))
	s.SetView(ViewPinned, ids("42"))
	s.SetView(ViewTrending, ids("42"))

	p, ok := s.Post("42")
	require.True(t, ok)
	p.IsLiked = true
	p.LikesCount = 4
	s.PutPost(p)

	for _, v := range []View{ViewFeed, ViewPinned, ViewTrending} {
		got := s.View(v)
		require.Len(t, got, 1, v)
		assert.True(t, got[0].IsLiked, v)
		assert.Equal(t, 4, got[0].LikesCount, v)
	}
}

func TestStore_AuthorJoin(t *testing.T) {
	s := NewStore(nil)
	s.UpsertUsers([]posts.User{{ID: "u1", Name: "Ada"}})
	s.UpsertPosts([]posts.Post{{ID: "1", AuthorID: "u1"}, {ID: "2", AuthorID: "missing"}})
	s.SetView(ViewFeed, ids("1", "2"))

	u, _ := s.User("u1")
	u.IsFollowing = true
	s.PutUser(u)

	got := s.View(ViewFeed)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Author)
	assert.True(t, got[0].Author.IsFollowing)
	assert.Nil(t, got[1].Author)
}

func TestStore_UpsertSkipsHeldRecords(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "1", LikesCount: 1}})

	s.HoldPost("1")
	s.UpsertPosts([]posts.Post{{ID: "1", LikesCount: 99}})
	p, _ := s.Post("1")
	assert.Equal(t, 1, p.LikesCount)

	s.ReleasePost("1")
	s.UpsertPosts([]posts.Post{{ID: "1", LikesCount: 99}})
	p, _ = s.Post("1")
	assert.Equal(t, 99, p.LikesCount)
}

func TestStore_HoldIsCounted(t *testing.T) {
	s := NewStore(nil)
	s.UpsertUsers([]posts.User{{ID: "u", FollowersCount: 1}})

	s.HoldUser("u")
	s.HoldUser("u")
	s.ReleaseUser("u")
	s.UpsertUsers([]posts.User{{ID: "u", FollowersCount: 5}})
	u, _ := s.User("u")
	assert.Equal(t, 1, u.FollowersCount)

	s.ReleaseUser("u")
	s.UpsertUsers([]posts.User{{ID: "u", FollowersCount: 5}})
	u, _ = s.User("u")
	assert.Equal(t, 5, u.FollowersCount)
}

func TestStore_PostAndUserHoldsAreIndependent(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "1", LikesCount: 1}})
	s.UpsertUsers([]posts.User{{ID: "1", FollowersCount: 1}})

	s.HoldPost("1")
	s.UpsertUsers([]posts.User{{ID: "1", FollowersCount: 2}})

	u, _ := s.User("1")
	assert.Equal(t, 2, u.FollowersCount)
}

func TestStore_AddPostsKeepsExisting(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "1", Title: "fresh"}})
	s.AddPosts([]posts.Post{{ID: "1", Title: "stale"}, {ID: "2", Title: "new"}})

	p1, _ := s.Post("1")
	p2, ok := s.Post("2")
	assert.Equal(t, "fresh", p1.Title)
	require.True(t, ok)
	assert.Equal(t, "new", p2.Title)
}

func TestStore_UpsertNormalizesAndDropsMissingIDs(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "", Title: "orphan"}, {ID: "1", LikesCount: -4}})

	p, ok := s.Post("1")
	require.True(t, ok)
	assert.Equal(t, 0, p.LikesCount)
	_, ok = s.Post("")
	assert.False(t, ok)
}

func TestStore_AppendViewFirstSeenWins(t *testing.T) {
	s := NewStore(nil)
	s.SetView(ViewFeed, ids("A", "B", "C"))

	added := s.AppendView(ViewFeed, ids("C", "D", "E", "D", ""))

	assert.Equal(t, ids("D", "E"), added)
	assert.Equal(t, ids("A", "B", "C", "D", "E"), s.ViewIDs(ViewFeed))
}

func TestStore_SetViewDedupes(t *testing.T) {
	s := NewStore(nil)
	s.SetView(ViewTrending, ids("1", "2", "1", "", "3"))

	assert.Equal(t, ids("1", "2", "3"), s.ViewIDs(ViewTrending))
}

func TestStore_ViewSkipsMissingRecords(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "1"}})
	s.SetView(ViewFeed, ids("1", "ghost"))

	assert.Equal(t, ids("1"), viewIDs(s.View(ViewFeed)))
}

func TestStore_People(t *testing.T) {
	s := NewStore(nil)
	s.UpsertUsers([]posts.User{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	s.SetPeople(ids("b", "a", "b", "zz"))

	people := s.People()
	require.Len(t, people, 2)
	assert.Equal(t, "B", people[0].Name)
	assert.Equal(t, "A", people[1].Name)
}

func TestStore_Prune(t *testing.T) {
	s := NewStore(nil)
	s.UpsertUsers([]posts.User{{ID: "author"}, {ID: "orphan"}, {ID: "person"}})
	s.UpsertPosts([]posts.Post{
		{ID: "kept", AuthorID: "author"},
		{ID: "dropped"},
		{ID: "held"},
	})
	s.SetView(ViewFeed, ids("kept"))
	s.SetPeople(ids("person"))
	s.HoldPost("held")

	s.Prune()

	_, ok := s.Post("kept")
	assert.True(t, ok)
	_, ok = s.Post("dropped")
	assert.False(t, ok)
	_, ok = s.Post("held")
	assert.True(t, ok)
	_, ok = s.User("author")
	assert.True(t, ok)
	_, ok = s.User("person")
	assert.True(t, ok)
	_, ok = s.User("orphan")
	assert.False(t, ok)
}

func TestStore_PlacementRoundTrip(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "A"}, {ID: "B"}, {ID: "C"}})
	s.SetView(ViewFeed, ids("A", "B", "C"))
	s.SetView(ViewPinned, ids("B"))
	s.SetView(ViewTrending, ids("C", "B"))

	before, ok := s.Placement("B")
	require.True(t, ok)
	assert.Equal(t, map[View]int{ViewFeed: 1, ViewPinned: 0, ViewTrending: 1}, before.Positions)

	removed := before
	removed.Present = false
	s.ApplyPlacement(removed)

	assert.Equal(t, ids("A", "C"), s.ViewIDs(ViewFeed))
	assert.Empty(t, s.ViewIDs(ViewPinned))
	assert.Equal(t, ids("C"), s.ViewIDs(ViewTrending))

	s.ApplyPlacement(before)

	assert.Equal(t, ids("A", "B", "C"), s.ViewIDs(ViewFeed))
	assert.Equal(t, ids("B"), s.ViewIDs(ViewPinned))
	assert.Equal(t, ids("C", "B"), s.ViewIDs(ViewTrending))
}

func TestStore_PlacementRestoreKeepsCurrentRecord(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "A", LikesCount: 5}})
	s.SetView(ViewFeed, ids("A"))

	before, ok := s.Placement("A")
	require.True(t, ok)

	removed := before
	removed.Present = false
	s.ApplyPlacement(removed)

	p, ok := s.Post("A")
	require.True(t, ok)
	p.LikesCount = 7
	s.PutPost(p)

	s.ApplyPlacement(before)

	assert.Equal(t, ids("A"), s.ViewIDs(ViewFeed))
	p, ok = s.Post("A")
	require.True(t, ok)
	assert.Equal(t, 7, p.LikesCount)
}

func TestStore_PlacementRestoresForgottenRecord(t *testing.T) {
	s := NewStore(nil)
	s.UpsertPosts([]posts.Post{{ID: "A", LikesCount: 5}})
	s.SetView(ViewFeed, ids("A"))

	before, ok := s.Placement("A")
	require.True(t, ok)
	s.Forget("A")

	s.ApplyPlacement(before)

	p, ok := s.Post("A")
	require.True(t, ok)
	assert.Equal(t, 5, p.LikesCount)
}

func TestStore_PlacementUnknown(t *testing.T) {
	s := NewStore(nil)
	_, ok := s.Placement("nope")
	assert.False(t, ok)
}
