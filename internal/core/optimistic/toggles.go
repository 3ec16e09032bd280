package optimistic

import "Tally/internal/core/posts"

// ToggleLike flips IsLiked and moves LikesCount with it, never below zero
func ToggleLike(p posts.Post) posts.Post {
	p.IsLiked = !p.IsLiked
	if p.IsLiked {
		p.LikesCount++
	} else {
		p.LikesCount--
	}
	if p.LikesCount < 0 {
		p.LikesCount = 0
	}
	return p
}

// ToggleFollow flips IsFollowing and moves FollowersCount with it, never below zero
func ToggleFollow(u posts.User) posts.User {
	u.IsFollowing = !u.IsFollowing
	if u.IsFollowing {
		u.FollowersCount++
	} else {
		u.FollowersCount--
	}
	if u.FollowersCount < 0 {
		u.FollowersCount = 0
	}
	return u
}

// SetLike returns a reconcile that writes server like state
func SetLike(isLiked bool, likesCount int) Reconcile[posts.Post] {
	return func(p posts.Post) posts.Post {
		p.IsLiked = isLiked
		p.LikesCount = max(likesCount, 0)
		return p
	}
}

// SetFollow returns a reconcile that writes server follow state
func SetFollow(isFollowing bool, followersCount int) Reconcile[posts.User] {
	return func(u posts.User) posts.User {
		u.IsFollowing = isFollowing
		u.FollowersCount = max(followersCount, 0)
		return u
	}
}
