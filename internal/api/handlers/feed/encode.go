package feed

import (
	"github.com/samber/lo"

	"Tally/internal/backend"
	"Tally/internal/core/posts"
)

func toWirePosts(views []posts.PostView) []backend.WirePost {
	return lo.Map(views, func(v posts.PostView, _ int) backend.WirePost {
		return backend.ToWirePost(v.Post, v.Author)
	})
}

func toWireUsers(users []posts.User) []backend.WireUser {
	return lo.Map(users, func(u posts.User, _ int) backend.WireUser {
		return backend.ToWireUser(u)
	})
}

func toWirePagination(info posts.PageInfo) backend.WirePagination {
	return backend.WirePagination{
		CurrentPage: backend.FlexInt(info.CurrentPage),
		LastPage:    backend.FlexInt(info.LastPage),
		PerPage:     backend.FlexInt(info.PerPage),
		Total:       backend.FlexInt(info.Total),
		HasNextPage: backend.FlexBool(info.HasNextPage),
		HasPrevPage: backend.FlexBool(info.HasPrevPage),
	}
}
