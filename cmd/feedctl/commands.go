package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"Tally/internal/core/feed"
	"Tally/internal/core/posts"
)

var feedCmd = &cli.Command{
	Name:  "feed",
	Usage: "Show pinned, trending and the home feed",
	Flags: []cli.Flag{pagesFlag},
	Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
		if err := loadPages(ctx, a, int(c.Int(pagesFlag.Name))); err != nil {
			return err
		}

		a.printSection("Pinned", a.service.GetPinned())
		a.printSection("Trending", a.service.GetTrending())
		a.printSection("Feed", a.service.GetVisibleFeed())
		a.printPageState()
		return nil
	}),
}

var searchCmd = &cli.Command{
	Name:      "search",
	Usage:     "Search posts and people",
	ArgsUsage: "<query>",
	Flags:     []cli.Flag{searchTypeFlag},
	Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
		if err := a.service.Search(ctx, c.Args().First(), posts.SearchType(c.String(searchTypeFlag.Name))); err != nil {
			return err
		}

		a.printSection("Posts", a.service.GetVisibleFeed())
		if people := a.service.GetPeople(); len(people) > 0 {
			fmt.Fprintln(a.out, "== People")
			for _, u := range people {
				a.printUser(u)
			}
		}
		return nil
	}),
}

var profileCmd = &cli.Command{
	Name:      "profile",
	Usage:     "Show a user's posts",
	ArgsUsage: "<user-id>",
	Flags:     []cli.Flag{pagesFlag},
	Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
		if err := a.service.LoadProfile(ctx, posts.ID(c.Args().First())); err != nil {
			return err
		}
		for i := 1; i < int(c.Int(pagesFlag.Name)); i++ {
			if _, err := a.service.LoadMoreProfile(ctx); err != nil {
				if feed.IsNoop(err) {
					break
				}
				return err
			}
		}

		a.printSection("Profile", a.service.GetProfile())
		return nil
	}),
}

var likeCmd = &cli.Command{
	Name:      "like",
	Usage:     "Toggle your like on a post",
	ArgsUsage: "<post-id>",
	Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
		id := posts.ID(c.Args().First())
		if err := findPost(ctx, a, id); err != nil {
			return err
		}
		if err := a.service.Like(ctx, id); err != nil {
			return err
		}

		p, err := a.service.Post(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "post %s liked=%t likes=%d\n", p.ID, p.IsLiked, p.LikesCount)
		return nil
	}),
}

var followCmd = &cli.Command{
	Name:      "follow",
	Usage:     "Toggle following a user",
	ArgsUsage: "<user-id>",
	Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
		if err := a.service.InitialLoad(ctx); err != nil {
			return err
		}
		id := posts.ID(c.Args().First())
		if err := a.service.Follow(ctx, id); err != nil {
			return err
		}

		for _, v := range a.service.GetVisibleFeed() {
			if v.Author != nil && v.Author.ID == id {
				a.printUser(*v.Author)
				return nil
			}
		}
		fmt.Fprintf(a.out, "user %s updated\n", id)
		return nil
	}),
}

var deleteCmd = &cli.Command{
	Name:      "delete",
	Usage:     "Delete one of your posts",
	ArgsUsage: "<post-id>",
	Action: withApp(func(ctx context.Context, c *cli.Command, a *app) error {
		id := posts.ID(c.Args().First())
		if err := findPost(ctx, a, id); err != nil {
			return err
		}
		if err := a.service.DeletePost(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "post %s deleted\n", id)
		return nil
	}),
}

func loadPages(ctx context.Context, a *app, pages int) error {
	if err := a.service.InitialLoad(ctx); err != nil {
		return err
	}
	for i := 1; i < pages; i++ {
		if _, err := a.service.LoadMore(ctx); err != nil {
			if feed.IsNoop(err) {
				return nil
			}
			return err
		}
	}
	return nil
}

// findPost pages through the feed until id is loaded
func findPost(ctx context.Context, a *app, id posts.ID) error {
	if id.IsZero() {
		return posts.NewValidationError("post-id", "post id is required")
	}
	if err := a.service.InitialLoad(ctx); err != nil {
		return err
	}
	for {
		if _, err := a.service.Post(id); err == nil {
			return nil
		}
		if _, err := a.service.LoadMore(ctx); err != nil {
			if feed.IsNoop(err) {
				return fmt.Errorf("post %s: %w", id, posts.ErrNotFound)
			}
			return err
		}
	}
}

func (a *app) printSection(title string, views []posts.PostView) {
	fmt.Fprintf(a.out, "== %s (%d)\n", title, len(views))
	for _, v := range views {
		author := "unknown"
		if v.Author != nil {
			author = v.Author.Name
		}
		liked := " "
		if v.IsLiked {
			liked = "*"
		}
		fmt.Fprintf(a.out, "%-5s %s %-40.40s %-20.20s likes=%-4d comments=%-3d %s\n",
			v.ID, liked, v.Title, author, v.LikesCount, v.CommentsCount, v.CreatedAt)
	}
}

func (a *app) printUser(u posts.User) {
	fmt.Fprintf(a.out, "%-5s %-24s following=%t followers=%d\n", u.ID, u.Name, u.IsFollowing, u.FollowersCount)
}

func (a *app) printPageState() {
	state := a.service.PageState()
	fmt.Fprintf(a.out, "page %d of %d (%d total)", state.CurrentPage, state.LastPage, state.Total)
	if state.CanLoadNext() {
		fmt.Fprint(a.out, ", more available")
	}
	fmt.Fprintln(a.out)
}
