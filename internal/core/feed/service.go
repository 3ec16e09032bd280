// Package feed is the single entry point the UI talks to. It combines
// pagination, trending, and optimistic mutations over one entity store.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"Tally/internal/backend"
	"Tally/internal/core/entities"
	"Tally/internal/core/optimistic"
	"Tally/internal/core/pagination"
	"Tally/internal/core/posts"
	"Tally/internal/core/trending"
)

// Config holds facade settings
type Config struct {
	Trending        trending.Config
	PerPage         int
	MutationTimeout time.Duration
	SearchCacheSize int
	SearchCacheTTL  time.Duration
}

// Service is safe for concurrent use. Accessors return copies of the latest
// reconciled state; actions block until the server answers.
type Service struct {
	client   backend.Client
	store    *entities.Store
	feed     *pagination.Controller
	profile  *pagination.Controller
	trending *trending.Engine
	likes    *optimistic.Coordinator[posts.Post]
	follows  *optimistic.Coordinator[posts.User]
	deletes  *optimistic.Coordinator[entities.Placement]
	cache    *expirable.LRU[searchKey, *backend.FeedPage]
	notices  chan Notice
	logger   *slog.Logger

	// postBusy locks a post across its like and delete coordinators
	postBusy    map[posts.ID]optimistic.Kind
	search      *searchState
	profileUser posts.ID
	searchSeq   uint64
	perPage     int
	mu          sync.Mutex
}

// NewService wires the facade over client
func NewService(client backend.Client, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 10
	}
	if cfg.SearchCacheSize <= 0 {
		cfg.SearchCacheSize = 64
	}
	if cfg.SearchCacheTTL <= 0 {
		cfg.SearchCacheTTL = 2 * time.Minute
	}

	store := entities.NewStore(logger)
	s := &Service{
		client:   client,
		store:    store,
		feed:     pagination.NewController(store, entities.ViewFeed, cfg.PerPage, logger),
		profile:  pagination.NewController(store, entities.ViewProfile, cfg.PerPage, logger),
		likes:    optimistic.NewCoordinator[posts.Post](store.PostRecords(), cfg.MutationTimeout, logger),
		follows:  optimistic.NewCoordinator[posts.User](store.UserRecords(), cfg.MutationTimeout, logger),
		deletes:  optimistic.NewCoordinator[entities.Placement](store.Placements(), cfg.MutationTimeout, logger),
		cache:    expirable.NewLRU[searchKey, *backend.FeedPage](cfg.SearchCacheSize, nil, cfg.SearchCacheTTL),
		notices:  make(chan Notice, noticeBuffer),
		postBusy: make(map[posts.ID]optimistic.Kind),
		perPage:  cfg.PerPage,
		logger:   logger,
	}
	s.trending = trending.NewEngine(cfg.Trending, s.fetchTrending, logger)
	return s
}

// fetchTrending is the engine's server source. Embedded authors go straight
// into the store; the posts are written once the ranking is resolved.
func (s *Service) fetchTrending(ctx context.Context) ([]posts.Post, error) {
	res, err := s.client.FetchTrending(ctx)
	if err != nil {
		return nil, err
	}
	s.store.UpsertUsers(res.Authors)
	return res.Posts, nil
}

// fetcher adapts the client to a pagination fetcher. When first is non-nil
// the whole decoded page is kept for the caller.
func (s *Service) fetcher(q backend.FeedQuery, first **backend.FeedPage) pagination.Fetcher {
	return func(ctx context.Context, page, perPage int) ([]posts.Post, posts.PageInfo, error) {
		res, err := s.client.FetchFeedPage(ctx, page, perPage, q)
		if err != nil {
			return nil, posts.PageInfo{}, err
		}
		s.store.UpsertUsers(res.Authors)
		if first != nil {
			*first = res
		}
		return res.Posts, res.Info, nil
	}
}

// InitialLoad leaves any active search, then loads page 1 and the server
// trending list concurrently and derives the pinned and trending views. A
// failed page 1 keeps whatever feed was shown before.
func (s *Service) InitialLoad(ctx context.Context) error {
	s.leaveSearch()

	var (
		first     *backend.FeedPage
		server    []posts.Post
		serverErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.feed.LoadFirst(gctx, s.fetcher(backend.FeedQuery{}, &first))
		return err
	})
	if s.trending.Mode() == trending.ModeServer {
		g.Go(func() error {
			// trending failures fall back to local ranking
			server, serverErr = s.trending.Fetch(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.notify("initial_load", "", err)
		return err
	}

	s.applyPinned(first)
	s.applyTrending(server, serverErr)
	return nil
}

// applyPinned sets the pinned view from page 1. Servers that do not send a
// separate pinned list get the page items flagged as pinned.
func (s *Service) applyPinned(first *backend.FeedPage) {
	if first == nil {
		return
	}

	pinned := first.Pinned
	if len(pinned) == 0 {
		pinned = lo.Filter(first.Posts, func(p posts.Post, _ int) bool { return p.IsPinned })
	}

	s.store.UpsertPosts(pinned)
	s.store.SetView(entities.ViewPinned, lo.Map(pinned, func(p posts.Post, _ int) posts.ID { return p.ID }))
}

func (s *Service) applyTrending(server []posts.Post, serverErr error) {
	candidates := lo.Map(s.store.View(entities.ViewFeed), func(v posts.PostView, _ int) posts.Post { return v.Post })
	ranking := s.trending.Resolve(server, serverErr, candidates)

	s.store.UpsertPosts(ranking.Posts())
	s.store.SetView(entities.ViewTrending, ranking.IDs())
	s.logger.Info("trending updated", "tier", ranking.Tier, "posts", len(ranking.Candidates))
}

// RefreshTrending recomputes the trending view on its own
func (s *Service) RefreshTrending(ctx context.Context) {
	var (
		server []posts.Post
		err    error
	)
	if s.trending.Mode() == trending.ModeServer {
		server, err = s.trending.Fetch(ctx)
	}
	s.applyTrending(server, err)
}

// Refresh leaves any active search, drops cached search results, reloads
// page 1 with trending and pinned, and prunes records no view references.
func (s *Service) Refresh(ctx context.Context) error {
	s.cache.Purge()

	if err := s.InitialLoad(ctx); err != nil {
		return err
	}
	s.store.Prune()
	return nil
}

// leaveSearch drops search mode without restoring the pre-search feed, which
// the caller is about to replace.
func (s *Service) leaveSearch() {
	s.mu.Lock()
	active := s.search != nil
	s.search = nil
	s.searchSeq++
	s.mu.Unlock()

	if active {
		s.store.ClearView(entities.ViewSearch)
		s.store.SetPeople(nil)
	}
}

// LoadMore appends the next feed page. It is a no-op while a search is
// shown, while a load is in flight, or when there are no more pages.
func (s *Service) LoadMore(ctx context.Context) (pagination.PageState, error) {
	if s.IsSearching() {
		return s.feed.State(), ErrSearchActive
	}

	state, err := s.feed.LoadNext(ctx, s.fetcher(backend.FeedQuery{}, nil))
	if err != nil {
		s.notify("load_more", "", err)
	}
	return state, err
}

// LoadProfile loads page 1 of userID's posts into the profile view
func (s *Service) LoadProfile(ctx context.Context, userID posts.ID) error {
	if userID.IsZero() {
		return posts.NewValidationError("user_id", "user id is required")
	}

	s.mu.Lock()
	if s.profileUser != userID {
		s.profileUser = userID
		s.profile.Reset()
	}
	s.mu.Unlock()

	_, err := s.profile.LoadFirst(ctx, s.fetcher(backend.FeedQuery{AuthorID: userID}, nil))
	if err != nil {
		s.notify("load_profile", userID, err)
	}
	return err
}

// LoadMoreProfile appends the next page of the loaded profile
func (s *Service) LoadMoreProfile(ctx context.Context) (pagination.PageState, error) {
	s.mu.Lock()
	userID := s.profileUser
	s.mu.Unlock()

	if userID.IsZero() {
		return s.profile.State(), ErrNoProfile
	}

	state, err := s.profile.LoadNext(ctx, s.fetcher(backend.FeedQuery{AuthorID: userID}, nil))
	if err != nil {
		s.notify("load_profile", userID, err)
	}
	return state, err
}

// Like toggles the viewer's like on a post. Every view showing the post
// changes at once; the server's counts replace the local guess.
func (s *Service) Like(ctx context.Context, id posts.ID) error {
	unlock, err := s.lockPost(id, optimistic.KindLike)
	if err != nil {
		return err
	}
	defer unlock()

	_, err = s.likes.Mutate(ctx, optimistic.Mutation[posts.Post]{
		EntityID: id,
		Kind:     optimistic.KindLike,
		Apply:    optimistic.ToggleLike,
		Confirm: func(ctx context.Context) (optimistic.Reconcile[posts.Post], error) {
			res, err := s.client.MutateLike(ctx, id, posts.KindPost)
			if err != nil {
				return nil, err
			}
			return optimistic.SetLike(res.IsLiked, res.LikesCount), nil
		},
	})
	if err != nil {
		s.notify("like", id, err)
	}
	return err
}

// Follow toggles the viewer's follow of a user. Posts by that user in every
// view see the change through the shared user record.
func (s *Service) Follow(ctx context.Context, userID posts.ID) error {
	_, err := s.follows.Mutate(ctx, optimistic.Mutation[posts.User]{
		EntityID: userID,
		Kind:     optimistic.KindFollow,
		Apply:    optimistic.ToggleFollow,
		Confirm: func(ctx context.Context) (optimistic.Reconcile[posts.User], error) {
			res, err := s.client.MutateFollow(ctx, userID)
			if err != nil {
				return nil, err
			}
			return optimistic.SetFollow(res.IsFollowing, res.FollowersCount), nil
		},
	})
	if err != nil {
		s.notify("follow", userID, err)
	}
	return err
}

// DeletePost removes a post from every view immediately. If the server
// refuses, the post returns to the exact positions it held.
func (s *Service) DeletePost(ctx context.Context, id posts.ID) error {
	removed := func(pl entities.Placement) entities.Placement {
		pl.Present = false
		return pl
	}

	unlock, err := s.lockPost(id, optimistic.KindDelete)
	if err != nil {
		return err
	}
	defer unlock()

	_, err = s.deletes.Mutate(ctx, optimistic.Mutation[entities.Placement]{
		EntityID: id,
		Kind:     optimistic.KindDelete,
		Apply:    removed,
		Confirm: func(ctx context.Context) (optimistic.Reconcile[entities.Placement], error) {
			if err := s.client.DeletePost(ctx, id); err != nil {
				return nil, err
			}
			return removed, nil
		},
	})
	if err != nil {
		s.notify("delete", id, err)
		return err
	}

	s.store.Forget(id)
	s.dropFromCache(id)
	return nil
}

// lockPost reserves id for one mutation. A like and a delete of the same
// post never overlap; the second is rejected like a duplicate tap.
func (s *Service) lockPost(id posts.ID, kind optimistic.Kind) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, busy := s.postBusy[id]; busy {
		s.logger.Debug("post mutation rejected", "post", id, "kind", kind, "pending", held)
		return nil, optimistic.ErrMutationInFlight
	}
	s.postBusy[id] = kind

	return func() {
		s.mu.Lock()
		delete(s.postBusy, id)
		s.mu.Unlock()
	}, nil
}

// dropFromCache removes a deleted post from cached search pages
func (s *Service) dropFromCache(id posts.ID) {
	for _, key := range s.cache.Keys() {
		page, ok := s.cache.Peek(key)
		if !ok || !lo.ContainsBy(page.Posts, func(p posts.Post) bool { return p.ID == id }) {
			continue
		}
		trimmed := *page
		trimmed.Posts = lo.Reject(page.Posts, func(p posts.Post, _ int) bool { return p.ID == id })
		s.cache.Add(key, &trimmed)
	}
}

// IsBusy reports whether a mutation of kind is pending for id
func (s *Service) IsBusy(id posts.ID, kind optimistic.Kind) bool {
	switch kind {
	case optimistic.KindLike:
		return s.likes.Pending(id, kind)
	case optimistic.KindFollow:
		return s.follows.Pending(id, kind)
	case optimistic.KindDelete:
		return s.deletes.Pending(id, kind)
	default:
		return false
	}
}

// IsLoadingMore reports whether a feed page load is in flight
func (s *Service) IsLoadingMore() bool {
	return s.feed.IsLoading()
}

// GetVisibleFeed returns the search results while searching, otherwise the feed
func (s *Service) GetVisibleFeed() []posts.PostView {
	if s.IsSearching() {
		return s.store.View(entities.ViewSearch)
	}
	return s.store.View(entities.ViewFeed)
}

// GetTrending returns the trending view
func (s *Service) GetTrending() []posts.PostView {
	return s.store.View(entities.ViewTrending)
}

// GetPinned returns the pinned view
func (s *Service) GetPinned() []posts.PostView {
	return s.store.View(entities.ViewPinned)
}

// GetProfile returns the loaded profile's posts
func (s *Service) GetProfile() []posts.PostView {
	return s.store.View(entities.ViewProfile)
}

// GetPeople returns the user results of the last search
func (s *Service) GetPeople() []posts.User {
	return s.store.People()
}

// Post returns the current record for id
func (s *Service) Post(id posts.ID) (posts.Post, error) {
	p, ok := s.store.Post(id)
	if !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	return p, nil
}

// PageState returns the feed cursor
func (s *Service) PageState() pagination.PageState {
	return s.feed.State()
}

// IsNoop reports whether err came from an action that was skipped rather
// than failed: a duplicate tap, a load already running, or no more pages.
func IsNoop(err error) bool {
	return errors.Is(err, optimistic.ErrMutationInFlight) ||
		errors.Is(err, ErrSearchActive) ||
		pagination.IsNoop(err)
}
