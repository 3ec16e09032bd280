// Package pagination owns the ordered feed list and its page cursor.
package pagination

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"Tally/internal/core/entities"
	"Tally/internal/core/posts"
)

// PageState is the cursor of a paginated list. CurrentPage is 1-based.
type PageState struct {
	CurrentPage int
	LastPage    int
	PerPage     int
	Total       int
	HasNextPage bool
	HasPrevPage bool
}

// CanLoadNext applies the stricter of the server flag and the page comparison
func (s PageState) CanLoadNext() bool {
	return s.HasNextPage && s.CurrentPage < s.LastPage
}

// Fetcher loads one page from the backend
type Fetcher func(ctx context.Context, page, perPage int) ([]posts.Post, posts.PageInfo, error)

// Snapshot is a copy of the list and cursor, used to restore the feed after a search
type Snapshot struct {
	IDs   []posts.ID
	State PageState
}

// Controller appends pages into one store view.
// State machine: Idle -> Loading(n+1) -> Idle(n+1) on success, Idle(n) on failure.
type Controller struct {
	store      *entities.Store
	logger     *slog.Logger
	view       entities.View
	state      PageState
	perPage    int
	generation uint64
	mu         sync.Mutex
	loading    bool
}

// NewController creates a controller writing into view of store
func NewController(store *entities.Store, view entities.View, perPage int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if perPage <= 0 {
		perPage = 10
	}
	return &Controller{
		store:   store,
		view:    view,
		perPage: perPage,
		state:   PageState{CurrentPage: 1, PerPage: perPage},
		logger:  logger,
	}
}

// Reset clears the list and the cursor. Any load in flight is discarded when it lands.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.generation++
	c.loading = false
	c.state = PageState{CurrentPage: 1, PerPage: c.perPage}
	c.store.ClearView(c.view)
}

// AppendPage merges one page into the list. Page 1 replaces the list wholesale;
// later pages are appended, ignoring items whose id is already listed.
func (c *Controller) AppendPage(items []posts.Post, info posts.PageInfo) PageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.appendLocked(items, info, info.CurrentPage <= 1)
}

func (c *Controller) appendLocked(items []posts.Post, info posts.PageInfo, replace bool) PageState {
	items = lo.Filter(items, func(p posts.Post, _ int) bool { return !p.ID.IsZero() })
	incoming := lo.Map(items, func(p posts.Post, _ int) posts.ID { return p.ID })

	if replace {
		c.store.UpsertPosts(items)
		c.store.SetView(c.view, incoming)
	} else {
		added := c.store.AppendView(c.view, incoming)
		fresh := lo.Filter(items, func(p posts.Post, _ int) bool { return lo.Contains(added, p.ID) })
		c.store.UpsertPosts(fresh)
		if dropped := len(incoming) - len(added); dropped > 0 {
			c.logger.Debug("ignored duplicate feed items",
				"view", c.view,
				"page", info.CurrentPage,
				"duplicates", dropped)
		}
	}

	c.state = stateFromInfo(info, c.perPage)
	return c.state
}

// stateFromInfo derives the cursor from the server's page block.
// HasNextPage is the OR of the explicit flag and the page comparison.
func stateFromInfo(info posts.PageInfo, defaultPerPage int) PageState {
	current := info.CurrentPage
	if current <= 0 {
		current = 1
	}

	last := info.LastPage
	if last <= 0 {
		last = current
		if info.HasNextPage {
			last = current + 1
		}
	}

	perPage := info.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	return PageState{
		CurrentPage: current,
		LastPage:    last,
		PerPage:     perPage,
		Total:       info.Total,
		HasNextPage: info.HasNextPage || current < last,
		HasPrevPage: info.HasPrevPage || current > 1,
	}
}

// LoadFirst fetches page 1 and, on success, replaces the list with it.
// On failure the existing list and cursor are kept.
func (c *Controller) LoadFirst(ctx context.Context, fetch Fetcher) (PageState, error) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.loading = true
	c.mu.Unlock()

	return c.load(ctx, fetch, gen, 1, true)
}

// LoadNext fetches the page after the current one and appends it.
// It is a no-op returning ErrLoadInProgress or ErrNoNextPage when a load is
// pending or the cursor says there is nothing more.
func (c *Controller) LoadNext(ctx context.Context, fetch Fetcher) (PageState, error) {
	c.mu.Lock()
	if c.loading {
		state := c.state
		c.mu.Unlock()
		return state, ErrLoadInProgress
	}
	if !c.state.CanLoadNext() {
		state := c.state
		c.mu.Unlock()
		return state, ErrNoNextPage
	}
	c.loading = true
	gen := c.generation
	next := c.state.CurrentPage + 1
	c.mu.Unlock()

	return c.load(ctx, fetch, gen, next, false)
}

func (c *Controller) load(ctx context.Context, fetch Fetcher, gen uint64, page int, replace bool) (PageState, error) {
	items, info, err := fetch(ctx, page, c.perPage)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("discarding superseded page load", "view", c.view, "page", page)
		return c.state, ErrSuperseded
	}
	c.loading = false

	if err != nil {
		c.logger.Warn("page load failed",
			"view", c.view,
			"page", page,
			"error", err)
		return c.state, fmt.Errorf("failed to load page %d: %w", page, err)
	}

	if info.CurrentPage <= 0 {
		info.CurrentPage = page
	}

	state := c.appendLocked(items, info, replace)
	c.logger.Info("page loaded",
		"view", c.view,
		"page", state.CurrentPage,
		"last_page", state.LastPage,
		"items", len(items),
		"has_next", state.CanLoadNext())
	return state, nil
}

// State returns the current cursor
func (c *Controller) State() PageState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsLoading reports whether a load is in flight
func (c *Controller) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Snapshot captures the list and cursor
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{IDs: c.store.ViewIDs(c.view), State: c.state}
}

// Restore puts back a snapshot taken earlier. Record contents are not touched,
// so mutations made since the snapshot stay visible.
func (c *Controller) Restore(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.SetView(c.view, snap.IDs)
	c.state = snap.State
}
