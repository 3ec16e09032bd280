package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"resty.dev/v3"

	"Tally/internal/core/posts"
)

const (
	feedPath     = "/api/posts"
	trendingPath = "/api/posts/trending"
	likePath     = "/api/posts/{id}/like"
	postPath     = "/api/posts/{id}"
	followPath   = "/api/users/{id}/follow"
)

// ClientConfig configures the REST client
type ClientConfig struct {
	BaseURL string
	// RequestTimeout bounds each request, including time spent throttled
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// RESTClient implements Client over HTTP
type RESTClient struct {
	client  *resty.Client
	tokens  TokenProvider
	limiter *rate.Limiter
	logger  *slog.Logger
	timeout time.Duration
}

// NewRESTClient creates a client. Requests are throttled client-side and
// never retried automatically, since mutations are not idempotent.
func NewRESTClient(cfg ClientConfig, tokens TokenProvider, logger *slog.Logger) *RESTClient {
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		tokens = StaticTokenProvider("")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")

	return &RESTClient{
		client:  client,
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
		timeout: cfg.RequestTimeout,
	}
}

// Close releases idle connections
func (c *RESTClient) Close() error {
	return c.client.Close()
}

// FetchFeedPage loads one page of the feed, a profile, or a discovery search
func (c *RESTClient) FetchFeedPage(ctx context.Context, page, perPage int, q FeedQuery) (*FeedPage, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Type != "" {
		params.Set("type", string(q.Type))
	}
	if !q.AuthorID.IsZero() {
		params.Set("author_id", q.AuthorID.String())
	}

	env, err := c.do(ctx, http.MethodGet, feedPath, false, func(r *resty.Request) {
		r.SetQueryParamsFromValues(params)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed page %d: %w", page, err)
	}

	var raw rawFeedPage
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			c.logger.Warn("unreadable feed page data, treating as empty", "page", page, "error", err)
		}
	}

	out := &FeedPage{Info: raw.Pagination.toPageInfo()}
	authors := make(map[posts.ID]posts.User)

	out.Posts = c.decodePosts(raw.Posts, authors)
	out.Pinned = c.decodePosts(raw.PinnedPosts, authors)
	for _, msg := range raw.Users {
		var w WireUser
		if err := json.Unmarshal(msg, &w); err != nil || w.ID.IsZero() {
			c.logger.Debug("skipping malformed user", "error", err)
			continue
		}
		out.Users = append(out.Users, w.toUser())
	}
	for _, u := range authors {
		out.Authors = append(out.Authors, u)
	}

	return out, nil
}

// FetchTrending loads the server-ranked trending posts
func (c *RESTClient) FetchTrending(ctx context.Context) (*TrendingResult, error) {
	env, err := c.do(ctx, http.MethodGet, trendingPath, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending: %w", err)
	}

	var raw rawTrending
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			c.logger.Warn("unreadable trending data, treating as empty", "error", err)
		}
	}

	authors := make(map[posts.ID]posts.User)
	out := &TrendingResult{Posts: c.decodePosts(raw.Posts, authors)}
	for _, u := range authors {
		out.Authors = append(out.Authors, u)
	}
	return out, nil
}

// MutateLike toggles the viewer's like on a post or comment
func (c *RESTClient) MutateLike(ctx context.Context, id posts.ID, kind posts.EntityKind) (*LikeResult, error) {
	if kind == "" {
		kind = posts.KindPost
	}

	env, err := c.do(ctx, http.MethodPost, likePath, true, func(r *resty.Request) {
		r.SetPathParam("id", id.String()).
			SetQueryParam("kind", string(kind))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to like %s %s: %w", kind, id, err)
	}

	var data LikeData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: unreadable like result: %w", ErrTransient, err)
		}
	}
	return &LikeResult{IsLiked: bool(data.IsLiked), LikesCount: max(int(data.LikesCount), 0)}, nil
}

// MutateFollow toggles the viewer's follow of a user
func (c *RESTClient) MutateFollow(ctx context.Context, userID posts.ID) (*FollowResult, error) {
	env, err := c.do(ctx, http.MethodPost, followPath, true, func(r *resty.Request) {
		r.SetPathParam("id", userID.String())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to follow user %s: %w", userID, err)
	}

	var data FollowData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: unreadable follow result: %w", ErrTransient, err)
		}
	}
	return &FollowResult{IsFollowing: bool(data.IsFollowing), FollowersCount: max(int(data.FollowersCount), 0)}, nil
}

// DeletePost deletes one of the viewer's posts
func (c *RESTClient) DeletePost(ctx context.Context, id posts.ID) error {
	_, err := c.do(ctx, http.MethodDelete, postPath, true, func(r *resty.Request) {
		r.SetPathParam("id", id.String())
	})
	if err != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, err)
	}
	return nil
}

// decodePosts decodes items one at a time. Malformed items and items
// without an id are dropped; the rest of the page survives.
func (c *RESTClient) decodePosts(items []json.RawMessage, authors map[posts.ID]posts.User) []posts.Post {
	out := make([]posts.Post, 0, len(items))
	for i, msg := range items {
		var w WirePost
		if err := json.Unmarshal(msg, &w); err != nil {
			c.logger.Debug("skipping malformed post", "index", i, "error", err)
			continue
		}
		if w.ID.IsZero() {
			c.logger.Debug("skipping post without id", "index", i)
			continue
		}
		p, author := w.toPost()
		if author != nil {
			authors[author.ID] = *author
		}
		out = append(out, p)
	}
	return out
}

// do sends one request and unwraps the envelope. requireAuth fails fast
// with ErrUnauthorized when no token is available.
func (c *RESTClient) do(ctx context.Context, method, path string, requireAuth bool, configure func(*resty.Request)) (*Envelope, error) {
	token, authed := c.tokens.Token(ctx)
	if requireAuth && !authed {
		return nil, ErrUnauthorized
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	requestID := uuid.NewString()
	req := c.client.R().
		WithContext(ctx).
		SetHeader("X-Request-ID", requestID).
		SetResult(&Envelope{}).
		SetError(&Envelope{})
	if authed {
		req.SetAuthToken(token)
	}
	if configure != nil {
		configure(req)
	}

	start := time.Now()
	res, err := req.Execute(method, path)

	status := 0
	if res != nil {
		status = res.StatusCode()
	}
	c.logger.Debug("api request",
		"method", method,
		"path", path,
		"status", status,
		"request_id", requestID,
		"duration", time.Since(start))

	if err != nil && status == 0 {
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}

	return classify(status, envelopeOf(res))
}

func envelopeOf(res *resty.Response) *Envelope {
	if res == nil {
		return nil
	}
	v := res.Result()
	if res.IsError() {
		v = res.Error()
	}
	env, _ := v.(*Envelope)
	return env
}

// classify maps a status and envelope onto the error taxonomy
func classify(status int, env *Envelope) (*Envelope, error) {
	message := ""
	if env != nil {
		message = env.Message
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case status == http.StatusTooManyRequests || status >= 500:
		return nil, fmt.Errorf("%w: server returned %d", ErrTransient, status)
	case status >= 400:
		return nil, rejection(status, env)
	case env == nil:
		return nil, fmt.Errorf("%w: response had no envelope", ErrTransient)
	case !env.Success:
		return nil, rejection(status, env)
	}
	return env, nil
}

func rejection(status int, env *Envelope) *RejectionError {
	rej := &RejectionError{Status: status, Message: "request failed"}
	if env == nil {
		return rej
	}
	if env.Message != "" {
		rej.Message = env.Message
	}
	if len(env.Errors) == 0 {
		return rej
	}

	var fields map[string][]string
	if err := json.Unmarshal(env.Errors, &fields); err == nil {
		rej.Fields = fields
		return rej
	}
	var single map[string]string
	if err := json.Unmarshal(env.Errors, &single); err == nil {
		rej.Fields = make(map[string][]string, len(single))
		for k, v := range single {
			rej.Fields[k] = []string{v}
		}
	}
	return rej
}
