package trending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"Tally/internal/core/posts"
)

// Mode selects where the trending list comes from
type Mode string

const (
	// ModeClient ranks the local candidates only
	ModeClient Mode = "client"
	// ModeServer prefers the server endpoint and ranks locally as a fallback
	ModeServer Mode = "server"
)

// ParseMode validates a configured mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeClient, ModeServer:
		return Mode(s), nil
	case "":
		return ModeServer, nil
	default:
		return "", posts.NewValidationError("trending_mode", fmt.Sprintf("unknown mode %q, want client or server", s))
	}
}

// Source fetches the server's trending posts
type Source func(ctx context.Context) ([]posts.Post, error)

// Config holds engine settings
type Config struct {
	Now        func() time.Time
	Mode       Mode
	WindowDays int
	Limit      int
}

// Engine produces the trending list in either client or server-assisted mode
type Engine struct {
	source     Source
	ranker     *Ranker
	breaker    *circuitBreaker
	logger     *slog.Logger
	mode       Mode
	windowDays int
	limit      int
}

// NewEngine creates an engine. A nil source forces client mode.
func NewEngine(cfg Config, source Source, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeServer
	}
	if source == nil {
		cfg.Mode = ModeClient
	}

	return &Engine{
		source:     source,
		ranker:     NewRanker(cfg.Now),
		breaker:    newCircuitBreaker(cfg.Now, logger),
		logger:     logger,
		mode:       cfg.Mode,
		windowDays: cfg.WindowDays,
		limit:      cfg.Limit,
	}
}

// Mode returns the engine's mode
func (e *Engine) Mode() Mode {
	return e.mode
}

// Limit returns the maximum list length
func (e *Engine) Limit() int {
	return e.limit
}

// Fetch calls the server endpoint through the circuit breaker.
// In client mode it returns ErrNoSource without calling anything.
func (e *Engine) Fetch(ctx context.Context) ([]posts.Post, error) {
	if e.mode != ModeServer {
		return nil, ErrNoSource
	}

	if err := e.breaker.canAttempt(); err != nil {
		return nil, err
	}

	items, err := e.source(ctx)
	if err != nil {
		e.breaker.recordFailure(err)
		return nil, fmt.Errorf("failed to fetch trending posts: %w", err)
	}

	e.breaker.recordSuccess()
	return items, nil
}

// Resolve picks the trending list from a server result and the local
// candidates. Server results are validated and passed through; an empty or
// failed server result falls back to ranking the candidates locally.
func (e *Engine) Resolve(server []posts.Post, serverErr error, candidates []posts.Post) Ranking {
	if e.mode == ModeServer {
		if serverErr != nil {
			e.logger.Warn("trending endpoint unavailable, ranking locally", "error", serverErr)
		} else if valid := e.validate(server); len(valid) > 0 {
			return ranked(TierServer, e.ranker.Candidates(valid), e.limit)
		} else {
			e.logger.Info("trending endpoint returned no posts, ranking locally")
		}
	}

	r := e.ranker.Rank(candidates, e.windowDays, e.limit)
	e.logger.Debug("ranked trending locally",
		"tier", r.Tier,
		"candidates", len(candidates),
		"ranked", len(r.Candidates))
	return r
}

// Trending fetches from the server when in server mode and resolves against candidates
func (e *Engine) Trending(ctx context.Context, candidates []posts.Post) Ranking {
	var (
		server []posts.Post
		err    error
	)
	if e.mode == ModeServer {
		server, err = e.Fetch(ctx)
	}
	return e.Resolve(server, err, candidates)
}

// validate drops items without an id and repeated ids, and clamps counts
func (e *Engine) validate(items []posts.Post) []posts.Post {
	items = lo.Filter(items, func(p posts.Post, _ int) bool { return !p.ID.IsZero() })
	items = lo.UniqBy(items, func(p posts.Post) posts.ID { return p.ID })
	return lo.Map(items, func(p posts.Post, _ int) posts.Post {
		p.Normalize()
		return p
	})
}
