// Package config loads client and dev server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"Tally/internal/core/posts"
	"Tally/internal/core/trending"
)

// DefaultJWTSecret signs dev server tokens when DEV_JWT_SECRET is unset
const DefaultJWTSecret = "dev-secret-change-me"

// Config holds every tunable the feed engine and dev server read
type Config struct {
	APIURL      string
	AccessToken string
	LogLevel    slog.Level

	RequestTimeout  time.Duration
	MutationTimeout time.Duration
	PerPage         int

	TrendingMode       trending.Mode
	TrendingWindowDays int
	TrendingLimit      int

	SearchCacheSize int
	SearchCacheTTL  time.Duration

	RequestsPerSecond float64
	RequestBurst      int

	// Dev server. An empty DatabaseURL keeps posts in memory.
	DatabaseURL   string
	Port          string
	JWTSecret     string
	RateLimit     int
	RateLimitSpan time.Duration
}

// Load reads .env files (when present) and then the process environment.
// Values already set in the environment win over .env entries.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset keys
func FromEnv(getenv func(string) string) (*Config, error) {
	e := &reader{getenv: getenv}

	cfg := &Config{
		APIURL:      strings.TrimRight(e.str("TALLY_API_URL", "http://localhost:8081"), "/"),
		AccessToken: e.str("TALLY_ACCESS_TOKEN", ""),
		LogLevel:    e.level("LOG_LEVEL", slog.LevelInfo),

		RequestTimeout:  e.duration("TALLY_REQUEST_TIMEOUT", 30*time.Second),
		MutationTimeout: e.duration("TALLY_MUTATION_TIMEOUT", 30*time.Second),
		PerPage:         e.positiveInt("TALLY_PER_PAGE", 10),

		TrendingWindowDays: e.positiveInt("TALLY_TRENDING_WINDOW_DAYS", 7),
		TrendingLimit:      e.positiveInt("TALLY_TRENDING_LIMIT", 10),

		SearchCacheSize: e.positiveInt("TALLY_SEARCH_CACHE_SIZE", 64),
		SearchCacheTTL:  e.duration("TALLY_SEARCH_CACHE_TTL", 2*time.Minute),

		RequestsPerSecond: e.positiveFloat("TALLY_REQUESTS_PER_SECOND", 10),
		RequestBurst:      e.positiveInt("TALLY_REQUEST_BURST", 20),

		DatabaseURL:   e.str("DATABASE_URL", ""),
		Port:          e.str("APPVIEW_PORT", "8081"),
		JWTSecret:     e.str("DEV_JWT_SECRET", DefaultJWTSecret),
		RateLimit:     e.positiveInt("DEV_RATE_LIMIT", 100),
		RateLimitSpan: time.Minute,
	}

	mode, err := trending.ParseMode(strings.ToLower(e.str("TALLY_TRENDING_MODE", string(trending.ModeServer))))
	if err != nil {
		e.errs = append(e.errs, err)
	}
	cfg.TrendingMode = mode

	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}
	return cfg, nil
}

// reader collects every invalid value instead of stopping at the first
type reader struct {
	getenv func(string) string
	errs   []error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) positiveInt(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.errs = append(r.errs, posts.NewValidationError(key, fmt.Sprintf("must be a positive integer, got %q", v)))
		return def
	}
	return n
}

func (r *reader) positiveFloat(key string, def float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		r.errs = append(r.errs, posts.NewValidationError(key, fmt.Sprintf("must be a positive number, got %q", v)))
		return def
	}
	return f
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.errs = append(r.errs, posts.NewValidationError(key, fmt.Sprintf("must be a positive duration such as 30s, got %q", v)))
		return def
	}
	return d
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, posts.NewValidationError(key, fmt.Sprintf("unknown log level %q", v)))
		return def
	}
	return l
}
