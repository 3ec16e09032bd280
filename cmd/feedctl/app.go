package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"Tally/internal/backend"
	"Tally/internal/config"
	"Tally/internal/core/feed"
	"Tally/internal/core/trending"
	"Tally/internal/logging"
)

// app bundles what every subcommand needs
type app struct {
	service *feed.Service
	client  *backend.RESTClient
	logger  *slog.Logger
	out     io.Writer
}

func newApp(c *cli.Command) (*app, error) {
	cfg, err := config.Load(".env")
	if err != nil {
		return nil, err
	}

	if v := c.String(apiURLFlag.Name); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := c.String(tokenFlag.Name); v != "" {
		cfg.AccessToken = v
	}
	if v := c.String(trendingModeFlag.Name); v != "" {
		mode, err := trending.ParseMode(strings.ToLower(v))
		if err != nil {
			return nil, err
		}
		cfg.TrendingMode = mode
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String(logLevelFlag.Name))); err != nil {
		return nil, err
	}
	logger := logging.Init(level)

	tokens := backend.NewJWTTokenProvider(backend.StaticTokenProvider(cfg.AccessToken), time.Now)
	client := backend.NewRESTClient(backend.ClientConfig{
		BaseURL:           cfg.APIURL,
		RequestTimeout:    cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
	}, tokens, logger)

	service := feed.NewService(client, feed.Config{
		Trending: trending.Config{
			Mode:       cfg.TrendingMode,
			WindowDays: cfg.TrendingWindowDays,
			Limit:      cfg.TrendingLimit,
		},
		PerPage:         cfg.PerPage,
		MutationTimeout: cfg.MutationTimeout,
		SearchCacheSize: cfg.SearchCacheSize,
		SearchCacheTTL:  cfg.SearchCacheTTL,
	}, logger)

	return &app{
		service: service,
		client:  client,
		logger:  logger,
		out:     c.Root().Writer,
	}, nil
}

// withApp builds the app for an action and releases it afterwards
func withApp(action func(ctx context.Context, c *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		a, err := newApp(c)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.client.Close(); err != nil {
				a.logger.Warn("failed to close client", "error", err)
			}
		}()

		err = action(ctx, c, a)
		a.printNotices()
		return err
	}
}

// printNotices drains the notices the service queued during the command
func (a *app) printNotices() {
	for {
		select {
		case n := <-a.service.Notices():
			fmt.Fprintf(a.out, "! %s (%s): %s\n", n.Op, n.Kind, n.Message)
		default:
			return
		}
	}
}
