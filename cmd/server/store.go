package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"Tally/internal/core/posts"
	"Tally/internal/db/memory"
	"Tally/internal/db/postgres"
	"Tally/internal/db/seed"
)

// store is what the server needs from a repository
type store interface {
	posts.Repository
	seed.Store
}

// openStore connects to PostgreSQL when databaseURL is set and keeps posts
// in memory otherwise. empty reports whether demo data should be seeded.
func openStore(ctx context.Context, databaseURL string, logger *slog.Logger) (repo store, empty bool, closeFn func(), err error) {
	if databaseURL == "" {
		logger.Info("using in-memory store")
		return memory.NewPostRepository(nil), true, func() {}, nil
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, false, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	defer func() {
		if err != nil {
			closeDB()
		}
	}()

	if err = db.PingContext(ctx); err != nil {
		return nil, false, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("connected to database")

	if err = postgres.Migrate(ctx, db); err != nil {
		return nil, false, nil, err
	}
	logger.Info("migrations completed successfully")

	pg := postgres.NewPostRepository(db, nil)
	n, err := pg.CountPosts(ctx)
	if err != nil {
		return nil, false, nil, err
	}
	return pg, n == 0, closeDB, nil
}
