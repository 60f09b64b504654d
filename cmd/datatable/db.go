package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/datatable/internal/core"
)

// openPool connects to the configured database and verifies the connection.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// newService builds the table service with the configured page limits.
// Concurrent queries are capped at the pool size.
func newService(pool *pgxpool.Pool) *core.Service {
	return core.NewService(pool,
		core.WithPageLimits(cfg.Table.DefaultPageSize, cfg.Table.MaxPageSize),
		core.WithServiceLogger(logger),
		core.WithQueryLimiter(core.NewQueryLimiter(cfg.Database.MaxConns, core.DefaultQueryWait)),
	)
}
