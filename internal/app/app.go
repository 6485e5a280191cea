// Package app wires configuration into the catalog service. It is shared by
// the server and the command-line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/snapshot"
)

// NewFetcher builds the sheet fetcher from cfg.
func NewFetcher(cfg *config.Config) *core.HTTPFetcher {
	f := core.NewHTTPFetcher(cfg.Sheet.SpreadsheetID, cfg.Sheet.GID)
	f.BaseURL = cfg.Sheet.BaseURL
	f.Sheet = cfg.Sheet.Name
	f.MaxBodyBytes = cfg.Sheet.MaxBodyBytes
	f.Client = &http.Client{Timeout: cfg.Sheet.FetchTimeout}
	return f
}

// OpenStore opens the snapshot store named by cfg.Cache.Backend. The returned
// close function releases any connection pool and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config) (snapshot.Store, func(), error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case config.BackendMemory:
		return snapshot.NewMemoryStore(), func() {}, nil

	case config.BackendPostgres:
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := snapshot.NewPGStore(pool, cfg.Cache.Key)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ensure snapshot schema: %w", err)
		}
		return store, pool.Close, nil

	default:
		return snapshot.NewFileStore(cfg.Cache.Path), func() {}, nil
	}
}

// openPool parses, configures and verifies a pgx connection pool.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}

// NewService builds the catalog service for cfg on top of store.
func NewService(cfg *config.Config, store snapshot.Store) *core.Service {
	return core.NewService(NewFetcher(cfg), store, core.Options{
		TTL:          cfg.Cache.TTL,
		FetchTimeout: cfg.Sheet.FetchTimeout,
	})
}
