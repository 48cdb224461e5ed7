// Package app assembles the store, sources and services shared by the
// server and the command-line tool.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/iconidentify/makanmap/internal/config"
	"github.com/iconidentify/makanmap/internal/maplink"
	"github.com/iconidentify/makanmap/internal/metrics"
	"github.com/iconidentify/makanmap/internal/repository"
	"github.com/iconidentify/makanmap/internal/service"
	"github.com/iconidentify/makanmap/internal/videosource"
)

// App holds the wired dependencies of one process.
type App struct {
	Config      *config.Config
	Store       *repository.SQLiteStore
	Metrics     *metrics.Metrics
	Sync        *service.SyncService
	Channels    *service.ChannelService
	Restaurants *service.RestaurantService
	Logger      *slog.Logger
}

// New opens the database and builds the services. The caller must Close
// the returned App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := repository.OpenSQLite(ctx, cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ytdlp := videosource.NewYtdlpSource(cfg.YouTube, logger)
	if err := ytdlp.CheckInstalled(ctx); err != nil {
		logger.Warn("yt-dlp unavailable, channels will use the fallback source", "error", err)
	}

	m := metrics.New()
	deps := service.SyncDeps{
		Channels:    store.Channels(),
		Restaurants: store.Restaurants(),
		Runs:        store.SyncRuns(),
		Primary:     ytdlp,
		Extractor:   maplink.NewExtractor(maplink.NewResolver(cfg.Resolver, logger), logger),
		Metrics:     m,
		LockPath:    cfg.Storage.LockPath,
	}

	if cfg.YouTube.FallbackEnabled() {
		api, err := videosource.NewDataAPISource(ctx, cfg.YouTube.APIKey, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create data api source: %w", err)
		}
		deps.Fallback = api
		deps.Avatars = api
	} else {
		logger.Warn("YOUTUBE_API_KEY not set, fallback source and avatars disabled")
	}

	return &App{
		Config:      cfg,
		Store:       store,
		Metrics:     m,
		Sync:        service.NewSyncService(deps, cfg.Sync, logger),
		Channels:    service.NewChannelService(store.Channels(), store.Suggestions(), logger),
		Restaurants: service.NewRestaurantService(store.Restaurants(), logger),
		Logger:      logger,
	}, nil
}

// Close stops background sync work and closes the database.
func (a *App) Close() error {
	a.Sync.Close()
	return a.Store.Close()
}

// NewLogger builds a slog logger from LogConfig. format overrides
// cfg.Format when non-empty.
func NewLogger(cfg config.LogConfig, w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if format == "" {
		format = cfg.Format
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
