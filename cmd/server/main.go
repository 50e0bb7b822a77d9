// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package main is the NeXroll server entry point.
//
// Startup order:
//
//  1. Configuration via koanf (env > config.yaml > defaults)
//  2. Structured logging (zerolog)
//  3. DuckDB store, with schema migration and system category seeding
//  4. Encrypted credential store (badger), mirroring env tokens
//  5. Media server adapters behind circuit breakers
//  6. Preroll engine, genre mapper, library watcher, alert listener
//  7. Auth manager and chi HTTP surface
//  8. Suture supervisor tree, then block until SIGINT/SIGTERM
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nexroll/nexroll/internal/api"
	"github.com/nexroll/nexroll/internal/auth"
	"github.com/nexroll/nexroll/internal/config"
	"github.com/nexroll/nexroll/internal/database"
	"github.com/nexroll/nexroll/internal/engine"
	"github.com/nexroll/nexroll/internal/genres"
	"github.com/nexroll/nexroll/internal/holidays"
	"github.com/nexroll/nexroll/internal/library"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/mediaserver"
	"github.com/nexroll/nexroll/internal/secrets"
	"github.com/nexroll/nexroll/internal/supervisor"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("version", version).Msg("NeXroll starting")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := db.EnsureSystemCategory(ctx, engine.ComingSoonCategoryName,
		"Managed pool for coming-soon filler"); err != nil {
		return fmt.Errorf("seed system category: %w", err)
	}

	secretStore, err := secrets.Open(cfg.Secrets.Path, cfg.Secrets.MasterKey)
	if err != nil {
		return fmt.Errorf("open secret store: %w", err)
	}
	defer func() { _ = secretStore.Close() }()

	plexToken := resolveCredential(secretStore, secrets.KeyPlexToken, cfg.Plex.Token)
	jellyfinKey := resolveCredential(secretStore, secrets.KeyJellyfinAPIKey, cfg.Jellyfin.APIKey)

	// Adapters for every configured server, each behind a breaker.
	var adapters []mediaserver.Adapter
	var plex *mediaserver.Plex
	if cfg.Plex.URL != "" {
		plex = mediaserver.NewPlex(cfg.Plex.URL, plexToken, cfg.Engine.HTTPTimeout,
			config.InferTLSVerify(cfg.Plex.URL, cfg.Plex.TLSVerify))
		adapters = append(adapters, mediaserver.WithBreaker(plex))
	}
	if cfg.Jellyfin.URL != "" {
		jellyfin := mediaserver.NewJellyfin(cfg.Jellyfin.URL, jellyfinKey, cfg.Engine.HTTPTimeout,
			config.InferTLSVerify(cfg.Jellyfin.URL, cfg.Jellyfin.TLSVerify))
		adapters = append(adapters, mediaserver.WithBreaker(jellyfin))
	}
	if len(adapters) == 0 {
		logging.Warn().Msg("No media server configured; the engine will decide but apply nowhere")
	}

	holidayClient := holidays.New(cfg.Engine.HolidayAPIURL, cfg.Engine.HTTPTimeout)
	eng := engine.New(&cfg.Engine, db, holidayClient, adapters...)

	var mapper *genres.Mapper
	if plex != nil {
		mapper = genres.NewMapper(db, plex, eng.Applier(), eng.AnyScheduleActive)
		eng.SetGenreRunner(mapper)
	}

	authMgr, err := auth.NewManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}

	var prober api.Prober
	if plex != nil {
		prober = plex
	}
	var genreSvc api.GenreService
	if mapper != nil {
		genreSvc = mapper
	}
	handler := api.NewHandler(&api.HandlerConfig{
		Store:         db,
		Engine:        eng,
		Genres:        genreSvc,
		Secrets:       secretStore,
		Auth:          authMgr,
		Adapters:      adapters,
		Prober:        prober,
		WebhookSecret: cfg.Plex.WebhookSecret,
		Version:       version,
	})
	router := api.NewRouter(handler, api.NewMiddleware(
		cfg.Security.CORSOrigins, cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(eng)
	tree.AddAPIService(supervisor.NewHTTPService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	if cfg.Library.Enabled {
		tree.AddMediaService(library.New(&cfg.Library, db))
	}
	if cfg.Plex.AlertListener && plex != nil && mapper != nil {
		listener := mediaserver.NewAlertListener(cfg.Plex.URL, plexToken,
			config.InferTLSVerify(cfg.Plex.URL, cfg.Plex.TLSVerify),
			func(ratingKey string) { mapper.ApplyByRatingKey(context.Background(), ratingKey) })
		tree.AddMediaService(listener)
	}

	logging.Info().
		Str("addr", server.Addr).
		Str("auth_mode", authMgr.Mode()).
		Bool("plex", plex != nil).
		Bool("jellyfin", cfg.Jellyfin.URL != "").
		Msg("NeXroll ready")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("NeXroll stopped")
	return nil
}

// resolveCredential mirrors an environment-supplied credential into the
// encrypted store and returns the effective value. While the env value is
// set it wins; otherwise the stored one is used, so rotations through the
// API survive restarts.
func resolveCredential(store *secrets.Store, key, envValue string) string {
	if envValue != "" {
		if err := store.Set(key, envValue); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("Could not mirror credential into secret store")
		}
		return envValue
	}
	stored, err := store.Get(key)
	if err != nil {
		if !errors.Is(err, secrets.ErrNotFound) {
			logging.Warn().Err(err).Str("key", key).Msg("Could not read stored credential")
		}
		return ""
	}
	return stored
}
