// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package api is the management HTTP surface: chi router, JSON envelope,
// and the handlers for categories, prerolls, schedules, genre maps,
// holiday presets, saved sequences, settings, scheduler control, and the
// Plex webhook receiver.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nexroll/nexroll/internal/auth"
	"github.com/nexroll/nexroll/internal/database"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/mediaserver"
	"github.com/nexroll/nexroll/internal/models"
	"github.com/nexroll/nexroll/internal/secrets"
)

// Engine is the scheduler control surface the handlers drive, satisfied by
// *engine.Engine.
type Engine interface {
	Status() models.SchedulerStatus
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	RunNow(ctx context.Context) error
	ResetRotation(scheduleID int64)
	ApplyCategory(ctx context.Context, categoryID int64) error
}

// GenreService is the genre intercept surface, satisfied by *genres.Mapper.
type GenreService interface {
	ApplyDirect(ctx context.Context, label string) (*models.GenreMap, error)
	ApplyByRatingKey(ctx context.Context, ratingKey string)
	Recent() []models.GenreApplication
}

// Prober runs the Plex write-path probe, satisfied by *mediaserver.Plex.
type Prober interface {
	Probe(ctx context.Context) *models.ProbeResult
}

// Handler carries the dependencies shared by all endpoint handlers.
type Handler struct {
	store    *database.DB
	engine   Engine
	genres   GenreService
	secrets  *secrets.Store
	auth     *auth.Manager
	adapters []mediaserver.Adapter
	prober   Prober

	webhookSecret string
	version       string
	started       time.Time
	seclog        *logging.SecurityLogger
}

// HandlerConfig bundles the handler dependencies.
type HandlerConfig struct {
	Store    *database.DB
	Engine   Engine
	Genres   GenreService
	Secrets  *secrets.Store
	Auth     *auth.Manager
	Adapters []mediaserver.Adapter

	// Prober is optional; nil disables /plex/probe content.
	Prober Prober

	// WebhookSecret enables HMAC verification of webhook bodies when set.
	WebhookSecret string

	Version string
}

// NewHandler creates the handler set.
func NewHandler(cfg *HandlerConfig) *Handler {
	return &Handler{
		store:         cfg.Store,
		engine:        cfg.Engine,
		genres:        cfg.Genres,
		secrets:       cfg.Secrets,
		auth:          cfg.Auth,
		adapters:      cfg.Adapters,
		prober:        cfg.Prober,
		webhookSecret: cfg.WebhookSecret,
		version:       cfg.Version,
		started:       time.Now(),
		seclog:        logging.NewSecurityLogger(),
	}
}

// idParam parses the {id} URL parameter. On failure it writes the error
// response and returns false.
func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid id", nil)
		return 0, false
	}
	return id, true
}
