// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexroll/nexroll/internal/middleware"
)

// Router assembles the chi route tree around a handler set.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router. mw may be nil for tests, which yields
// default limits and no CORS origins.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	if mw == nil {
		mw = NewMiddleware(nil, 0, 0)
	}
	return &Router{handler: handler, middleware: mw}
}

// Setup builds the full route tree.
func (router *Router) Setup() http.Handler {
	h := router.handler
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	// Prometheus scrape endpoint.
	r.Handle("/metrics", promhttp.Handler())

	// Webhook receiver. Plex authenticates with the HMAC signature, not a
	// session, so it sits outside the auth group. Both paths are live; the
	// short one matches what Plex setup guides usually show.
	r.Group(func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Post("/webhooks/plex", h.PlexWebhook)
		r.Post("/plex/webhook", h.PlexWebhook)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.middleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.Liveness)
		r.Get("/ready", h.Readiness)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.middleware.RateLimitLogin())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Post("/login", h.Login)
		r.Get("/mode", h.AuthMode)
	})

	// Management surface. Everything here requires auth when a mode is
	// configured.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(h.auth.Authenticate))

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Get("/{id}", h.GetCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
			r.Post("/{id}/apply", h.ApplyCategory)
		})

		r.Route("/prerolls", func(r chi.Router) {
			r.Get("/", h.ListPrerolls)
			r.Post("/", h.CreatePreroll)
			r.Get("/{id}", h.GetPreroll)
			r.Put("/{id}", h.UpdatePreroll)
			r.Delete("/{id}", h.DeletePreroll)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.ListSchedules)
			r.Post("/", h.CreateSchedule)
			r.Get("/{id}", h.GetSchedule)
			r.Put("/{id}", h.UpdateSchedule)
			r.Delete("/{id}", h.DeleteSchedule)
		})

		r.Route("/genres", func(r chi.Router) {
			r.Get("/", h.ListGenreMaps)
			r.Post("/", h.CreateGenreMap)
			r.Put("/{id}", h.UpdateGenreMap)
			r.Delete("/{id}", h.DeleteGenreMap)
			r.Post("/apply", h.ApplyGenre)
			r.Get("/apply-by-key", h.ApplyGenreByRatingKey)
			r.Get("/recent", h.RecentGenreApplications)
		})

		r.Route("/holiday-presets", func(r chi.Router) {
			r.Get("/", h.ListHolidayPresets)
			r.Post("/", h.CreateHolidayPreset)
			r.Delete("/{id}", h.DeleteHolidayPreset)
			r.Post("/{id}/schedule", h.ScheduleFromHolidayPreset)
		})

		r.Route("/sequences", func(r chi.Router) {
			r.Get("/", h.ListSavedSequences)
			r.Post("/", h.CreateSavedSequence)
			r.Get("/{id}", h.GetSavedSequence)
			r.Put("/{id}", h.UpdateSavedSequence)
			r.Delete("/{id}", h.DeleteSavedSequence)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", h.GetSettings)
			r.Put("/", h.UpdateSettings)
			r.Put("/credentials", h.UpdateCredentials)
		})

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/status", h.SchedulerStatus)
			r.Post("/start", h.StartScheduler)
			r.Post("/stop", h.StopScheduler)
			r.Post("/run-now", h.RunSchedulerNow)
		})

		r.Route("/servers", func(r chi.Router) {
			r.Get("/", h.ListServers)
			r.Post("/{name}/test", h.TestServer)
		})
		r.Get("/plex/probe", h.ProbePlex)
	})

	return r
}
