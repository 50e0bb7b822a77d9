// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package genres

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// recentLimit bounds the rolling application log surfaced to the UI.
const recentLimit = 10

// ErrNoMapping is returned by the direct apply entry point when no candidate
// key matched a stored mapping.
var ErrNoMapping = errors.New("no genre mapping matched")

// Store is the persistence surface the mapper needs.
type Store interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	GetGenreMapByNorm(ctx context.Context, genreNorm string) (*models.GenreMap, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	SetOverrideExpiresAt(ctx context.Context, t *time.Time) error
}

// SessionSource provides playback sessions and metadata, satisfied by the
// Plex adapter.
type SessionSource interface {
	ActiveSessions(ctx context.Context) ([]models.PlaybackSession, error)
	GetMetadata(ctx context.Context, ratingKey string) (*models.MediaMetadata, error)
}

// Applier pushes a category to the media servers, satisfied by the engine's
// apply path.
type Applier interface {
	ApplyCategory(ctx context.Context, categoryID int64) error
}

// ScheduleCheck reports whether any schedule is active right now, for the
// schedules_override gate.
type ScheduleCheck func(ctx context.Context) (bool, error)

// Mapper resolves playback genres to categories and applies them with an
// override window so the schedule path does not immediately stomp the
// result.
type Mapper struct {
	store    Store
	sessions SessionSource
	applier  Applier
	active   ScheduleCheck

	// limiter absorbs notification bursts: one apply attempt per second.
	limiter *rate.Limiter

	// now is replaceable in tests.
	now func() time.Time

	mu          sync.Mutex
	recent      []models.GenreApplication
	lastApplied map[string]time.Time // ratingKey -> applied at
}

// NewMapper wires the mapper. active may be nil when no schedule gate is
// wanted (tests).
func NewMapper(store Store, sessions SessionSource, applier Applier, active ScheduleCheck) *Mapper {
	return &Mapper{
		store:       store,
		sessions:    sessions,
		applier:     applier,
		active:      active,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		now:         time.Now,
		lastApplied: make(map[string]time.Time),
	}
}

// MaybeApplyFromPlayback runs the session-driven flow: pick the most
// relevant session, extract genres (with parent metadata fallback), resolve
// and apply. Called once per engine tick; every skip reason is benign.
func (m *Mapper) MaybeApplyFromPlayback(ctx context.Context) {
	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		metrics.GenreApplies.WithLabelValues("error").Inc()
		logging.Error().Err(err).Msg("Genre flow could not read settings")
		return
	}
	if !settings.GenreAutoApply {
		return
	}
	if m.sessions == nil {
		return
	}

	sessions, err := m.sessions.ActiveSessions(ctx)
	if err != nil {
		metrics.GenreApplies.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Msg("Genre flow could not list sessions")
		return
	}
	session := pickSession(sessions)
	if session == nil {
		return
	}

	labels := session.Genres
	if len(labels) == 0 {
		labels = m.fallbackGenres(ctx, session.RatingKey, session.ParentRatingKey, session.GrandparentRatingKey)
	}

	m.applyGenres(ctx, settings, labels, session.RatingKey)
}

// ApplyByRatingKey is the webhook and realtime entry point: fetch metadata
// for the key, fall back to the best current session while the metadata
// record populates, then run the shared resolution flow.
func (m *Mapper) ApplyByRatingKey(ctx context.Context, ratingKey string) {
	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		metrics.GenreApplies.WithLabelValues("error").Inc()
		logging.Error().Err(err).Msg("Genre intercept could not read settings")
		return
	}
	if !settings.GenreAutoApply {
		return
	}

	var labels []string
	var parent, grandparent string
	if m.sessions != nil {
		if md, err := m.sessions.GetMetadata(ctx, ratingKey); err == nil {
			labels = md.Genres
			parent, grandparent = md.ParentRatingKey, md.GrandparentRatingKey
		} else {
			logging.Debug().Str("rating_key", ratingKey).Err(err).
				Msg("Metadata not yet available, trying current sessions")
			if sessions, sErr := m.sessions.ActiveSessions(ctx); sErr == nil {
				if s := pickSession(sessions); s != nil && s.RatingKey == ratingKey {
					labels = s.Genres
					parent, grandparent = s.ParentRatingKey, s.GrandparentRatingKey
				}
			}
		}
	}
	if len(labels) == 0 {
		labels = m.fallbackGenres(ctx, ratingKey, parent, grandparent)
	}

	m.applyGenres(ctx, settings, labels, ratingKey)
}

// ApplyDirect resolves a raw genre label and applies it immediately, for
// the management API. The auto-apply toggle does not gate explicit
// requests, but the schedules_override rule still holds.
func (m *Mapper) ApplyDirect(ctx context.Context, label string) (*models.GenreMap, error) {
	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	mapping := m.resolve(ctx, []string{label})
	if mapping == nil {
		metrics.GenreApplies.WithLabelValues("no_match").Inc()
		return nil, ErrNoMapping
	}

	if blocked, err := m.schedulesBlock(ctx, settings); err != nil {
		return nil, err
	} else if blocked {
		metrics.GenreApplies.WithLabelValues("skipped").Inc()
		return mapping, errors.New("an active schedule takes precedence (genre_priority_mode=schedules_override)")
	}

	if err := m.apply(ctx, settings, mapping, ""); err != nil {
		metrics.GenreApplies.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.GenreApplies.WithLabelValues("applied").Inc()
	return mapping, nil
}

// Recent returns the rolling application log, newest first.
func (m *Mapper) Recent() []models.GenreApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GenreApplication, len(m.recent))
	copy(out, m.recent)
	return out
}

// applyGenres is the shared tail of both automatic entry points: dedupe,
// resolve, gate, apply, record.
func (m *Mapper) applyGenres(ctx context.Context, settings *models.Settings, labels []string, ratingKey string) {
	labels = DedupeFold(labels)
	if len(labels) == 0 {
		return
	}

	mapping := m.resolve(ctx, labels)
	if mapping == nil {
		metrics.GenreApplies.WithLabelValues("no_match").Inc()
		logging.Debug().Strs("genres", labels).Msg("No genre mapping matched")
		return
	}

	ttl := time.Duration(settings.GenreOverrideTTLSeconds) * time.Second
	if m.recentlyApplied(ratingKey, ttl) {
		metrics.GenreApplies.WithLabelValues("skipped").Inc()
		return
	}

	if blocked, err := m.schedulesBlock(ctx, settings); err != nil {
		metrics.GenreApplies.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Msg("Genre flow could not evaluate schedules")
		return
	} else if blocked {
		metrics.GenreApplies.WithLabelValues("skipped").Inc()
		logging.Debug().Str("genre", mapping.Genre).Msg("Schedules override an active genre match")
		return
	}

	if !m.limiter.Allow() {
		metrics.GenreApplies.WithLabelValues("skipped").Inc()
		return
	}

	if err := m.apply(ctx, settings, mapping, ratingKey); err != nil {
		metrics.GenreApplies.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("genre", mapping.Genre).Msg("Genre apply failed")
		return
	}
	metrics.GenreApplies.WithLabelValues("applied").Inc()
}

// resolve walks the candidate keys of each label in order and returns the
// first stored mapping.
func (m *Mapper) resolve(ctx context.Context, labels []string) *models.GenreMap {
	for _, label := range labels {
		for _, key := range Candidates(label) {
			mapping, err := m.store.GetGenreMapByNorm(ctx, key)
			if err == nil {
				return mapping
			}
		}
	}
	return nil
}

// apply pushes the mapped category and opens the override window.
func (m *Mapper) apply(ctx context.Context, settings *models.Settings, mapping *models.GenreMap, ratingKey string) error {
	category, err := m.store.GetCategory(ctx, mapping.CategoryID)
	if err != nil {
		return err
	}

	if err := m.applier.ApplyCategory(ctx, category.ID); err != nil {
		return err
	}

	now := m.now()
	expires := now.UTC().Add(time.Duration(settings.GenreOverrideTTLSeconds) * time.Second)
	if err := m.store.SetOverrideExpiresAt(ctx, &expires); err != nil {
		// The apply already happened; the window just will not protect it.
		logging.Warn().Err(err).Msg("Could not record genre override window")
	}

	m.record(models.GenreApplication{
		Genre:      mapping.Genre,
		CategoryID: category.ID,
		Category:   category.Name,
		RatingKey:  ratingKey,
		AppliedAt:  now,
	}, ratingKey)

	logging.Info().Str("genre", mapping.Genre).Str("category", category.Name).
		Str("rating_key", ratingKey).Time("override_until", expires).
		Msg("Applied genre-mapped category")
	return nil
}

// schedulesBlock implements the schedules_override gate.
func (m *Mapper) schedulesBlock(ctx context.Context, settings *models.Settings) (bool, error) {
	if settings.GenrePriorityMode != models.GenrePriorityScheduleWins {
		return false, nil
	}
	if m.active == nil {
		return false, nil
	}
	return m.active(ctx)
}

// recentlyApplied implements the per-ratingKey TTL dedupe, pruning expired
// entries as it goes.
func (m *Mapper) recentlyApplied(ratingKey string, ttl time.Duration) bool {
	if ratingKey == "" || ttl <= 0 {
		return false
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, at := range m.lastApplied {
		if now.Sub(at) > ttl {
			delete(m.lastApplied, key)
		}
	}
	_, ok := m.lastApplied[ratingKey]
	return ok
}

func (m *Mapper) record(app models.GenreApplication, ratingKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ratingKey != "" {
		m.lastApplied[ratingKey] = app.AppliedAt
	}
	m.recent = append([]models.GenreApplication{app}, m.recent...)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[:recentLimit]
	}
}

// fallbackGenres fetches parent then grandparent metadata and merges their
// genre tags, for sessions whose own record carries none.
func (m *Mapper) fallbackGenres(ctx context.Context, ratingKey, parent, grandparent string) []string {
	if m.sessions == nil {
		return nil
	}

	var merged []string
	if ratingKey != "" {
		if md, err := m.sessions.GetMetadata(ctx, ratingKey); err == nil {
			merged = append(merged, md.Genres...)
			if parent == "" {
				parent = md.ParentRatingKey
			}
			if grandparent == "" {
				grandparent = md.GrandparentRatingKey
			}
		}
	}
	for _, key := range []string{parent, grandparent} {
		if key == "" || len(merged) > 0 {
			continue
		}
		if md, err := m.sessions.GetMetadata(ctx, key); err == nil {
			merged = append(merged, md.Genres...)
		}
	}
	return merged
}

// pickSession selects the most relevant session: playing first, then the
// most-progressed paused, then the smallest view offset.
func pickSession(sessions []models.PlaybackSession) *models.PlaybackSession {
	if len(sessions) == 0 {
		return nil
	}

	for i := range sessions {
		if sessions[i].IsPlaying() {
			return &sessions[i]
		}
	}

	paused := make([]*models.PlaybackSession, 0, len(sessions))
	for i := range sessions {
		if sessions[i].State == "paused" {
			paused = append(paused, &sessions[i])
		}
	}
	if len(paused) > 0 {
		sort.SliceStable(paused, func(a, b int) bool {
			return paused[a].Progress() > paused[b].Progress()
		})
		return paused[0]
	}

	best := &sessions[0]
	for i := range sessions[1:] {
		if sessions[i+1].ViewOffset < best.ViewOffset {
			best = &sessions[i+1]
		}
	}
	return best
}
