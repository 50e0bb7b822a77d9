// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// ComingSoonCategoryName is the system category backing the coming_soon
// filler. Seeded at startup via EnsureSystemCategory.
const ComingSoonCategoryName = "Coming Soon Lists"

// Arbiter turns the enabled schedule set into one Program per tick.
//
// Random-bearing expansions are cached and re-drawn only when the rotation
// interval elapses or the schedule row changes, so repeated ticks with an
// unchanged winner keep emitting the same value instead of churning the
// server preference.
type Arbiter struct {
	store     Store
	evaluator *Evaluator
	expander  *Expander
	rotate    time.Duration

	mu        sync.Mutex
	rotations map[string]*rotationEntry
}

type rotationEntry struct {
	expandedAt time.Time
	updatedAt  time.Time
	paths      []string
}

// NewArbiter creates an arbiter. rotate is the re-draw cadence for
// random-bearing sequences.
func NewArbiter(store Store, evaluator *Evaluator, expander *Expander, rotate time.Duration) *Arbiter {
	return &Arbiter{
		store:     store,
		evaluator: evaluator,
		expander:  expander,
		rotate:    rotate,
		rotations: make(map[string]*rotationEntry),
	}
}

// Decide evaluates all enabled schedules at now and returns the program to
// apply plus the active schedule IDs for status reporting. now must already
// be in the engine's configured location.
func (a *Arbiter) Decide(ctx context.Context, settings *models.Settings, now time.Time) (*Program, []int64, error) {
	schedules, err := a.store.ListEnabledSchedules(ctx)
	if err != nil {
		return nil, nil, E(KindState, "engine.decide", err)
	}

	var active []models.Schedule
	for i := range schedules {
		ok, evalErr := a.evaluator.IsActive(ctx, &schedules[i], now)
		if evalErr != nil {
			logging.Warn().Err(evalErr).Int64("schedule_id", schedules[i].ID).
				Str("schedule", schedules[i].Name).Msg("Schedule evaluation failed; treating as inactive")
			continue
		}
		if ok {
			active = append(active, schedules[i])
		}
	}
	metrics.EngineActiveSchedules.Set(float64(len(active)))

	activeIDs := make([]int64, len(active))
	for i := range active {
		activeIDs[i] = active[i].ID
	}

	// Passive mode only suppresses the empty-set ladder; active schedules
	// still win.
	if len(active) == 0 && settings.PassiveMode {
		return &Program{Kind: ProgramNoop, Reason: "passive mode"}, activeIDs, nil
	}

	// A live genre override window outranks the schedule path entirely.
	if settings.OverrideExpiresAt != nil && now.Before(*settings.OverrideExpiresAt) {
		return &Program{Kind: ProgramNoop, Reason: "genre override window"}, activeIDs, nil
	}

	if len(active) == 0 {
		p, err := a.emptyLadder(ctx, settings, now)
		return p, activeIDs, err
	}

	p, err := a.scheduleProgram(ctx, active, now)
	return p, activeIDs, err
}

// scheduleProgram arbitrates a non-empty active set.
func (a *Arbiter) scheduleProgram(ctx context.Context, active []models.Schedule, now time.Time) (*Program, error) {
	var exclusives []models.Schedule
	for _, s := range active {
		if s.Exclusive {
			exclusives = append(exclusives, s)
		}
	}
	if len(exclusives) > 0 {
		winner := pickWinner(exclusives, false)
		return a.winnerProgram(ctx, winner, now, "exclusive win")
	}

	var blendable []models.Schedule
	for _, s := range active {
		if s.BlendEnabled {
			blendable = append(blendable, s)
		}
	}
	if len(blendable) >= 2 {
		return a.blendProgram(ctx, blendable, now)
	}

	winner := pickWinner(active, true)
	return a.winnerProgram(ctx, winner, now, "priority win")
}

// pickWinner selects by (priority desc, end_date asc with nulls last, then
// start_date asc when byStart, then id asc).
func pickWinner(candidates []models.Schedule, byStart bool) *models.Schedule {
	best := &candidates[0]
	for i := 1; i < len(candidates); i++ {
		if scheduleLess(&candidates[i], best, byStart) {
			best = &candidates[i]
		}
	}
	return best
}

func scheduleLess(x, y *models.Schedule, byStart bool) bool {
	if x.Priority != y.Priority {
		return x.Priority > y.Priority
	}
	xe, ye := endOrdinal(x), endOrdinal(y)
	if !xe.Equal(ye) {
		return xe.Before(ye)
	}
	if byStart && !x.StartDate.Equal(y.StartDate) {
		return x.StartDate.Before(y.StartDate)
	}
	return x.ID < y.ID
}

// endOrdinal treats a missing end date as later than any concrete one, so
// bounded schedules ("ends sooner") outrank open-ended ones.
func endOrdinal(s *models.Schedule) time.Time {
	if s.EndDate == nil {
		return time.Unix(1<<62, 0)
	}
	return *s.EndDate
}

// winnerProgram builds the program for a single winning schedule.
func (a *Arbiter) winnerProgram(ctx context.Context, s *models.Schedule, now time.Time, reason string) (*Program, error) {
	p := &Program{
		Schedule:       s,
		RecordFallback: true,
		Fallback:       s.FallbackCategoryID,
		Reason:         reason,
	}
	if !s.HasSequence() {
		p.Kind = ProgramCategory
		p.CategoryID = s.CategoryID
		return p, nil
	}

	paths, err := a.expandSchedule(ctx, s, now)
	if err != nil {
		return nil, err
	}
	p.Kind = ProgramSequence
	p.Paths = paths
	p.Ordered = true
	return p, nil
}

// expandSchedule expands a schedule's sequence, reusing the previous draw
// for random-bearing programs until the rotation interval elapses or the
// schedule row changes.
func (a *Arbiter) expandSchedule(ctx context.Context, s *models.Schedule, now time.Time) ([]string, error) {
	steps, err := s.Steps()
	if err != nil {
		return nil, E(KindConfig, "engine.expand", err)
	}
	if !hasRandomStep(steps) {
		return a.expander.Expand(ctx, steps)
	}
	return a.rotatingExpand(ctx, "schedule:"+strconv.FormatInt(s.ID, 10), s.UpdatedAt, now, func() ([]string, error) {
		return a.expander.Expand(ctx, steps)
	})
}

// rotatingExpand serves paths from the rotation cache, re-running expand
// when the entry is stale or the source row changed.
func (a *Arbiter) rotatingExpand(_ context.Context, key string, updatedAt, now time.Time, expand func() ([]string, error)) ([]string, error) {
	a.mu.Lock()
	entry := a.rotations[key]
	a.mu.Unlock()

	if entry != nil && entry.updatedAt.Equal(updatedAt) && now.Sub(entry.expandedAt) < a.rotate {
		return entry.paths, nil
	}

	paths, err := expand()
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.rotations[key] = &rotationEntry{expandedAt: now, updatedAt: updatedAt, paths: paths}
	a.mu.Unlock()
	return paths, nil
}

func hasRandomStep(steps []models.SequenceStep) bool {
	for i := range steps {
		if steps[i].Type == models.StepTypeRandom {
			return true
		}
	}
	return false
}

// blendProgram interleaves contributions from every blend-enabled active
// schedule, round-robin in schedule ID order so the result is stable.
func (a *Arbiter) blendProgram(ctx context.Context, blendable []models.Schedule, now time.Time) (*Program, error) {
	sort.Slice(blendable, func(i, j int) bool { return blendable[i].ID < blendable[j].ID })

	key, updatedAt := blendKey(blendable)
	paths, err := a.rotatingExpand(ctx, key, updatedAt, now, func() ([]string, error) {
		contributions := make([][]string, 0, len(blendable))
		for i := range blendable {
			c, err := a.blendContribution(ctx, &blendable[i])
			if err != nil {
				return nil, err
			}
			contributions = append(contributions, c)
		}
		return interleave(contributions), nil
	})
	if err != nil {
		return nil, err
	}

	return &Program{
		Kind:   ProgramBlend,
		Paths:  paths,
		Reason: fmt.Sprintf("blend of %d schedules", len(blendable)),
	}, nil
}

// blendContribution is one schedule's share of a blend: its expanded
// sequence when it has one, otherwise a small sample of its category.
func (a *Arbiter) blendContribution(ctx context.Context, s *models.Schedule) ([]string, error) {
	if s.HasSequence() {
		steps, err := s.Steps()
		if err != nil {
			return nil, E(KindConfig, "engine.blend", err)
		}
		return a.expander.Expand(ctx, steps)
	}
	pool, err := a.store.ListPrerollsByCategory(ctx, s.CategoryID)
	if err != nil {
		return nil, E(KindState, "engine.blend", err)
	}
	return a.expander.Sample(pool, blendSampleSize), nil
}

// blendKey identifies a blend set in the rotation cache. The stamp is the
// latest contributor edit, so editing any schedule forces a re-draw.
func blendKey(blendable []models.Schedule) (string, time.Time) {
	ids := make([]string, len(blendable))
	var latest time.Time
	for i := range blendable {
		ids[i] = strconv.FormatInt(blendable[i].ID, 10)
		if blendable[i].UpdatedAt.After(latest) {
			latest = blendable[i].UpdatedAt
		}
	}
	return "blend:" + strings.Join(ids, ","), latest
}

// interleave merges contributions round-robin, draining longer lists after
// shorter ones run out.
func interleave(contributions [][]string) []string {
	var out []string
	for i := 0; ; i++ {
		emitted := false
		for _, c := range contributions {
			if i < len(c) {
				out = append(out, c[i])
				emitted = true
			}
		}
		if !emitted {
			return out
		}
	}
}

// emptyLadder decides what to do when no schedule is active:
// clear_when_inactive, then the last schedule fallback, then the configured
// filler, then leave the server alone.
func (a *Arbiter) emptyLadder(ctx context.Context, settings *models.Settings, now time.Time) (*Program, error) {
	if settings.ClearWhenInactive {
		return &Program{Kind: ProgramClear, Reason: "clear when inactive"}, nil
	}
	if settings.LastScheduleFallbackID != nil {
		return &Program{
			Kind:       ProgramCategory,
			CategoryID: *settings.LastScheduleFallbackID,
			Reason:     "schedule fallback",
		}, nil
	}
	if settings.FillerEnabled {
		return a.fillerProgram(ctx, settings, now)
	}
	return &Program{Kind: ProgramNoop, Reason: "no active schedules"}, nil
}

// fillerProgram builds the configured filler. Misconfiguration degrades to
// a noop with a log rather than failing the tick.
func (a *Arbiter) fillerProgram(ctx context.Context, settings *models.Settings, now time.Time) (*Program, error) {
	switch settings.FillerType {
	case models.FillerTypeCategory:
		if settings.FillerCategoryID == nil {
			break
		}
		marker := models.FillerActiveCategory(*settings.FillerCategoryID)
		return &Program{
			Kind:         ProgramCategory,
			CategoryID:   *settings.FillerCategoryID,
			FillerMarker: &marker,
			Reason:       "filler category",
		}, nil

	case models.FillerTypeSequence:
		if settings.FillerSequenceID == nil {
			break
		}
		seq, err := a.store.GetSavedSequence(ctx, *settings.FillerSequenceID)
		if err != nil {
			return nil, E(KindState, "engine.filler", err)
		}
		steps, err := seq.DecodedSteps()
		if err != nil {
			return nil, E(KindConfig, "engine.filler", err)
		}
		paths, err := a.rotatingExpand(ctx, "filler-seq:"+strconv.FormatInt(seq.ID, 10), seq.UpdatedAt, now, func() ([]string, error) {
			return a.expander.Expand(ctx, steps)
		})
		if err != nil {
			return nil, err
		}
		marker := models.FillerActiveSequence(seq.ID)
		return &Program{
			Kind:         ProgramSequence,
			Paths:        paths,
			Ordered:      true,
			FillerMarker: &marker,
			Reason:       "filler sequence",
		}, nil

	case models.FillerTypeComingSoon:
		cat, err := a.store.GetCategoryByName(ctx, ComingSoonCategoryName)
		if err != nil {
			return nil, E(KindState, "engine.filler", err)
		}
		marker := models.FillerActiveComingSoon(settings.FillerComingSoonLayout)
		return &Program{
			Kind:         ProgramCategory,
			CategoryID:   cat.ID,
			FillerMarker: &marker,
			Reason:       "filler coming soon",
		}, nil
	}

	logging.Warn().Str("filler_type", settings.FillerType).Msg("Filler enabled but not fully configured")
	return &Program{Kind: ProgramNoop, Reason: "filler misconfigured"}, nil
}

// ResetRotation drops a schedule's cached expansion so the next tick
// re-draws. Called when a schedule is edited through the API.
func (a *Arbiter) ResetRotation(scheduleID int64) {
	a.mu.Lock()
	delete(a.rotations, "schedule:"+strconv.FormatInt(scheduleID, 10))
	a.mu.Unlock()
}
