// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"sync"
	"time"

	"github.com/nexroll/nexroll/internal/config"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/mediaserver"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// GenreRunner is the genre intercept step, satisfied by *genres.Mapper.
type GenreRunner interface {
	MaybeApplyFromPlayback(ctx context.Context)
}

// Engine is the control loop. It runs as a suture service: every tick it
// runs the genre intercept, re-reads settings, arbitrates the schedule set,
// applies the resulting program, and periodically reconciles drift.
//
// Only one tick runs at a time; a tick that overlaps the previous one is
// dropped, not queued.
type Engine struct {
	cfg        *config.EngineConfig
	store      Store
	arbiter    *Arbiter
	applier    *Applier
	reconciler *Reconciler
	expander   *Expander
	evaluator  *Evaluator
	genres     GenreRunner

	now    func() time.Time
	dedupe *logging.Deduper
	runNow chan chan error

	locMu   sync.Mutex
	locName string
	loc     *time.Location

	tickMu sync.Mutex

	stateMu         sync.Mutex
	running         bool
	lastTickAt      *time.Time
	lastTickMS      int64
	nextTickAt      *time.Time
	ticksTotal      uint64
	lastErr         string
	lastErrAt       *time.Time
	activeIDs       []int64
	lastKind        ProgramKind
	lastVerify      time.Time
	fillerActive    *string
	overrideExpires *time.Time
}

// New wires the full engine over a store, a holiday resolver, and the media
// server adapters. The genre step is attached afterwards via SetGenreRunner
// because the mapper itself depends on the engine's applier.
func New(cfg *config.EngineConfig, store Store, holidays HolidayResolver, adapters ...mediaserver.Adapter) *Engine {
	expander := NewExpander(store)
	evaluator := NewEvaluator(holidays)
	return &Engine{
		cfg:        cfg,
		store:      store,
		expander:   expander,
		evaluator:  evaluator,
		arbiter:    NewArbiter(store, evaluator, expander, cfg.RotateInterval()),
		applier:    NewApplier(store, adapters...),
		reconciler: NewReconciler(store, adapters...),
		now:        time.Now,
		dedupe:     logging.NewDeduper(5 * time.Minute),
		runNow:     make(chan chan error),
	}
}

// SetGenreRunner attaches the genre intercept step.
func (e *Engine) SetGenreRunner(g GenreRunner) { e.genres = g }

// Applier exposes the apply path for the genre mapper and the API's manual
// apply endpoints.
func (e *Engine) Applier() *Applier { return e.applier }

// ApplyCategory applies one category synchronously, the manual apply path.
func (e *Engine) ApplyCategory(ctx context.Context, categoryID int64) error {
	return e.applier.ApplyCategory(ctx, categoryID)
}

// ResetRotation drops a schedule's cached sequence draw, called on edits.
func (e *Engine) ResetRotation(scheduleID int64) { e.arbiter.ResetRotation(scheduleID) }

// String names the service in the supervision tree.
func (e *Engine) String() string { return "preroll-engine" }

// Serve runs the control loop until the context is canceled.
func (e *Engine) Serve(ctx context.Context) error {
	// The operator's start/stop toggle survives restarts.
	if settings, err := e.store.GetSettings(ctx); err != nil {
		logging.Error().Err(err).Msg("Engine could not read settings at startup; scheduler paused")
	} else {
		e.setRunning(settings.SchedulerEnabled)
	}

	interval := e.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", interval).Bool("running", e.Status().Running).
		Msg("Preroll engine started")

	for {
		e.setNextTick(e.now().Add(interval))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if e.Status().Running {
				e.tick(ctx)
			}
		case reply := <-e.runNow:
			reply <- e.tick(ctx)
		}
	}
}

// Start resumes ticking and persists the toggle.
func (e *Engine) Start(ctx context.Context) error {
	e.setRunning(true)
	if err := e.store.SetSchedulerEnabled(ctx, true); err != nil {
		return E(KindState, "engine.start", err)
	}
	return nil
}

// Stop pauses ticking and persists the toggle. The service keeps running so
// RunNow and Status stay available.
func (e *Engine) Stop(ctx context.Context) error {
	e.setRunning(false)
	if err := e.store.SetSchedulerEnabled(ctx, false); err != nil {
		return E(KindState, "engine.stop", err)
	}
	return nil
}

// RunNow executes one tick immediately, even while paused.
func (e *Engine) RunNow(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case e.runNow <- reply:
		select {
		case err := <-reply:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		// No serve loop listening (paused startup or tests); tick inline.
		return e.tick(ctx)
	}
}

// Status reports the loop's introspection surface.
func (e *Engine) Status() models.SchedulerStatus {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	st := models.SchedulerStatus{
		Running:         e.running,
		TickSeconds:     e.cfg.TickSeconds,
		LastTickAt:      e.lastTickAt,
		LastTickMS:      e.lastTickMS,
		NextTickAt:      e.nextTickAt,
		TicksTotal:      e.ticksTotal,
		LastError:       e.lastErr,
		LastErrorAt:     e.lastErrAt,
		ActiveIDs:       append([]int64(nil), e.activeIDs...),
		FillerActive:    e.fillerActive,
		OverrideExpires: e.overrideExpires,
	}
	st.OverrideActive = e.overrideExpires != nil && e.now().Before(*e.overrideExpires)
	return st
}

// AnyScheduleActive reports whether any enabled schedule is active right
// now, the gate the genre flow consults in schedules_override mode.
func (e *Engine) AnyScheduleActive(ctx context.Context) (bool, error) {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return false, err
	}
	schedules, err := e.store.ListEnabledSchedules(ctx)
	if err != nil {
		return false, err
	}
	now := e.now().In(e.location(settings.Timezone))
	for i := range schedules {
		ok, err := e.evaluator.IsActive(ctx, &schedules[i], now)
		if err != nil {
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// tick runs one pass: genre intercept, schedule arbitration and apply, then
// drift reconciliation on its own cadence. Sub-step failures are logged and
// do not skip the later steps.
func (e *Engine) tick(ctx context.Context) error {
	if !e.tickMu.TryLock() {
		return nil
	}
	defer e.tickMu.Unlock()

	start := e.now()
	defer func() {
		elapsed := e.now().Sub(start)
		metrics.EngineTickDuration.Observe(elapsed.Seconds())
		e.stateMu.Lock()
		t := start
		e.lastTickAt = &t
		e.lastTickMS = elapsed.Milliseconds()
		e.ticksTotal++
		e.stateMu.Unlock()
	}()

	if e.genres != nil {
		e.genres.MaybeApplyFromPlayback(ctx)
	}

	// Settings are read after the genre intercept: a genre application
	// opens an override window in the store, and the schedule step must
	// see it on this tick, not the next one.
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		e.recordTickError(err)
		metrics.EngineTicksTotal.WithLabelValues("error").Inc()
		return err
	}
	now := e.now().In(e.location(settings.Timezone))

	var tickErr error
	program, activeIDs, err := e.arbiter.Decide(ctx, settings, now)
	if err != nil {
		tickErr = err
		e.logDeduped("decide", err, "Arbitration failed")
	} else {
		metrics.EngineDecisions.WithLabelValues(string(program.Kind)).Inc()
		applied, applyErr := e.applier.ApplyProgram(ctx, settings, program)
		if applyErr != nil {
			tickErr = applyErr
			e.logDeduped("apply", applyErr, "Program apply failed")
		} else {
			e.dedupe.Clear("apply")
			if applied && program.Schedule != nil {
				if runErr := e.store.SetScheduleRun(ctx, program.Schedule.ID, now, nil); runErr != nil {
					logging.Error().Err(runErr).Int64("schedule_id", program.Schedule.ID).
						Msg("Could not stamp schedule run")
				}
			}
		}
		e.recordDecision(program, activeIDs, settings)
	}

	if e.shouldVerify(now) {
		if verr := e.reconciler.Verify(ctx, settings, e.lastProgramKind()); verr != nil {
			if tickErr == nil {
				tickErr = verr
			}
			e.logDeduped("reconcile", verr, "Reconcile pass failed")
		} else {
			e.dedupe.Clear("reconcile")
		}
	}

	if tickErr != nil {
		e.recordTickError(tickErr)
		metrics.EngineTicksTotal.WithLabelValues("error").Inc()
		return tickErr
	}
	e.clearTickError()
	metrics.EngineTicksTotal.WithLabelValues("ok").Inc()
	return nil
}

// location resolves the configured timezone, caching the lookup and falling
// back to UTC on a bad name.
func (e *Engine) location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	e.locMu.Lock()
	defer e.locMu.Unlock()
	if e.locName == name && e.loc != nil {
		return e.loc
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if e.dedupe.ShouldLog("timezone", name) {
			logging.Error().Err(err).Str("timezone", name).Msg("Invalid timezone; using UTC")
		}
		loc = time.UTC
	}
	e.locName, e.loc = name, loc
	return loc
}

func (e *Engine) shouldVerify(now time.Time) bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if !e.lastVerify.IsZero() && now.Sub(e.lastVerify) < e.cfg.VerifyInterval() {
		return false
	}
	e.lastVerify = now
	return true
}

func (e *Engine) recordDecision(p *Program, activeIDs []int64, settings *models.Settings) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.lastKind = p.Kind
	e.activeIDs = activeIDs
	if p.Kind == ProgramNoop {
		// A noop leaves whatever was applied standing, marker included.
		e.fillerActive = settings.FillerActive
	} else {
		e.fillerActive = p.FillerMarker
	}
	e.overrideExpires = settings.OverrideExpiresAt
}

func (e *Engine) lastProgramKind() ProgramKind {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastKind
}

func (e *Engine) recordTickError(err error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	t := e.now()
	e.lastErr = err.Error()
	e.lastErrAt = &t
}

func (e *Engine) clearTickError() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.lastErr = ""
	e.lastErrAt = nil
}

func (e *Engine) setRunning(v bool) {
	e.stateMu.Lock()
	e.running = v
	e.stateMu.Unlock()
}

func (e *Engine) setNextTick(t time.Time) {
	e.stateMu.Lock()
	e.nextTickAt = &t
	e.stateMu.Unlock()
}

// logDeduped logs an error at most once per window per step.
func (e *Engine) logDeduped(step string, err error, msg string) {
	if e.dedupe.ShouldLog(step, err.Error()) {
		logging.Error().Err(err).Str("step", step).Msg(msg)
	}
}
