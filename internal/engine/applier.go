// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/mediaserver"
	"github.com/nexroll/nexroll/internal/models"
	"github.com/nexroll/nexroll/internal/pathmap"
)

// Applier turns a Program into a media server write plus bookkeeping. It
// also satisfies the genre flow's Applier interface via ApplyCategory.
type Applier struct {
	store    Store
	adapters []mediaserver.Adapter
}

// NewApplier creates an applier over the given adapters. Unconfigured
// adapters are skipped per call, so both may always be passed.
func NewApplier(store Store, adapters ...mediaserver.Adapter) *Applier {
	return &Applier{store: store, adapters: adapters}
}

// ApplyProgram executes one program. It reports whether a server write
// happened: re-applying an identical value is skipped, which keeps repeated
// ticks with an unchanged winner from touching the server.
//
// Bookkeeping failures after a successful write are logged, not rolled
// back; the reconciler works from the server's actual value, so stale local
// state self-corrects.
func (ap *Applier) ApplyProgram(ctx context.Context, settings *models.Settings, p *Program) (bool, error) {
	switch p.Kind {
	case ProgramNoop:
		return false, nil
	case ProgramClear:
		return ap.clear(ctx, settings)
	}

	paths, ordered, active, err := ap.resolvePaths(ctx, p)
	if err != nil {
		return false, err
	}
	if len(paths) == 0 {
		return false, Ef(KindState, "engine.apply", "%s program produced no paths", p.Kind)
	}
	for _, path := range paths {
		if strings.ContainsAny(path, ";,") {
			return false, Ef(KindState, "engine.apply",
				"path %q contains a wire separator; rename the file", path)
		}
	}

	mappings, err := settings.Mappings()
	if err != nil {
		return false, E(KindConfig, "engine.apply", err)
	}
	wire := pathmap.New(mappings).TranslateAll(paths)

	adapters := ap.configured()
	if len(adapters) == 0 {
		return false, Ef(KindConfig, "engine.apply", "no media server configured")
	}

	for _, ad := range adapters {
		info, infoErr := ad.GetServerInfo(ctx)
		if infoErr != nil {
			// Unknown platform: apply anyway rather than wedging on a
			// transient info failure.
			logging.Warn().Err(infoErr).Str("server", ad.Name()).
				Msg("Could not fetch server info; skipping platform validation")
			continue
		}
		if verr := pathmap.ValidatePlatform(wire, info.Platform); verr != nil {
			return false, E(KindState, "engine.apply", verr)
		}
	}

	sep := ";"
	if ordered {
		sep = ","
	}
	value := strings.Join(wire, sep)

	if settings.LastAppliedValue != nil && *settings.LastAppliedValue == value {
		return false, nil
	}

	for _, ad := range adapters {
		if err := ad.SetPreroll(ctx, value); err != nil {
			return false, classifyServerError("engine.apply", err)
		}
		logging.Info().Str("server", ad.Name()).Str("reason", p.Reason).
			Int("paths", len(paths)).Msg("Applied preroll value")
	}

	ap.bookkeep(ctx, p, active, value)
	return true, nil
}

// ApplyCategory applies one category immediately, the entry point the genre
// flow and the manual apply endpoint use.
func (ap *Applier) ApplyCategory(ctx context.Context, categoryID int64) error {
	settings, err := ap.store.GetSettings(ctx)
	if err != nil {
		return E(KindState, "engine.apply", err)
	}
	_, err = ap.ApplyProgram(ctx, settings, &Program{
		Kind:       ProgramCategory,
		CategoryID: categoryID,
		Reason:     "direct category apply",
	})
	return err
}

// resolvePaths produces the local path list, ordering, and the category to
// record as active for a non-clear program.
func (ap *Applier) resolvePaths(ctx context.Context, p *Program) ([]string, bool, *int64, error) {
	switch p.Kind {
	case ProgramCategory:
		cat, err := ap.store.GetCategory(ctx, p.CategoryID)
		if err != nil {
			return nil, false, nil, E(KindState, "engine.apply", err)
		}
		prerolls, err := ap.store.ListPrerollsByCategory(ctx, cat.ID)
		if err != nil {
			return nil, false, nil, E(KindState, "engine.apply", err)
		}
		if len(prerolls) == 0 {
			return nil, false, nil, Ef(KindState, "engine.apply", "category %q has no prerolls", cat.Name)
		}
		paths := make([]string, len(prerolls))
		for i := range prerolls {
			paths[i] = prerolls[i].Path
		}
		return paths, cat.PlexMode == models.PlexModePlaylist, &cat.ID, nil

	case ProgramSequence:
		// A schedule-owned sequence still surfaces its schedule's category
		// as the active one for the UI; filler sequences have none.
		var active *int64
		if p.Schedule != nil {
			id := p.Schedule.CategoryID
			active = &id
		}
		return p.Paths, p.Ordered, active, nil

	case ProgramBlend:
		return p.Paths, false, nil, nil

	default:
		return nil, false, nil, Ef(KindState, "engine.apply", "unexpected program kind %q", p.Kind)
	}
}

// clear empties the server preference. Skipped when local state already
// says there is nothing applied.
func (ap *Applier) clear(ctx context.Context, settings *models.Settings) (bool, error) {
	if settings.LastAppliedValue == nil && settings.ActiveCategoryID == nil {
		return false, nil
	}

	adapters := ap.configured()
	if len(adapters) == 0 {
		return false, Ef(KindConfig, "engine.apply", "no media server configured")
	}
	for _, ad := range adapters {
		if err := ad.SetPreroll(ctx, ""); err != nil {
			return false, classifyServerError("engine.clear", err)
		}
		logging.Info().Str("server", ad.Name()).Msg("Cleared preroll value")
	}

	ap.logBookkeepErr(ap.store.SetCategoryApplied(ctx, 0))
	ap.logBookkeepErr(ap.store.SetActiveCategory(ctx, nil))
	ap.logBookkeepErr(ap.store.SetLastAppliedValue(ctx, nil))
	ap.logBookkeepErr(ap.store.SetFillerActive(ctx, nil))
	return true, nil
}

// bookkeep records the outcome of a successful write.
func (ap *Applier) bookkeep(ctx context.Context, p *Program, active *int64, value string) {
	flip := int64(0)
	if active != nil {
		flip = *active
	}
	ap.logBookkeepErr(ap.store.SetCategoryApplied(ctx, flip))
	ap.logBookkeepErr(ap.store.SetActiveCategory(ctx, active))
	ap.logBookkeepErr(ap.store.SetLastAppliedValue(ctx, &value))
	ap.logBookkeepErr(ap.store.SetFillerActive(ctx, p.FillerMarker))
	if p.RecordFallback {
		ap.logBookkeepErr(ap.store.SetLastScheduleFallback(ctx, p.Fallback))
	}
}

func (ap *Applier) logBookkeepErr(err error) {
	if err != nil {
		logging.Error().Err(err).Msg("Apply bookkeeping write failed")
	}
}

// configured filters the adapter list down to the ones with a URL and
// credential present.
func (ap *Applier) configured() []mediaserver.Adapter {
	out := make([]mediaserver.Adapter, 0, len(ap.adapters))
	for _, ad := range ap.adapters {
		if ad != nil && ad.Configured() {
			out = append(out, ad)
		}
	}
	return out
}

// classifyServerError maps adapter failures onto engine error kinds.
func classifyServerError(op string, err error) error {
	var httpErr *mediaserver.HTTPError
	switch {
	case errors.Is(err, mediaserver.ErrNotConfigured):
		return E(KindConfig, op, err)
	case errors.Is(err, mediaserver.ErrValueMismatch):
		return E(KindProtocol, op, err)
	case errors.As(err, &httpErr):
		if httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden {
			return E(KindAuth, op, err)
		}
		return E(KindProtocol, op, err)
	default:
		return E(KindTransport, op, err)
	}
}
