// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"strings"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/mediaserver"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
	"github.com/nexroll/nexroll/internal/pathmap"
)

// Reconciler detects external edits to the server preference (another tool
// or a human changed it) and writes the expected value back.
type Reconciler struct {
	store    Store
	adapters []mediaserver.Adapter
}

// NewReconciler creates a reconciler over the given adapters.
func NewReconciler(store Store, adapters ...mediaserver.Adapter) *Reconciler {
	return &Reconciler{store: store, adapters: adapters}
}

// Verify compares each configured server's live preroll value against the
// engine's expectation and re-applies on drift. lastKind is the most recent
// program: rotating outputs (sequences, blends) are skipped because their
// live value legitimately differs between draws, and a passive noop means
// the engine has no claim on the preference.
func (r *Reconciler) Verify(ctx context.Context, settings *models.Settings, lastKind ProgramKind) error {
	if settings.ActiveCategoryID == nil {
		return nil
	}
	switch lastKind {
	case ProgramSequence, ProgramBlend:
		return nil
	case ProgramNoop:
		if settings.PassiveMode {
			return nil
		}
	}

	expected, err := r.expectedValue(ctx, settings)
	if err != nil {
		return err
	}

	for _, ad := range r.adapters {
		if ad == nil || !ad.Configured() {
			continue
		}
		live, err := ad.GetPreroll(ctx)
		if err != nil {
			return classifyServerError("engine.reconcile", err)
		}
		if strings.TrimSpace(live) == expected {
			continue
		}

		metrics.ReconcileDrift.Inc()
		logging.Warn().Str("server", ad.Name()).
			Str("live", strings.TrimSpace(live)).Str("expected", expected).
			Msg("Preroll drift detected; re-applying")
		if err := ad.SetPreroll(ctx, expected); err != nil {
			return classifyServerError("engine.reconcile", err)
		}
	}
	return nil
}

// expectedValue is the exact value of the last successful apply when
// recorded, otherwise the active category rebuilt in shuffle form.
func (r *Reconciler) expectedValue(ctx context.Context, settings *models.Settings) (string, error) {
	if settings.LastAppliedValue != nil {
		return *settings.LastAppliedValue, nil
	}

	prerolls, err := r.store.ListPrerollsByCategory(ctx, *settings.ActiveCategoryID)
	if err != nil {
		return "", E(KindState, "engine.reconcile", err)
	}
	paths := make([]string, len(prerolls))
	for i := range prerolls {
		paths[i] = prerolls[i].Path
	}
	mappings, err := settings.Mappings()
	if err != nil {
		return "", E(KindConfig, "engine.reconcile", err)
	}
	return strings.Join(pathmap.New(mappings).TranslateAll(paths), ";"), nil
}
