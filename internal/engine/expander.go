// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/models"
)

// blendSampleSize is how many prerolls a blend contribution draws from a
// schedule that has no sequence of its own.
const blendSampleSize = 3

// Expander resolves sequence programs to ordered local path lists.
type Expander struct {
	store Store

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewExpander creates an expander with a time-seeded source. Tests replace
// the source via Seed for deterministic draws.
func NewExpander(store Store) *Expander {
	return &Expander{
		store: store,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- preroll picks need variety, not secrecy
	}
}

// Seed resets the random source, for deterministic tests.
func (ex *Expander) Seed(seed int64) {
	ex.mu.Lock()
	ex.rnd = rand.New(rand.NewSource(seed)) // #nosec G404
	ex.mu.Unlock()
}

// Expand resolves a step list to local paths. Random steps draw
// min(count, pool) prerolls without replacement from the step's category;
// fixed steps append their prerolls in order. Steps with unknown tags are
// skipped so rows written by older versions degrade instead of failing.
// The result may be empty; the applier decides whether that is fatal.
func (ex *Expander) Expand(ctx context.Context, steps []models.SequenceStep) ([]string, error) {
	var out []string
	for i := range steps {
		st := &steps[i]
		switch st.Type {
		case models.StepTypeRandom:
			pool, err := ex.store.ListPrerollsByCategory(ctx, st.CategoryID)
			if err != nil {
				return nil, E(KindState, "engine.expand", err)
			}
			out = append(out, ex.Sample(pool, st.Count)...)

		case models.StepTypeFixed:
			for _, id := range st.FixedIDs() {
				p, err := ex.store.GetPreroll(ctx, id)
				if err != nil {
					return nil, E(KindState, "engine.expand", err)
				}
				out = append(out, p.Path)
			}

		default:
			logging.Warn().Str("step_type", st.Type).Msg("Skipping unknown sequence step")
		}
	}
	return out, nil
}

// Sample draws min(k, len(pool)) preroll paths uniformly without
// replacement, via a partial Fisher-Yates over an index slice so the pool
// order is untouched.
func (ex *Expander) Sample(pool []models.Preroll, k int) []string {
	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return nil
	}

	idx := make([]int, len(pool))
	for i := range idx {
		idx[i] = i
	}

	ex.mu.Lock()
	for i := 0; i < k; i++ {
		j := i + ex.rnd.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	ex.mu.Unlock()

	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = pool[idx[i]].Path
	}
	return out
}
