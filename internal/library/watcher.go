// NeXroll - Cinematic Preroll Scheduling for Plex and Jellyfin
// Copyright 2026 NeXroll Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nexroll/nexroll

// Package library watches the preroll media roots and keeps the store in
// sync with the filesystem: new video files are registered as managed
// prerolls in the ingest category, removed files are deregistered.
package library

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nexroll/nexroll/internal/config"
	"github.com/nexroll/nexroll/internal/database"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/metrics"
	"github.com/nexroll/nexroll/internal/models"
)

// Store is the persistence surface the watcher uses.
type Store interface {
	GetPrerollByPath(ctx context.Context, path string) (*models.Preroll, error)
	CreatePreroll(ctx context.Context, req *models.CreatePrerollRequest) (*models.Preroll, error)
	DeletePreroll(ctx context.Context, id int64) error
	GetCategoryByName(ctx context.Context, name string) (*models.Category, error)
	CreateCategory(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
}

// Watcher is the ingest service. Files must stay quiet for the settle delay
// before registration so partially copied files are not picked up.
type Watcher struct {
	cfg   *config.LibraryConfig
	store Store
	now   func() time.Time

	mu         sync.Mutex
	pending    map[string]time.Time
	categoryID *int64
}

// New creates a watcher over the configured roots.
func New(cfg *config.LibraryConfig, store Store) *Watcher {
	return &Watcher{
		cfg:     cfg,
		store:   store,
		now:     time.Now,
		pending: make(map[string]time.Time),
	}
}

// String names the service in the supervision tree.
func (w *Watcher) String() string { return "library-watcher" }

// Serve runs the watcher until the context is canceled: an initial scan,
// then fsnotify events debounced through the settle delay.
func (w *Watcher) Serve(ctx context.Context) error {
	if !w.cfg.Enabled || len(w.cfg.Roots) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for _, root := range w.cfg.Roots {
		if err := w.watchTree(fw, root); err != nil {
			logging.Error().Err(err).Str("root", root).Msg("Could not watch media root")
		}
	}
	w.scanRoots(ctx)

	settle := w.cfg.SettleDelay
	if settle <= 0 {
		settle = 2 * time.Second
	}
	flush := time.NewTicker(settle / 2)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return errors.New("fsnotify event channel closed")
			}
			w.handleEvent(ctx, fw, ev)

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("fsnotify error channel closed")
			}
			logging.Warn().Err(err).Msg("Filesystem watch error")

		case <-flush.C:
			w.flushPending(ctx, settle)
		}
	}
}

// watchTree adds a directory and all its subdirectories to the watch set.
func (w *Watcher) watchTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fw.Add(path)
		}
		return nil
	})
}

// handleEvent routes one fsnotify event.
func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if ev.Op.Has(fsnotify.Create) {
				if err := w.watchTree(fw, ev.Name); err != nil {
					logging.Warn().Err(err).Str("dir", ev.Name).Msg("Could not watch new directory")
				}
			}
			return
		}
		if !w.matchesExt(ev.Name) {
			return
		}
		w.mu.Lock()
		w.pending[ev.Name] = w.now()
		w.mu.Unlock()

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.mu.Lock()
		delete(w.pending, ev.Name)
		w.mu.Unlock()
		if w.matchesExt(ev.Name) {
			w.deregister(ctx, ev.Name)
		}
	}
}

// flushPending registers files whose last event is older than the settle
// delay.
func (w *Watcher) flushPending(ctx context.Context, settle time.Duration) {
	now := w.now()

	w.mu.Lock()
	var due []string
	for path, last := range w.pending {
		if now.Sub(last) >= settle {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range due {
		w.register(ctx, path)
	}
}

// scanRoots registers every matching file already on disk.
func (w *Watcher) scanRoots(ctx context.Context) {
	for _, root := range w.cfg.Roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && w.matchesExt(path) {
				w.register(ctx, path)
			}
			return nil
		})
		if err != nil {
			logging.Error().Err(err).Str("root", root).Msg("Initial library scan failed")
		}
	}
}

// register records one file as a managed preroll in the ingest category.
// Already-known paths are left untouched, so re-scans are cheap and manual
// category assignments survive.
func (w *Watcher) register(ctx context.Context, path string) {
	if _, err := w.store.GetPrerollByPath(ctx, path); err == nil {
		metrics.LibraryIngests.WithLabelValues("skipped").Inc()
		return
	} else if !errors.Is(err, database.ErrPrerollNotFound) {
		metrics.LibraryIngests.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("path", path).Msg("Library lookup failed")
		return
	}

	categoryID, err := w.ingestCategory(ctx)
	if err != nil {
		metrics.LibraryIngests.WithLabelValues("error").Inc()
		logging.Error().Err(err).Msg("Could not resolve ingest category")
		return
	}

	_, err = w.store.CreatePreroll(ctx, &models.CreatePrerollRequest{
		Path:       path,
		CategoryID: categoryID,
		Managed:    true,
	})
	if err != nil {
		metrics.LibraryIngests.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("path", path).Msg("Could not register preroll")
		return
	}
	metrics.LibraryIngests.WithLabelValues("registered").Inc()
	logging.Info().Str("path", path).Msg("Registered new preroll")
}

// deregister removes the store row for a vanished file. Unmanaged rows are
// preserved: their files live outside the managed roots and a rename there
// is the operator's business.
func (w *Watcher) deregister(ctx context.Context, path string) {
	p, err := w.store.GetPrerollByPath(ctx, path)
	if err != nil {
		return
	}
	if !p.Managed {
		return
	}
	if err := w.store.DeletePreroll(ctx, p.ID); err != nil {
		logging.Error().Err(err).Str("path", path).Msg("Could not deregister preroll")
		return
	}
	logging.Info().Str("path", path).Msg("Deregistered removed preroll")
}

// ingestCategory resolves (or creates) the configured ingest category,
// caching the ID for the life of the watcher.
func (w *Watcher) ingestCategory(ctx context.Context) (*int64, error) {
	name := w.cfg.IngestCategory
	if name == "" {
		return nil, nil
	}

	w.mu.Lock()
	if w.categoryID != nil {
		id := *w.categoryID
		w.mu.Unlock()
		return &id, nil
	}
	w.mu.Unlock()

	cat, err := w.store.GetCategoryByName(ctx, name)
	if errors.Is(err, database.ErrCategoryNotFound) {
		cat, err = w.store.CreateCategory(ctx, &models.CreateCategoryRequest{
			Name:        name,
			Description: "Auto-registered prerolls",
		})
	}
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.categoryID = &cat.ID
	w.mu.Unlock()
	return &cat.ID, nil
}

// matchesExt checks the extension whitelist, case-insensitively.
func (w *Watcher) matchesExt(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, allowed := range w.cfg.Extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
