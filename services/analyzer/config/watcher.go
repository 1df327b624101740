// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/SparkyTheG/Live-Co-Pilot-Dashboard/services/analyzer/datatypes"
)

// WeightWatcher hot-reloads the pillar-weights file.
//
// # Description
//
// Watches the weights YAML file and invokes the callback with the freshly
// parsed configuration on every successful reload. A file that fails to
// parse keeps the previous weights in effect; tuning must never break a
// live call.
//
// # Thread Safety
//
// Start should only be called once. The callback runs on the watcher
// goroutine and must not block.
type WeightWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	callback func(datatypes.WeightConfig)
}

// NewWeightWatcher creates a watcher for the weights file at path.
func NewWeightWatcher(path string, callback func(datatypes.WeightConfig)) (*WeightWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &WeightWatcher{
		path:     path,
		watcher:  watcher,
		callback: callback,
	}, nil
}

// Start begins watching for weight changes. Blocks until the context is
// cancelled. Should be run in a goroutine.
func (w *WeightWatcher) Start(ctx context.Context) {
	if err := w.watcher.Add(w.path); err != nil {
		slog.Warn("Failed to watch the weights file",
			"path", w.path,
			"error", err)
		return
	}
	slog.Info("Watching the pillar-weights file", "path", w.path)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Weights watcher error", "error", err)

		case <-ctx.Done():
			slog.Debug("Weights watcher stopping")
			return
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *WeightWatcher) handleEvent(event fsnotify.Event) {
	// Editors typically replace the file, so Create counts too.
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	weights, err := LoadWeights(w.path)
	if err != nil {
		slog.Warn("Weights file changed but failed to load, keeping previous weights",
			"path", w.path,
			"error", err)
		return
	}

	slog.Info("Reloaded pillar weights", "path", w.path)
	w.callback(weights)

	// A replace removes the original watch target; re-add quietly.
	if event.Op&fsnotify.Create != 0 {
		_ = w.watcher.Add(w.path)
	}
}

// Stop stops the watcher. Safe to call multiple times.
func (w *WeightWatcher) Stop() error {
	return w.watcher.Close()
}
