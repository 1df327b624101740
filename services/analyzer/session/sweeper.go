// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SweeperConfig holds configuration for the idle-session sweeper.
//
// # Fields
//
//   - Interval: How often to scan for abandoned sessions. Default: 1 minute.
//   - MaxIdle: How long a session may go without an accepted fragment
//     before it is disposed. Default: 30 minutes.
type SweeperConfig struct {
	Interval time.Duration
	MaxIdle  time.Duration
}

// DefaultSweeperConfig returns production defaults: scan every minute,
// dispose after 30 minutes of silence.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 1 * time.Minute,
		MaxIdle:  30 * time.Minute,
	}
}

// Sweeper disposes sessions whose conversation has gone silent without a
// stop marker (client crash, dropped call). Uses the ticker + done channel
// pattern for graceful shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Sweeper struct {
	store  *Store
	config SweeperConfig

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewSweeper creates a sweeper over the given store. Ready to Start().
func NewSweeper(store *Store, config SweeperConfig) *Sweeper {
	return &Sweeper{store: store, config: config}
}

// Start begins the background sweep loop. Returns an error if the sweeper
// is already running.
func (sw *Sweeper) Start(ctx context.Context) error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	sw.running = true
	sw.done = make(chan struct{})
	sw.mu.Unlock()

	slog.Info("session sweeper starting",
		"interval", sw.config.Interval.String(),
		"max_idle", sw.config.MaxIdle.String(),
	)

	go sw.runLoop(ctx)
	return nil
}

// Stop signals the sweep loop to exit. Safe to call multiple times.
func (sw *Sweeper) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.running {
		return
	}
	close(sw.done)
	sw.running = false
}

// RunNow performs one sweep immediately and returns how many sessions were
// disposed. Useful for tests and manual invocation.
func (sw *Sweeper) RunNow() int {
	ids := sw.store.idleSessions(sw.config.MaxIdle)
	disposed := 0
	for _, id := range ids {
		if sw.store.Dispose(id) {
			disposed++
		}
	}
	if disposed > 0 {
		slog.Info("swept idle sessions", "count", disposed)
	}
	return disposed
}

func (sw *Sweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(sw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped by context")
			return
		case <-sw.done:
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			sw.RunNow()
		}
	}
}
