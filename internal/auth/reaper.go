// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashlock/hashlock/pkg/errutil"
)

// DefaultReapInterval is how often the Reaper sweeps when not configured.
const DefaultReapInterval = time.Hour

// Reaper periodically deletes expired sessions and reset tokens. Validity
// checks never depend on it; it only keeps storage small.
type Reaper struct {
	sessions *SessionStore
	resets   *ResetManager
	interval time.Duration
	logger   *slog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReaper creates a Reaper. A non-positive interval uses DefaultReapInterval.
func NewReaper(sessions *SessionStore, resets *ResetManager, interval time.Duration, logger *slog.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		sessions: sessions,
		resets:   resets,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop in a goroutine. Call Stop to end it.
func (r *Reaper) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Stop ends the sweep loop and waits for it. Safe to call more than once.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
}

func (r *Reaper) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			r.RunOnce(ctx)
			cancel()
		case <-r.stopChan:
			return
		}
	}
}

// RunOnce performs one sweep and returns the number of rows removed.
func (r *Reaper) RunOnce(ctx context.Context) (sessions, resets int64) {
	var err error
	if r.sessions != nil {
		if sessions, err = r.sessions.Reap(ctx); err != nil {
			errutil.LogError(r.logger, "session reap failed", err)
		}
	}
	if r.resets != nil {
		if resets, err = r.resets.Reap(ctx); err != nil {
			errutil.LogError(r.logger, "reset token reap failed", err)
		}
	}
	r.logger.Debug("reap complete", "sessions", sessions, "reset_tokens", resets)
	return sessions, resets
}
