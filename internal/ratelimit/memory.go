// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often idle keys are dropped from memory.
const DefaultSweepInterval = 5 * time.Minute

type memoryLog struct {
	hits   []time.Time
	window time.Duration
}

// prune drops hits that have left the window ending at now.
func (l *memoryLog) prune(now time.Time) {
	i := 0
	for i < len(l.hits) && now.Sub(l.hits[i]) >= l.window {
		i++
	}
	l.hits = l.hits[i:]
}

// MemoryLimiter keeps a per-key log of admission times. It is safe for
// concurrent use. A background goroutine drops idle keys; call Close to
// stop it.
type MemoryLimiter struct {
	mu   sync.Mutex
	logs map[string]*memoryLog

	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMemoryLimiter creates a MemoryLimiter sweeping every interval
// (DefaultSweepInterval when non-positive).
func NewMemoryLimiter(sweepInterval time.Duration) *MemoryLimiter {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	l := &MemoryLimiter{
		logs:     make(map[string]*memoryLog),
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.sweepLoop(sweepInterval)
	return l
}

// Allow admits the call when fewer than p.Limit admissions for key fall
// inside the window ending at now. A denied call records nothing.
func (l *MemoryLimiter) Allow(_ context.Context, key string, p Policy, now time.Time) (Result, error) {
	if p.Disabled() {
		return Result{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.logs[key]
	if entry == nil {
		entry = &memoryLog{window: p.Window}
		l.logs[key] = entry
	}
	entry.window = p.Window
	entry.prune(now)

	if len(entry.hits) >= p.Limit {
		retry := entry.hits[0].Add(p.Window).Sub(now)
		return Result{Allowed: false, RetryAfter: retry}, nil
	}

	entry.hits = append(entry.hits, now)
	return Result{Allowed: true, Remaining: p.Limit - len(entry.hits)}, nil
}

// Sweep removes keys with no admissions inside their window at now and
// returns the number of keys still tracked.
func (l *MemoryLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, entry := range l.logs {
		entry.prune(now)
		if len(entry.hits) == 0 {
			delete(l.logs, key)
		}
	}
	trackedKeys.Set(float64(len(l.logs)))
	return len(l.logs)
}

// Close stops the sweeper. Safe to call more than once.
func (l *MemoryLimiter) Close() {
	l.closeOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
}

func (l *MemoryLimiter) sweepLoop(interval time.Duration) {
	defer l.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep(time.Now())
		case <-l.stopChan:
			return
		}
	}
}
