// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

// Package tasks runs fire-and-forget work on a bounded worker pool.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/hashlock/hashlock/pkg/errutil"
)

// Config sizes a Pool.
type Config struct {
	Workers   int           `koanf:"workers" yaml:"workers"`
	QueueSize int           `koanf:"queue_size" yaml:"queue_size"`
	Timeout   time.Duration `koanf:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the default pool sizing.
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		QueueSize: 100,
		Timeout:   30 * time.Second,
	}
}

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Pool executes submitted tasks on a fixed number of workers.
type Pool struct {
	cfg    Config
	logger *slog.Logger
	queue  chan task

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool starts a Pool. Non-positive config values fall back to defaults.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan task, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}
	return p
}

// Submit queues fn without blocking. It returns false, and logs, when the
// queue is full or the pool is closed.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(name, "closed")
		return false
	}

	select {
	case p.queue <- task{name: name, fn: fn}:
		return true
	default:
		p.drop(name, "queue_full")
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish. When ctx
// ends first, running tasks are cancelled and TASKS_DRAIN_TIMEOUT is
// returned once the workers exit.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return oops.Code("TASKS_DRAIN_TIMEOUT").Wrap(ctx.Err())
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.queue {
		p.run(t)
	}
}

func (p *Pool) run(t task) {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error("task panicked", "task", t.name, "panic", recovered)
			recordTask(t.name, OutcomePanicked, time.Since(start))
		}
	}()

	if err := t.fn(ctx); err != nil {
		errutil.LogError(p.logger.With("task", t.name), "task failed", err)
		recordTask(t.name, OutcomeFailed, time.Since(start))
		return
	}
	recordTask(t.name, OutcomeSucceeded, time.Since(start))
}

func (p *Pool) drop(name, reason string) {
	Dropped.WithLabelValues(name, reason).Inc()
	p.logger.Warn("task dropped", "task", name, "reason", reason)
}
