// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hash Lock Contributors

package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hashlock/hashlock/pkg/errutil"
)

const (
	redisBreakerDuration = 30 * time.Second
	redisPingTimeout     = 2 * time.Second
)

// RedisConfig points the Manager at a shared Redis. An empty Addr keeps
// all state in process memory.
type RedisConfig struct {
	Addr     string `koanf:"addr" yaml:"addr"`
	Password string `koanf:"password" yaml:"password"`
	DB       int    `koanf:"db" yaml:"db"`
	Prefix   string `koanf:"prefix" yaml:"prefix"`
}

// Config configures a Manager.
type Config struct {
	Default       Policy            `koanf:"default" yaml:"default"`
	Buckets       map[string]Policy `koanf:"buckets" yaml:"buckets"`
	Redis         RedisConfig       `koanf:"redis" yaml:"redis"`
	SweepInterval time.Duration     `koanf:"sweep_interval" yaml:"sweep_interval"`
}

// DefaultConfig returns the default policy for every gateway bucket.
func DefaultConfig() Config {
	return Config{
		Default:       DefaultPolicy,
		Buckets:       map[string]Policy{},
		Redis:         RedisConfig{Prefix: "hashlock:ratelimit"},
		SweepInterval: DefaultSweepInterval,
	}
}

// RedisClientFactory builds a Redis client from options.
type RedisClientFactory func(*redis.Options) *redis.Client

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for backend warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRedisClientFactory overrides how the Redis client is built.
func WithRedisClientFactory(factory RedisClientFactory) Option {
	return func(m *Manager) { m.factory = factory }
}

// Manager admits calls per bucket. It prefers Redis when configured and
// falls back to memory while Redis is failing.
type Manager struct {
	cfg     Config
	memory  *MemoryLimiter
	logger  *slog.Logger
	now     func() time.Time
	factory RedisClientFactory

	mu           sync.Mutex
	redis        *redisLease
	connecting   bool
	closed       bool
	breakerUntil time.Time
	retiring     sync.WaitGroup
}

// redisLease tracks the Allow calls using a Redis limiter so it is closed
// only after the last one returns.
type redisLease struct {
	limiter  *RedisLimiter
	inflight sync.WaitGroup
}

// NewManager creates a Manager. Call Close to release the sweeper and any
// Redis connection.
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		logger:  slog.Default(),
		now:     time.Now,
		factory: redis.NewClient,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.memory = NewMemoryLimiter(cfg.SweepInterval)
	return m
}

// Policy returns the policy that applies to bucket.
func (m *Manager) Policy(bucket string) Policy {
	if p, ok := m.cfg.Buckets[bucket]; ok {
		return p
	}
	return m.cfg.Default
}

// Admit records one call from clientKey against bucket.
func (m *Manager) Admit(ctx context.Context, clientKey, bucket string) (Result, error) {
	policy := m.Policy(bucket)
	key := Key(bucket, clientKey)
	now := m.now()

	if lease := m.acquireRedis(ctx, now); lease != nil {
		res, err := lease.limiter.Allow(ctx, key, policy, now)
		lease.inflight.Done()
		if err == nil {
			recordDecision(bucket, res.Allowed)
			return res, nil
		}
		m.tripBreaker(lease, now, err)
	}

	res, err := m.memory.Allow(ctx, key, policy, now)
	if err != nil {
		return Result{}, err
	}
	recordDecision(bucket, res.Allowed)
	return res, nil
}

// Close stops the memory sweeper and closes the Redis client once no call
// is using it.
func (m *Manager) Close() error {
	m.memory.Close()

	m.mu.Lock()
	m.closed = true
	lease := m.redis
	m.redis = nil
	m.mu.Unlock()

	var err error
	if lease != nil {
		lease.inflight.Wait()
		err = lease.limiter.Close()
	}
	m.retiring.Wait()
	return err
}

// acquireRedis returns the current Redis lease with one call registered on
// it, or nil when memory should serve the call. Connecting happens outside
// the lock; calls arriving meanwhile use memory.
func (m *Manager) acquireRedis(ctx context.Context, now time.Time) *redisLease {
	if m.cfg.Redis.Addr == "" {
		return nil
	}

	m.mu.Lock()
	if m.closed || m.connecting || now.Before(m.breakerUntil) {
		m.mu.Unlock()
		return nil
	}
	if lease := m.redis; lease != nil {
		lease.inflight.Add(1)
		m.mu.Unlock()
		return lease
	}
	m.connecting = true
	m.mu.Unlock()

	lease, err := m.connect(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.connecting = false
	if err != nil {
		m.breakerUntil = now.Add(redisBreakerDuration)
		BackendFallbacks.Inc()
		errutil.LogError(m.logger.With("addr", m.cfg.Redis.Addr),
			"ratelimit redis unavailable, using memory", err)
		return nil
	}
	if m.closed {
		_ = lease.limiter.Close()
		return nil
	}
	m.redis = lease
	lease.inflight.Add(1)
	return lease
}

func (m *Manager) connect(ctx context.Context) (*redisLease, error) {
	client := m.factory(&redis.Options{
		Addr:     m.cfg.Redis.Addr,
		Password: m.cfg.Redis.Password,
		DB:       m.cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &redisLease{limiter: NewRedisLimiter(client, m.cfg.Redis.Prefix)}, nil
}

// tripBreaker retires lease after a failed call. Only the first failure on
// a lease opens the breaker; the client is closed once its calls drain.
func (m *Manager) tripBreaker(lease *redisLease, now time.Time, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.redis != lease {
		return
	}
	m.redis = nil
	m.breakerUntil = now.Add(redisBreakerDuration)
	m.retiring.Add(1)
	go func() {
		defer m.retiring.Done()
		lease.inflight.Wait()
		_ = lease.limiter.Close()
	}()

	BackendFallbacks.Inc()
	m.logger.Warn("ratelimit redis failed, using memory",
		"error", err, "retry_after", redisBreakerDuration)
}
