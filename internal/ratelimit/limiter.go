// Package ratelimit implements the per-client fixed-window request limiter
// that protects the shared provider credential.
package ratelimit

import (
	"hash/fnv"
	"math"
	"sync"
	"time"
)

const (
	// DefaultWindow is the length of one counting window.
	DefaultWindow = 60 * time.Second
	// DefaultMax is the number of requests admitted per client per window.
	DefaultMax = 20
	// DefaultMaxClients bounds how many clients are tracked at once.
	DefaultMaxClients = 10000

	shardCount = 16
)

// Config configures a Limiter.
type Config struct {
	Window     time.Duration
	Max        int
	MaxClients int
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Max <= 0 {
		c.Max = DefaultMax
	}
	if c.MaxClients <= 0 {
		c.MaxClients = DefaultMaxClients
	}
	return c
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Count      int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least 1 for a
// rejected request.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

type entry struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// Limiter is a fixed-window counter keyed by client. Clients hash onto
// independent shards, each guarded by its own mutex, so a client's
// read-modify-write is atomic and unrelated clients rarely contend.
type Limiter struct {
	cfg         Config
	perShardCap int
	shards      [shardCount]*shard
}

// New creates a limiter.
func New(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	perShard := (cfg.MaxClients + shardCount - 1) / shardCount
	l := &Limiter{cfg: cfg, perShardCap: perShard}
	for i := range l.shards {
		l.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return l
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config {
	return l.cfg
}

func (l *Limiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

// Admit counts one request from key at now and reports whether it may proceed.
func (l *Limiter) Admit(key string, now time.Time) Decision {
	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		l.makeRoom(s, now)
		e = &entry{count: 1, resetAt: now.Add(l.cfg.Window)}
		s.entries[key] = e
		return Decision{Allowed: true, Count: 1, ResetAt: e.resetAt}
	}

	if now.After(e.resetAt) {
		e.count = 1
		e.resetAt = now.Add(l.cfg.Window)
		return Decision{Allowed: true, Count: 1, ResetAt: e.resetAt}
	}

	e.count++
	if e.count > l.cfg.Max {
		return Decision{
			Allowed:    false,
			Count:      e.count,
			ResetAt:    e.resetAt,
			RetryAfter: e.resetAt.Sub(now),
		}
	}
	return Decision{Allowed: true, Count: e.count, ResetAt: e.resetAt}
}

// makeRoom keeps a shard under its cap before an insert. Caller holds s.mu.
func (l *Limiter) makeRoom(s *shard, now time.Time) {
	if len(s.entries) < l.perShardCap {
		return
	}
	sweepShard(s, now)
	if len(s.entries) < l.perShardCap {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, e := range s.entries {
		if oldestKey == "" || e.resetAt.Before(oldest) {
			oldestKey, oldest = k, e.resetAt
		}
	}
	delete(s.entries, oldestKey)
}

// Sweep removes entries whose window has ended and returns how many it removed.
func (l *Limiter) Sweep(now time.Time) int {
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		removed += sweepShard(s, now)
		s.mu.Unlock()
	}
	return removed
}

func sweepShard(s *shard, now time.Time) int {
	removed := 0
	for k, e := range s.entries {
		if now.After(e.resetAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	n := 0
	for _, s := range l.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
