package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

type entry struct {
	count         int
	windowResetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// MemoryCounter is an in-process fixed-window counter. Keys are spread over
// locked shards so hot keys don't contend with unrelated ones. Counters are
// lost on restart; that cold-start gap is accepted.
type MemoryCounter struct {
	limit  int
	window time.Duration
	shards [shardCount]*shard
	now    func() time.Time
}

// NewMemoryCounter creates a counter allowing limit requests per window.
func NewMemoryCounter(limit int, window time.Duration) *MemoryCounter {
	c := &MemoryCounter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return c
}

func (c *MemoryCounter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

// Consume counts one request for key. The first request of a window, or any
// request arriving at or after the window reset, replaces the entry with
// count 1 rather than incrementing a stale counter.
func (c *MemoryCounter) Consume(_ context.Context, key string) (Result, error) {
	now := c.now()
	s := c.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.windowResetAt) {
		s.entries[key] = &entry{count: 1, windowResetAt: now.Add(c.window)}
		return Result{Allowed: true}, nil
	}

	if e.count >= c.limit {
		return Result{Allowed: false, RetryAfter: e.windowResetAt.Sub(now)}, nil
	}

	e.count++
	return Result{Allowed: true}, nil
}

// Prune drops entries whose window has elapsed. Intended for a periodic
// housekeeping schedule; correctness does not depend on it.
func (c *MemoryCounter) Prune() int {
	now := c.now()
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for key, e := range s.entries {
			if !now.Before(e.windowResetAt) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
