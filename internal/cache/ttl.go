// internal/cache/ttl.go - Freshness-window cache for one query kind
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"sonarboard/internal/clock"
	"sonarboard/internal/metrics"
)

// Source says where a returned value came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceUpstream Source = "upstream"
	SourceError    Source = "error"
)

// FetchFunc produces a fresh value on a miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

type options struct {
	singleFlight bool
}

// Option configures a TTL cache.
type Option func(*options)

// WithSingleFlight collapses concurrent misses into one fetch. On by default.
func WithSingleFlight(enabled bool) Option {
	return func(o *options) {
		o.singleFlight = enabled
	}
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// TTL holds at most one value. The value is fresh while its age is below
// the ttl; freshness is evaluated on every read. A ttl <= 0 disables caching.
type TTL[T any] struct {
	name  string
	ttl   time.Duration
	clock clock.Clock
	opts  options

	mu    sync.RWMutex
	entry *entry[T]

	group singleflight.Group
}

// New creates an empty cache. A nil clock uses the real clock.
func New[T any](name string, ttl time.Duration, clk clock.Clock, opts ...Option) *TTL[T] {
	if clk == nil {
		clk = clock.Real()
	}
	o := options{singleFlight: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[T]{name: name, ttl: ttl, clock: clk, opts: o}
}

func (c *TTL[T]) Name() string {
	return c.name
}

func (c *TTL[T]) TTL() time.Duration {
	return c.ttl
}

// Read returns the stored value if it is still fresh, along with its age.
func (c *TTL[T]) Read() (T, bool, time.Duration) {
	var zero T
	if c.ttl <= 0 {
		return zero, false, 0
	}

	c.mu.RLock()
	e := c.entry
	c.mu.RUnlock()

	if e == nil {
		return zero, false, 0
	}
	age := c.clock.Now().Sub(e.storedAt)
	if age >= c.ttl {
		return zero, false, age
	}
	return e.value, true, age
}

// Write replaces the stored value and stamps it with the current time.
func (c *TTL[T]) Write(value T) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entry = &entry[T]{value: value, storedAt: c.clock.Now()}
	c.mu.Unlock()
}

// Invalidate drops the stored value.
func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

type flightResult[T any] struct {
	value  T
	source Source
}

// GetOrFetch serves a fresh value from the cache or calls fetch and stores
// its result. Errors are returned as-is and never cached.
func (c *TTL[T]) GetOrFetch(ctx context.Context, fetch FetchFunc[T]) (T, Source, error) {
	if v, ok, age := c.Read(); ok {
		metrics.CacheHit(c.name)
		logrus.WithFields(logrus.Fields{
			"cache": c.name,
			"age":   age,
		}).Debug("Cache hit")
		return v, SourceCache, nil
	}
	metrics.CacheMiss(c.name)

	return c.flight(ctx, fetch, true)
}

// Refresh calls fetch regardless of freshness and stores its result. It
// shares the in-flight fetch with concurrent GetOrFetch misses, so at most
// one upstream call per cache runs at a time.
func (c *TTL[T]) Refresh(ctx context.Context, fetch FetchFunc[T]) (T, Source, error) {
	return c.flight(ctx, fetch, false)
}

func (c *TTL[T]) flight(ctx context.Context, fetch FetchFunc[T], recheck bool) (T, Source, error) {
	if !c.opts.singleFlight {
		return c.fetchAndStore(ctx, fetch)
	}

	// The flight outlives any single caller; each caller still stops
	// waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.name, func() (interface{}, error) {
		if recheck {
			if v, ok, _ := c.Read(); ok {
				return flightResult[T]{value: v, source: SourceCache}, nil
			}
		}
		v, source, err := c.fetchAndStore(flightCtx, fetch)
		if err != nil {
			return nil, err
		}
		return flightResult[T]{value: v, source: source}, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, SourceError, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, SourceError, res.Err
		}
		fr := res.Val.(flightResult[T])
		return fr.value, fr.source, nil
	}
}

func (c *TTL[T]) fetchAndStore(ctx context.Context, fetch FetchFunc[T]) (T, Source, error) {
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, SourceError, err
	}
	c.Write(v)
	return v, SourceUpstream, nil
}
