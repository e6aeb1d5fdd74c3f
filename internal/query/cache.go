package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/deevus/carbon-tui/internal/logging"
	"github.com/deevus/carbon-tui/internal/metrics"
)

// Cache holds fetched values by key. Consumers never write to it directly:
// values enter through Get and leave through invalidation.
type Cache struct {
	now   func() time.Time
	group singleflight.Group
	log   *logrus.Entry

	mu        sync.Mutex
	entries   map[string]*entry
	inflight  map[string]*flight
	listeners map[int]func(Prefix)
	nextID    int
}

type entry struct {
	parts     []string
	value     any
	fetchedAt time.Time
	invalid   bool
}

type flight struct {
	parts       []string
	invalidated bool
}

// New creates an empty cache.
func New(log logrus.FieldLogger) *Cache {
	return &Cache{
		now:       time.Now,
		log:       logging.Component(log, "query"),
		entries:   make(map[string]*entry),
		inflight:  make(map[string]*flight),
		listeners: make(map[int]func(Prefix)),
	}
}

// SetNow overrides the clock used for staleness.
func (c *Cache) SetNow(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns the value cached under key if it was fetched less than ttl ago
// and has not been invalidated. Otherwise it calls fetch. Concurrent misses
// on the same key share one fetch, which runs under the context of the caller
// that started it.
func Get[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	k := key.String()

	if v, ok := c.lookup(k, ttl); ok {
		if typed, ok := v.(T); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return typed, nil
		}
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	for attempt := 0; attempt < 2; attempt++ {
		ch := c.group.DoChan(k, func() (any, error) {
			fl := c.beginFlight(k, key.Parts())
			v, err := fetch(ctx)
			c.endFlight(k, fl, v, err)
			return v, err
		})

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Shared {
				metrics.CacheLookups.WithLabelValues("shared").Inc()
			}
			if res.Err != nil {
				// A shared fetch cancelled by its starter says nothing about ours.
				if res.Shared && errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
					continue
				}
				return zero, res.Err
			}
			typed, _ := res.Val.(T)
			return typed, nil
		}
	}
	return zero, context.Canceled
}

// Fresh reports whether key holds a valid value younger than ttl.
func (c *Cache) Fresh(key Key, ttl time.Duration) bool {
	_, ok := c.lookup(key.String(), ttl)
	return ok
}

// InvalidatePrefix marks every entry matching p as invalid, including fetches
// still in flight, and notifies listeners. Reads issued afterwards start a new
// fetch rather than joining one already in flight. It returns the number of
// stored entries affected.
func (c *Cache) InvalidatePrefix(p Prefix) int {
	c.mu.Lock()
	n := 0
	for _, e := range c.entries {
		if p.Matches(e.parts) && !e.invalid {
			e.invalid = true
			n++
		}
	}
	for k, fl := range c.inflight {
		if p.Matches(fl.parts) {
			fl.invalidated = true
			c.group.Forget(k)
		}
	}
	listeners := make([]func(Prefix), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	metrics.CacheInvalidations.WithLabelValues(p.resource()).Add(float64(n))
	c.log.WithFields(logrus.Fields{"prefix": []string(p), "entries": n}).Debug("invalidated")
	for _, fn := range listeners {
		fn(p)
	}
	return n
}

// OnInvalidate registers fn to run after every invalidation. The returned
// function unregisters it.
func (c *Cache) OnInvalidate(fn func(Prefix)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Len returns the number of stored entries, valid or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Mutate runs fn and, only if it succeeds, invalidates the given prefixes so
// every open view of those resources refetches. Nothing is updated
// optimistically.
func Mutate(ctx context.Context, c *Cache, fn func(context.Context) error, prefixes ...Prefix) error {
	if err := fn(ctx); err != nil {
		return err
	}
	for _, p := range prefixes {
		c.InvalidatePrefix(p)
	}
	return nil
}

func (c *Cache) lookup(k string, ttl time.Duration) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || e.invalid {
		return nil, false
	}
	if c.now().Sub(e.fetchedAt) >= ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) beginFlight(k string, parts []string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl := &flight{parts: parts}
	c.inflight[k] = fl
	return fl
}

func (c *Cache) endFlight(k string, fl *flight, v any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A flight forgotten by an invalidation may finish after its replacement.
	superseded := c.inflight[k] != fl
	if !superseded {
		delete(c.inflight, k)
	}
	if err != nil || superseded {
		return
	}
	c.entries[k] = &entry{
		parts:     fl.parts,
		value:     v,
		fetchedAt: c.now(),
		invalid:   fl.invalidated,
	}
}
