// Package lookup resolves per-row references (owner names, seller names)
// concurrently so that every table row fills in on its own.
package lookup

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/deevus/carbon-tui/internal/logging"
)

const (
	// PendingText is shown while a lookup is in flight.
	PendingText = "Đang tải..."
	// FailedText is shown when a lookup failed.
	FailedText = "Không rõ"
	// DefaultLimit bounds concurrent lookups per resolver.
	DefaultLimit = 4
)

// Status is the state of one id's lookup.
type Status int

const (
	Pending Status = iota
	Resolved
	Failed
)

// Fetch loads the value for one id.
type Fetch[V any] func(ctx context.Context, id string) (V, error)

type result[V any] struct {
	value V
	err   error
}

// Resolver caches lookups by id. Get never blocks: an unknown id starts a
// fetch and reports Pending until it completes.
type Resolver[V any] struct {
	fetch     Fetch[V]
	sem       *semaphore.Weighted
	onResolve func(id string)
	log       *logrus.Entry

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	gen      uint64
	results  map[string]result[V]
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// New creates a Resolver. limit bounds concurrent fetches; zero selects
// DefaultLimit. onResolve runs on the fetching goroutine after each id
// completes, typically to request a redraw.
func New[V any](fetch Fetch[V], limit int64, onResolve func(id string), log logrus.FieldLogger) *Resolver[V] {
	if limit <= 0 {
		limit = DefaultLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver[V]{
		fetch:     fetch,
		sem:       semaphore.NewWeighted(limit),
		onResolve: onResolve,
		log:       logging.Component(log, "lookup"),
		ctx:       ctx,
		cancel:    cancel,
		results:   make(map[string]result[V]),
		inflight:  make(map[string]struct{}),
	}
}

// Get returns the value for id and its status, starting a fetch if needed.
func (r *Resolver[V]) Get(id string) (V, Status) {
	var zero V
	r.mu.Lock()
	defer r.mu.Unlock()

	if res, ok := r.results[id]; ok {
		if res.err != nil {
			return zero, Failed
		}
		return res.value, Resolved
	}
	if _, ok := r.inflight[id]; ok || r.ctx.Err() != nil {
		return zero, Pending
	}

	r.inflight[id] = struct{}{}
	r.wg.Add(1)
	go r.run(r.ctx, r.gen, id)
	return zero, Pending
}

// Text formats the value for id, or the placeholder for pending and failed
// lookups.
func (r *Resolver[V]) Text(id string, format func(V) string) string {
	if id == "" {
		return ""
	}
	v, st := r.Get(id)
	switch st {
	case Resolved:
		return format(v)
	case Failed:
		return FailedText
	}
	return PendingText
}

func (r *Resolver[V]) run(ctx context.Context, gen uint64, id string) {
	defer r.wg.Done()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.drop(gen, id)
		return
	}
	v, err := r.fetch(ctx, id)
	r.sem.Release(1)

	if ctx.Err() != nil {
		r.drop(gen, id)
		return
	}

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.inflight, id)
	r.results[id] = result[V]{value: v, err: err}
	r.mu.Unlock()

	if err != nil {
		r.log.WithError(err).WithField("id", id).Debug("lookup failed")
	}
	if r.onResolve != nil {
		r.onResolve(id)
	}
}

func (r *Resolver[V]) drop(gen uint64, id string) {
	r.mu.Lock()
	if r.gen == gen {
		delete(r.inflight, id)
	}
	r.mu.Unlock()
}

// Reset cancels in-flight lookups and forgets every result. Fetches that
// finish after Reset are discarded.
func (r *Resolver[V]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancel()
	r.gen++
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.results = make(map[string]result[V])
	r.inflight = make(map[string]struct{})
}

// Close cancels in-flight lookups. Later Gets report Pending without
// fetching.
func (r *Resolver[V]) Close() {
	r.mu.Lock()
	r.cancel()
	r.gen++
	r.mu.Unlock()
}

// Wait blocks until every started fetch has returned.
func (r *Resolver[V]) Wait() {
	r.wg.Wait()
}
