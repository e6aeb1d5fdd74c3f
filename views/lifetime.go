package views

import (
	"context"
	"sync"
	"time"

	"github.com/deevus/carbon-tui/internal/bus"
)

// lifetime scopes a view's requests. Each load supersedes the previous one,
// and unmounting cancels everything still running.
type lifetime struct {
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	loadCancel context.CancelFunc
	gen        uint64
}

// start binds the lifetime to parent. It returns false if already mounted.
func (l *lifetime) start(parent context.Context) (context.Context, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return l.ctx, false
	}
	l.ctx, l.cancel = context.WithCancel(parent)
	return l.ctx, true
}

func (l *lifetime) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
		l.ctx = nil
	}
	if l.loadCancel != nil {
		l.loadCancel()
		l.loadCancel = nil
	}
	l.gen++
}

// context returns the mounted context, or Background when not mounted.
func (l *lifetime) context() context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ctx != nil {
		return l.ctx
	}
	return context.Background()
}

// beginLoad cancels the previous load and returns a context and generation
// for a new one. The caller must call the returned cancel when done.
func (l *lifetime) beginLoad(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loadCancel != nil {
		l.loadCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	l.loadCancel = cancel
	l.gen++
	return ctx, l.gen, cancel
}

// current reports whether gen is still the latest load.
func (l *lifetime) current(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.gen
}

// watch delivers bus events to handle until ctx is done or the
// subscription closes.
func watch(ctx context.Context, sub *bus.Subscription, handle func(context.Context, bus.Event)) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			handle(ctx, ev)
		}
	}
}

// settle waits d, returning false if ctx is cancelled first.
func settle(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
