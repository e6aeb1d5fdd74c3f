package views

import (
	"context"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/sirupsen/logrus"

	"github.com/deevus/carbon-tui/internal/bus"
	"github.com/deevus/carbon-tui/internal/notify"
	"github.com/deevus/carbon-tui/internal/query"
)

const (
	// DefaultSettleDelay is how long a view waits after a bus event before
	// refetching, giving the backend time to commit the change.
	DefaultSettleDelay = 300 * time.Millisecond
	// DefaultPageSize is the number of rows requested per page.
	DefaultPageSize = 20
)

// View is one tab of the dashboard.
type View interface {
	vxfw.Widget
	vxfw.EventHandler
	// Load fetches the view's data through the cache.
	Load(ctx context.Context) error
	// Loaded reports whether data has been successfully fetched.
	Loaded() bool
	// Stale reports whether the data is older than the stale TTL or has
	// been invalidated.
	Stale() bool
	// Mount starts the view's lifetime: bus subscriptions and requests are
	// bound to ctx until Unmount.
	Mount(ctx context.Context)
	// Unmount cancels in-flight requests, lookups and subscriptions.
	Unmount()
	// Prefixes are the cache prefixes the view reads from.
	Prefixes() []query.Prefix
}

// Tab is a labelled view.
type Tab struct {
	Label string
	View  View
}

// Affected reports whether an invalidation of p touches any of the view's
// prefixes.
func Affected(v View, p query.Prefix) bool {
	for _, vp := range v.Prefixes() {
		if p.Matches(vp) || vp.Matches(p) {
			return true
		}
	}
	return false
}

// Env carries the collaborators shared by every view.
type Env struct {
	Cache       *query.Cache
	Bus         *bus.Bus
	Notifier    *notify.Coordinator
	StaleTTL    time.Duration
	PageSize    int
	SettleDelay time.Duration
	// PostEvent wakes the UI loop. It may be called from any goroutine.
	PostEvent func(vaxis.Event)
	Log       logrus.FieldLogger
}

func (e Env) withDefaults() Env {
	if e.Cache == nil {
		e.Cache = query.New(e.Log)
	}
	if e.Notifier == nil {
		e.Notifier = notify.New(notify.Options{Log: e.Log})
	}
	if e.PageSize <= 0 {
		e.PageSize = DefaultPageSize
	}
	if e.SettleDelay <= 0 {
		e.SettleDelay = DefaultSettleDelay
	}
	return e
}

func (e Env) post(ev vaxis.Event) {
	if e.PostEvent != nil {
		e.PostEvent(ev)
	}
}

func (e Env) publish(pubs []Publication) {
	if e.Bus == nil {
		return
	}
	for _, p := range pubs {
		e.Bus.Publish(p.Topic, p.Detail)
	}
}
