package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/sirupsen/logrus"

	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/bus"
	"github.com/deevus/carbon-tui/internal/logging"
	"github.com/deevus/carbon-tui/internal/notify"
	"github.com/deevus/carbon-tui/internal/query"
	"github.com/deevus/carbon-tui/widgets"
)

// ErrNoSelection is returned by Do when there is no row the action applies to.
var ErrNoSelection = errors.New("no applicable row selected")

// Column renders one field of a row.
type Column[T any] struct {
	widgets.TableColumn
	Value func(T) string
}

// Publication is a bus event emitted after a successful mutation.
type Publication struct {
	Topic  bus.Topic
	Detail bus.Detail
}

// Outcome describes the effects of a successful row action.
type Outcome struct {
	// Message is shown as a success notification.
	Message string
	Events  []Publication
}

// Action is a mutation bound to a key and applied to the selected row.
type Action[T any] struct {
	Key  rune
	Hint string
	// Allowed reports whether the action applies to item. Nil allows all.
	Allowed func(T) bool
	Run     func(ctx context.Context, item T) (Outcome, error)
	// Invalidate lists the prefixes made stale by a successful run, in
	// addition to the view's own resource.
	Invalidate []query.Prefix
}

// Resetter is a per-view cache that is dropped on unmount.
type Resetter interface {
	Reset()
}

// ListViewParams holds configuration for creating a ListView.
type ListViewParams[T any] struct {
	Env

	// Resource and Scope form the leading parts of every cache key.
	Resource string
	Scope    string
	Fetch    func(ctx context.Context, p api.ListParams) (api.Page[T], error)
	Columns  []Column[T]
	// SortFields are cycled with s; the first is the default.
	SortFields []string
	SortDir    query.SortDir
	// FilterName is the query parameter cycled with f over FilterValues.
	// An empty value means no filter.
	FilterName   string
	FilterValues []string
	Actions      []Action[T]
	// Topics refetch the view while it is mounted.
	Topics  []bus.Topic
	Lookups []Resetter
	Empty   string
	// CellStyle overrides the style of individual cells.
	CellStyle func(item T, col int) (vaxis.Style, bool)
}

// ListView is a paginated, sortable, filterable table over one list
// endpoint.
type ListView[T any] struct {
	env       Env
	log       *logrus.Entry
	resource  string
	scope     string
	fetch     func(ctx context.Context, p api.ListParams) (api.Page[T], error)
	columns   []Column[T]
	sorts     []string
	filter    string
	filterVal []string
	actions   []Action[T]
	topics    []bus.Topic
	lookups   []Resetter
	empty     string
	cellStyle func(item T, col int) (vaxis.Style, bool)

	life lifetime

	mu    sync.Mutex
	state listState[T]
}

type listState[T any] struct {
	page       int
	sortIdx    int
	sortDir    query.SortDir
	filterIdx  int
	items      []T
	totalItems int
	totalPages int
	selected   int
	loaded     bool
	err        error
}

// NewListView creates a ListView backed by the given params.
func NewListView[T any](p ListViewParams[T]) *ListView[T] {
	env := p.Env.withDefaults()
	lv := &ListView[T]{
		env:       env,
		log:       logging.Component(env.Log, "view").WithField("resource", p.Resource),
		resource:  p.Resource,
		scope:     p.Scope,
		fetch:     p.Fetch,
		columns:   p.Columns,
		sorts:     p.SortFields,
		filter:    p.FilterName,
		filterVal: p.FilterValues,
		actions:   p.Actions,
		topics:    p.Topics,
		lookups:   p.Lookups,
		empty:     p.Empty,
		cellStyle: p.CellStyle,
	}
	lv.state.page = 1
	lv.state.sortDir = p.SortDir
	if lv.state.sortDir == "" {
		lv.state.sortDir = query.Desc
	}
	if lv.empty == "" {
		lv.empty = "Không có dữ liệu."
	}
	return lv
}

// Key returns the cache key of the current page, sort and filter.
func (lv *ListView[T]) Key() query.Key {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.keyLocked()
}

func (lv *ListView[T]) keyLocked() query.Key {
	k := query.Key{
		Resource: lv.resource,
		Scope:    lv.scope,
		Page:     lv.state.page,
		PageSize: lv.env.PageSize,
	}
	if len(lv.sorts) > 0 {
		k.SortField = lv.sorts[lv.state.sortIdx]
		k.SortDir = lv.state.sortDir
	}
	if v := lv.filterValueLocked(); v != "" {
		k.Filters = map[string]string{lv.filter: v}
	}
	return k
}

func (lv *ListView[T]) filterValueLocked() string {
	if lv.filter == "" || len(lv.filterVal) == 0 {
		return ""
	}
	return lv.filterVal[lv.state.filterIdx]
}

func listParams(k query.Key) api.ListParams {
	return api.ListParams{
		Page:    k.Page,
		Entry:   k.PageSize,
		Field:   k.SortField,
		Sort:    string(k.SortDir),
		Filters: k.Filters,
	}
}

// Load fetches the current page through the cache. A newer Load or Unmount
// cancels it, in which case its result is discarded and nil returned.
func (lv *ListView[T]) Load(ctx context.Context) error {
	key := lv.Key()
	ctx, gen, cancel := lv.life.beginLoad(ctx)
	defer cancel()

	page, err := query.Get(ctx, lv.env.Cache, key, lv.env.StaleTTL, func(ctx context.Context) (api.Page[T], error) {
		return lv.fetch(ctx, listParams(key))
	})
	if !lv.life.current(gen) {
		return nil
	}

	lv.mu.Lock()
	defer lv.mu.Unlock()
	if err != nil {
		lv.state.err = err
		lv.log.WithError(err).WithField("key", key.String()).Warn("load failed")
		return err
	}
	lv.state.err = nil
	lv.state.items = page.Items
	lv.state.totalItems = page.TotalItems
	lv.state.totalPages = page.TotalPages
	lv.state.loaded = true
	if lv.state.selected >= len(page.Items) {
		lv.state.selected = len(page.Items) - 1
	}
	if lv.state.selected < 0 && len(page.Items) > 0 {
		lv.state.selected = 0
	}
	return nil
}

// Loaded reports whether data has been successfully fetched.
func (lv *ListView[T]) Loaded() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.state.loaded
}

// Stale reports whether the current page is missing from the cache, older
// than the stale TTL or invalidated.
func (lv *ListView[T]) Stale() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if !lv.state.loaded {
		return true
	}
	return !lv.env.Cache.Fresh(lv.keyLocked(), lv.env.StaleTTL)
}

// Err returns the error of the last load, if it failed.
func (lv *ListView[T]) Err() error {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.state.err
}

// Items returns the rows of the current page.
func (lv *ListView[T]) Items() []T {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	return lv.state.items
}

// ItemCount returns the number of rows on the current page.
func (lv *ListView[T]) ItemCount() int {
	return len(lv.Items())
}

// Selected returns the selected row index, or -1.
func (lv *ListView[T]) Selected() int {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if len(lv.state.items) == 0 {
		return -1
	}
	return lv.state.selected
}

// Prefixes implements View.
func (lv *ListView[T]) Prefixes() []query.Prefix {
	return []query.Prefix{query.Resource(lv.resource, lv.scope)}
}

// Mount starts listening on the view's bus topics.
func (lv *ListView[T]) Mount(ctx context.Context) {
	life, ok := lv.life.start(ctx)
	if !ok || lv.env.Bus == nil || len(lv.topics) == 0 {
		return
	}
	go watch(life, lv.env.Bus.Subscribe(lv.topics...), lv.apply)
}

// Unmount cancels requests, lookups and subscriptions.
func (lv *ListView[T]) Unmount() {
	lv.life.stop()
	for _, r := range lv.lookups {
		r.Reset()
	}
}

// apply reacts to a bus event: the view's resource is invalidated at once,
// refetched after the settle delay, and the event described to the user.
func (lv *ListView[T]) apply(ctx context.Context, ev bus.Event) {
	lv.log.WithFields(logrus.Fields{"topic": ev.Topic, "type": ev.Detail.Type}).Debug("bus event")
	lv.env.Cache.InvalidatePrefix(query.Resource(lv.resource))
	if !settle(ctx, lv.env.SettleDelay) {
		return
	}
	// Anything fetched during the delay predates the commit.
	lv.env.Cache.InvalidatePrefix(query.Resource(lv.resource))
	if err := lv.Load(ctx); err != nil {
		lv.env.post(ViewUpdated{})
		return
	}
	if ev.Detail.Message != "" {
		lv.env.Notifier.Show(ev.Detail.Message, notify.Info)
	}
	lv.env.post(ViewUpdated{})
}

// Move changes the selection by delta rows, clamped to the page.
func (lv *ListView[T]) Move(delta int) {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	n := len(lv.state.items)
	if n == 0 {
		return
	}
	lv.state.selected = min(max(lv.state.selected+delta, 0), n-1)
}

// NextPage advances one page. It returns false on the last page.
func (lv *ListView[T]) NextPage() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if lv.state.page >= lv.state.totalPages {
		return false
	}
	lv.state.page++
	lv.state.selected = 0
	return true
}

// PrevPage goes back one page. It returns false on the first page.
func (lv *ListView[T]) PrevPage() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if lv.state.page <= 1 {
		return false
	}
	lv.state.page--
	lv.state.selected = 0
	return true
}

// CycleSort moves to the next sort field and resets to the first page.
func (lv *ListView[T]) CycleSort() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if len(lv.sorts) < 2 {
		return false
	}
	lv.state.sortIdx = (lv.state.sortIdx + 1) % len(lv.sorts)
	lv.state.page = 1
	return true
}

// ToggleSortDir flips the sort direction and resets to the first page.
func (lv *ListView[T]) ToggleSortDir() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if len(lv.sorts) == 0 {
		return false
	}
	lv.state.sortDir = lv.state.sortDir.Toggle()
	lv.state.page = 1
	return true
}

// CycleFilter moves to the next filter value and resets to the first page.
func (lv *ListView[T]) CycleFilter() bool {
	lv.mu.Lock()
	defer lv.mu.Unlock()
	if lv.filter == "" || len(lv.filterVal) < 2 {
		return false
	}
	lv.state.filterIdx = (lv.state.filterIdx + 1) % len(lv.filterVal)
	lv.state.page = 1
	lv.state.selected = 0
	return true
}

// Do runs the action bound to key on the selected row and blocks until the
// mutation, its invalidations, bus events and notification are done. Any
// failure is shown as a single danger notification.
func (lv *ListView[T]) Do(ctx context.Context, key rune) error {
	act, item, ok := lv.actionFor(key)
	if !ok {
		return ErrNoSelection
	}

	var out Outcome
	prefixes := append([]query.Prefix{query.Resource(lv.resource)}, act.Invalidate...)
	err := query.Mutate(ctx, lv.env.Cache, func(ctx context.Context) error {
		var err error
		out, err = act.Run(ctx, item)
		return err
	}, prefixes...)
	if err != nil {
		lv.log.WithError(err).WithField("action", string(act.Key)).Warn("action failed")
		lv.env.Notifier.Show(ErrorMessage(err), notify.Danger)
		return err
	}

	lv.env.publish(out.Events)
	if out.Message != "" {
		lv.env.Notifier.Show(out.Message, notify.Success)
	}
	return nil
}

func (lv *ListView[T]) actionFor(key rune) (Action[T], T, bool) {
	var zero T
	lv.mu.Lock()
	defer lv.mu.Unlock()
	for _, a := range lv.actions {
		if a.Key != key {
			continue
		}
		if lv.state.selected < 0 || lv.state.selected >= len(lv.state.items) {
			return a, zero, false
		}
		item := lv.state.items[lv.state.selected]
		if a.Allowed != nil && !a.Allowed(item) {
			return a, zero, false
		}
		return a, item, true
	}
	return Action[T]{}, zero, false
}

func (lv *ListView[T]) hasAction(key rune) bool {
	for _, a := range lv.actions {
		if a.Key == key {
			return true
		}
	}
	return false
}

// reload refetches in the background and wakes the UI when done.
func (lv *ListView[T]) reload() {
	ctx := lv.life.context()
	go func() {
		_ = lv.Load(ctx)
		lv.env.post(ViewUpdated{})
	}()
}

func (lv *ListView[T]) hint() string {
	parts := []string{"n/p trang"}
	if len(lv.sorts) > 1 {
		parts = append(parts, "s sắp xếp")
	}
	if len(lv.sorts) > 0 {
		parts = append(parts, "o chiều")
	}
	if lv.filter != "" && len(lv.filterVal) > 1 {
		parts = append(parts, "f lọc")
	}
	for _, a := range lv.actions {
		parts = append(parts, fmt.Sprintf("%c %s", a.Key, a.Hint))
	}
	return strings.Join(parts, "  ")
}

// Draw renders the table and pager, or a loading or error state if no data
// has arrived.
func (lv *ListView[T]) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	lv.mu.Lock()
	loaded, loadErr := lv.state.loaded, lv.state.err
	items := lv.state.items
	selected := lv.state.selected
	pager := &widgets.Pager{
		Page:       lv.state.page,
		TotalPages: lv.state.totalPages,
		TotalItems: lv.state.totalItems,
		Filter:     lv.filterValueLocked(),
		Hint:       lv.hint(),
	}
	if len(lv.sorts) > 0 {
		pager.SortField = lv.sorts[lv.state.sortIdx]
		pager.SortDesc = lv.state.sortDir == query.Desc
	}
	lv.mu.Unlock()

	if !loaded {
		if loadErr != nil {
			return drawErrorState(ctx, lv, loadErr)
		}
		return drawLoadingState(ctx, lv)
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, lv)

	cols := make([]widgets.TableColumn, len(lv.columns))
	for i, c := range lv.columns {
		cols[i] = c.TableColumn
	}
	rows := make([][]string, len(items))
	for r, item := range items {
		cells := make([]string, len(lv.columns))
		for i, c := range lv.columns {
			cells[i] = c.Value(item)
		}
		rows[r] = cells
	}
	table := &widgets.Table{
		Columns:  cols,
		Rows:     rows,
		Selected: selected,
		Gap:      2,
		Empty:    lv.empty,
	}
	if lv.cellStyle != nil {
		table.CellStyle = func(row, col int, _ string) (vaxis.Style, bool) {
			return lv.cellStyle(items[row], col)
		}
	}

	tableHeight := ctx.Max.Height
	if tableHeight > 0 {
		tableHeight--
	}
	tableSurf, err := table.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: tableHeight}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, tableSurf)

	if ctx.Max.Height > 0 {
		pagerSurf, err := pager.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, int(ctx.Max.Height)-1, pagerSurf)
	}
	return s, nil
}

// HandleEvent handles navigation, paging, sorting, filtering and row
// actions.
func (lv *ListView[T]) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	key, ok := ev.(vaxis.Key)
	if !ok {
		return nil, nil
	}
	switch {
	case key.Matches('j'), key.Matches(vaxis.KeyDown):
		lv.Move(1)
	case key.Matches('k'), key.Matches(vaxis.KeyUp):
		lv.Move(-1)
	case key.Matches('n'), key.Matches(vaxis.KeyPgDown):
		if lv.NextPage() {
			lv.reload()
		}
	case key.Matches('p'), key.Matches(vaxis.KeyPgUp):
		if lv.PrevPage() {
			lv.reload()
		}
	case key.Matches('s'):
		if lv.CycleSort() {
			lv.reload()
		}
	case key.Matches('o'):
		if lv.ToggleSortDir() {
			lv.reload()
		}
	case key.Matches('f'):
		if lv.CycleFilter() {
			lv.reload()
		}
	default:
		if key.Modifiers != 0 || !lv.hasAction(key.Keycode) {
			return nil, nil
		}
		r := key.Keycode
		ctx := lv.life.context()
		go func() {
			_ = lv.Do(ctx, r)
			lv.env.post(ViewUpdated{})
		}()
	}
	return vxfw.ConsumeAndRedraw(), nil
}
