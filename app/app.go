package app

import (
	"context"
	"sync"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/richtext"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/deevus/carbon-tui/internal"
	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/bus"
	"github.com/deevus/carbon-tui/internal/logging"
	"github.com/deevus/carbon-tui/internal/notify"
	"github.com/deevus/carbon-tui/internal/query"
	"github.com/deevus/carbon-tui/views"
	"github.com/deevus/carbon-tui/widgets"
)

// Connected is posted when the background connection succeeds.
type Connected struct {
	Services *internal.Services
}

// ConnectFailed is posted when the background connection fails.
type ConnectFailed struct {
	Err error
}

// Invalidated is posted after a cache prefix was invalidated.
type Invalidated struct {
	Prefix query.Prefix
}

// NotificationChanged is posted whenever the notification slot changes.
type NotificationChanged struct {
	notify.Snapshot
}

// RefreshTick is posted by the refresh schedule.
type RefreshTick struct{}

// Params holds configuration for creating an App.
type Params struct {
	// Services, when set, starts the app connected.
	Services   *internal.Services
	ServerName string
	Role       api.Role
	UserID     string
	StaleTTL   time.Duration
	PageSize   int
	// SettleDelay is how long views wait after a bus event before refetching.
	SettleDelay time.Duration
	// Connect is called in the background on Init when Services is nil.
	Connect func(ctx context.Context) (*internal.Services, error)

	Cache    *query.Cache
	Bus      *bus.Bus
	Notifier *notify.Coordinator
	// RefreshSchedule is a cron spec for refreshing the active view.
	RefreshSchedule string
	Log             logrus.FieldLogger
}

// App is the root vxfw widget for carbon-tui.
type App struct {
	serverName string
	role       api.Role
	userID     string
	staleTTL   time.Duration
	pageSize   int
	settle     time.Duration
	connectFn  func(ctx context.Context) (*internal.Services, error)
	schedule   string
	logger     logrus.FieldLogger
	log        *logrus.Entry

	cache    *query.Cache
	bus      *bus.Bus
	notifier *notify.Coordinator

	ctx    context.Context
	cancel context.CancelFunc

	services   *internal.Services
	connectErr error
	tabBar     *widgets.TabBar
	tabs       []views.Tab
	started    bool
	mounted    int
	reloading  map[int]bool
	pending    map[int]bool
	cron       *cron.Cron
	unlisten   func()

	mu        sync.Mutex
	postEvent func(vaxis.Event)
}

// New creates the root App widget. With Services set the tabs are built
// immediately; otherwise the app shows a connecting screen until Connect
// succeeds.
func New(p Params) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		serverName: p.ServerName,
		role:       p.Role,
		userID:     p.UserID,
		staleTTL:   p.StaleTTL,
		pageSize:   p.PageSize,
		settle:     p.SettleDelay,
		connectFn:  p.Connect,
		schedule:   p.RefreshSchedule,
		logger:     p.Log,
		log:        logging.Component(p.Log, "app"),
		cache:      p.Cache,
		bus:        p.Bus,
		notifier:   p.Notifier,
		ctx:        ctx,
		cancel:     cancel,
		tabBar:     widgets.NewTabBar(views.TabLabels(p.Role)),
		mounted:    -1,
		reloading:  make(map[int]bool),
		pending:    make(map[int]bool),
	}
	if a.cache == nil {
		a.cache = query.New(p.Log)
	}
	if a.bus == nil {
		a.bus = bus.New(0, p.Log)
	}
	if a.notifier == nil {
		a.notifier = notify.New(notify.Options{Log: p.Log})
	}
	a.tabBar.Right = p.ServerName + " · " + views.RoleLabel(p.Role)

	a.unlisten = a.cache.OnInvalidate(func(pfx query.Prefix) {
		a.post(Invalidated{Prefix: pfx})
	})
	a.notifier.SetOnChange(func(s notify.Snapshot) {
		a.post(NotificationChanged{Snapshot: s})
	})

	if p.Services != nil {
		a.setServices(p.Services)
	}
	return a
}

// SetPostEvent sets the function used to post events to the vaxis event loop.
// Must be called before LoadAll.
func (a *App) SetPostEvent(fn func(vaxis.Event)) {
	a.mu.Lock()
	a.postEvent = fn
	a.mu.Unlock()
}

func (a *App) post(ev vaxis.Event) {
	a.mu.Lock()
	fn := a.postEvent
	a.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// IsConnected reports whether services are available.
func (a *App) IsConnected() bool {
	return a.services != nil
}

// ActiveTab returns the current tab index.
func (a *App) ActiveTab() int {
	return a.tabBar.Active()
}

// SetTab switches to the given tab index.
func (a *App) SetTab(i int) {
	a.tabBar.SetActive(i)
	a.remount()
}

// ServerName returns the connected profile name.
func (a *App) ServerName() string {
	return a.serverName
}

// Notifier returns the notification coordinator shared by all views.
func (a *App) Notifier() *notify.Coordinator {
	return a.notifier
}

func (a *App) setServices(svc *internal.Services) {
	a.services = svc
	a.connectErr = nil
	a.tabs = views.Tabs(a.role, views.Deps{
		Env: views.Env{
			Cache:       a.cache,
			Bus:         a.bus,
			Notifier:    a.notifier,
			StaleTTL:    a.staleTTL,
			PageSize:    a.pageSize,
			SettleDelay: a.settle,
			PostEvent:   a.post,
			Log:         a.logger,
		},
		Services: svc,
		UserID:   a.userID,
	})
	labels := make([]string, len(a.tabs))
	for i, t := range a.tabs {
		labels[i] = t.Label
	}
	a.tabBar.SetLabels(labels)
}

// start mounts the active view, starts the refresh schedule and loads every
// tab.
func (a *App) start() {
	if a.started {
		return
	}
	a.started = true
	a.remount()
	a.startSchedule()
	a.LoadAll(a.ctx)
}

func (a *App) startSchedule() {
	if a.schedule == "" {
		return
	}
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.schedule, func() { a.post(RefreshTick{}) }); err != nil {
		a.log.WithError(err).WithField("schedule", a.schedule).Warn("invalid refresh schedule")
		a.cron = nil
		return
	}
	a.cron.Start()
}

// remount moves the mounted lifetime to the active tab.
func (a *App) remount() {
	if !a.started || !a.IsConnected() {
		return
	}
	active := a.tabBar.Active()
	if active == a.mounted {
		return
	}
	if a.mounted >= 0 && a.mounted < len(a.tabs) {
		a.tabs[a.mounted].View.Unmount()
	}
	a.mounted = active
	a.tabs[active].View.Mount(a.ctx)
}

// Close stops the schedule, unmounts the active view and cancels requests.
func (a *App) Close() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.mounted >= 0 && a.mounted < len(a.tabs) {
		a.tabs[a.mounted].View.Unmount()
	}
	a.mounted = -1
	a.unlisten()
	a.cancel()
}

// LoadAll loads data for all views in parallel using goroutines.
// Each view posts a ViewLoaded event when done.
func (a *App) LoadAll(ctx context.Context) {
	if !a.IsConnected() {
		return
	}
	for i, tab := range a.tabs {
		go func(i int, v views.View) {
			err := v.Load(ctx)
			a.post(views.ViewLoaded{Tab: i, Err: err})
		}(i, tab.View)
	}
}

// LoadActiveView fetches data for the currently active view.
func (a *App) LoadActiveView(ctx context.Context) error {
	v := a.activeView()
	if v == nil {
		return nil
	}
	return v.Load(ctx)
}

func (a *App) activeView() views.View {
	if !a.IsConnected() || len(a.tabs) == 0 {
		return nil
	}
	return a.tabs[a.tabBar.Active()].View
}

// reload refetches the active view in the background. Requests for a tab
// already reloading are coalesced into one more reload once its ViewLoaded
// arrives.
func (a *App) reload() {
	v := a.activeView()
	if v == nil {
		return
	}
	tab := a.tabBar.Active()
	if a.reloading[tab] {
		a.pending[tab] = true
		return
	}
	a.reloading[tab] = true
	go func() {
		err := v.Load(a.ctx)
		a.post(views.ViewLoaded{Tab: tab, Err: err})
	}()
}

// refetchIfStale reloads the active view's data if it has become stale.
func (a *App) refetchIfStale() {
	if v := a.activeView(); v != nil && v.Stale() {
		a.reload()
	}
}

// refresh invalidates everything the active view reads and refetches it.
func (a *App) refresh() {
	v := a.activeView()
	if v == nil {
		return
	}
	for _, p := range v.Prefixes() {
		a.cache.InvalidatePrefix(p)
	}
	a.reload()
}

func (a *App) connect() {
	go func() {
		svc, err := a.connectFn(a.ctx)
		if err != nil {
			a.post(ConnectFailed{Err: err})
			return
		}
		a.post(Connected{Services: svc})
	}()
}

// Draw renders the tab bar, the notification and the active view.
func (a *App) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, a)

	// Tab bar (1 row)
	tabCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1})
	tabSurf, err := a.tabBar.Draw(tabCtx)
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, tabSurf)
	if ctx.Max.Height <= 1 {
		return s, nil
	}

	alert := widgets.AlertFrom(a.notifier.Current())
	top := uint16(1)
	if !alert.Toast && alert.Height() > 0 {
		alertSurf, err := alert.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: alert.Height()}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, int(top), alertSurf)
		top += alertSurf.Size.Height
	}
	if top >= ctx.Max.Height {
		return s, nil
	}

	// Active view (remaining space)
	viewCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: ctx.Max.Height - top})
	var viewSurf vxfw.Surface
	if v := a.activeView(); v != nil {
		viewSurf, err = v.Draw(viewCtx)
	} else {
		viewSurf, err = a.drawStatus(viewCtx)
	}
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, int(top), viewSurf)

	if alert.Toast && alert.Height() > 0 {
		alertSurf, err := alert.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: alert.Height()}))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(int(ctx.Max.Width-alertSurf.Size.Width), 1, alertSurf)
	}
	return s, nil
}

// drawStatus renders the connecting or connection-failed screen.
func (a *App) drawStatus(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	seg := vaxis.Segment{Text: " Đang kết nối tới " + a.serverName + "...", Style: vaxis.Style{Attribute: vaxis.AttrDim}}
	if a.connectErr != nil {
		seg = vaxis.Segment{
			Text:  " Không thể kết nối tới " + a.serverName + ": " + views.ErrorMessage(a.connectErr),
			Style: vaxis.Style{Foreground: vaxis.IndexColor(1)},
		}
	}
	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, a)
	text := richtext.New([]vaxis.Segment{seg})
	surf, err := text.Draw(ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: 1}))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, 0, surf)
	return s, nil
}

// CaptureEvent handles global keybindings before views process them.
func (a *App) CaptureEvent(ev vaxis.Event) (vxfw.Command, error) {
	key, ok := ev.(vaxis.Key)
	if !ok {
		return nil, nil
	}
	switch {
	case key.Matches('q'), key.Matches('c', vaxis.ModCtrl):
		return vxfw.QuitCmd{}, nil
	case key.Matches(vaxis.KeyEsc):
		if a.notifier.Dismiss() {
			return vxfw.ConsumeAndRedraw(), nil
		}
		return nil, nil
	}
	if !a.IsConnected() {
		return nil, nil
	}

	prev := a.tabBar.Active()
	switch {
	case key.Matches('r'):
		a.refresh()
		return vxfw.ConsumeAndRedraw(), nil
	case key.Matches(vaxis.KeyTab):
		a.tabBar.Next()
	case key.Matches(vaxis.KeyTab, vaxis.ModShift):
		a.tabBar.Prev()
	case key.Modifiers == 0 && key.Keycode >= '1' && key.Keycode <= '9':
		i := int(key.Keycode - '1')
		if i >= a.tabBar.Len() {
			return nil, nil
		}
		a.tabBar.SetActive(i)
	default:
		return nil, nil
	}
	if a.tabBar.Active() != prev {
		a.remount()
		a.refetchIfStale()
	}
	return vxfw.ConsumeAndRedraw(), nil
}

// HandleEvent delegates to the active view, and handles custom events.
func (a *App) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	switch ev := ev.(type) {
	case vxfw.Init:
		if a.IsConnected() {
			a.start()
			return nil, nil
		}
		if a.connectFn != nil {
			a.connect()
		}
		return nil, nil
	case Connected:
		a.log.WithField("profile", a.serverName).Info("connected")
		a.setServices(ev.Services)
		a.start()
		return vxfw.RedrawCmd{}, nil
	case ConnectFailed:
		a.log.WithError(ev.Err).WithField("profile", a.serverName).Error("connect failed")
		a.connectErr = ev.Err
		return vxfw.RedrawCmd{}, nil
	case views.ViewLoaded:
		delete(a.reloading, ev.Tab)
		if ev.Err != nil {
			a.log.WithError(ev.Err).WithField("tab", ev.Tab).Warn("error loading tab")
		}
		if a.pending[ev.Tab] {
			delete(a.pending, ev.Tab)
			if ev.Tab == a.tabBar.Active() {
				a.reload()
			}
		}
		return vxfw.RedrawCmd{}, nil
	case views.ViewUpdated, NotificationChanged:
		return vxfw.RedrawCmd{}, nil
	case Invalidated:
		if v := a.activeView(); v != nil && views.Affected(v, ev.Prefix) {
			a.reload()
		}
		return nil, nil
	case RefreshTick:
		a.refresh()
		return vxfw.RedrawCmd{}, nil
	default:
		if v := a.activeView(); v != nil {
			return v.HandleEvent(ev, phase)
		}
	}
	return nil, nil
}
