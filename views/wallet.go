package views

import (
	"context"
	"fmt"
	"sync"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"git.sr.ht/~rockorager/vaxis/vxfw/list"
	"git.sr.ht/~rockorager/vaxis/vxfw/richtext"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/bus"
	"github.com/deevus/carbon-tui/internal/logging"
	"github.com/deevus/carbon-tui/internal/notify"
	"github.com/deevus/carbon-tui/internal/query"
	"github.com/deevus/carbon-tui/widgets"
)

// DefaultHistory is the number of audit records shown under the wallet.
const DefaultHistory = 30

const (
	walletResource = "wallets"
	auditResource  = "audit"
)

// WalletViewParams holds configuration for creating a WalletView.
type WalletViewParams struct {
	Env
	Wallets api.WalletServiceAPI
	Audit   api.AuditServiceAPI
	OwnerID string
	// History is the number of audit records loaded. Zero selects
	// DefaultHistory.
	History int
}

// WalletView shows an owner's balances, the share of credits listed for
// sale, a balance sparkline and the most recent audit records. While mounted
// it refetches on wallet-updated events.
type WalletView struct {
	env     Env
	log     *logrus.Entry
	wallets api.WalletServiceAPI
	audit   api.AuditServiceAPI
	ownerID string
	history int

	life lifetime

	// Loaded state (protected by mu)
	mu      sync.Mutex
	wallet  *api.Wallet
	records []api.AuditRecord
	balance *widgets.Sparkline
	loaded  bool
	err     error

	auditList list.Dynamic
}

// NewWalletView creates a WalletView backed by the given params.
func NewWalletView(p WalletViewParams) *WalletView {
	env := p.Env.withDefaults()
	wv := &WalletView{
		env:     env,
		log:     logging.Component(env.Log, "view").WithField("resource", walletResource),
		wallets: p.Wallets,
		audit:   p.Audit,
		ownerID: p.OwnerID,
		history: p.History,
		balance: &widgets.Sparkline{Style: vaxis.Style{Foreground: vaxis.IndexColor(6)}},
	}
	if wv.history <= 0 {
		wv.history = DefaultHistory
	}
	wv.auditList.DrawCursor = true
	wv.auditList.Builder = wv.buildAuditItem
	return wv
}

func (wv *WalletView) walletKey() query.Key {
	return query.Key{Resource: walletResource, Scope: wv.ownerID}
}

func (wv *WalletView) auditKey() query.Key {
	return query.Key{
		Resource:  auditResource,
		Scope:     wv.ownerID,
		Page:      1,
		PageSize:  wv.history,
		SortField: "createdAt",
		SortDir:   query.Desc,
	}
}

// Load fetches the wallet and its recent audit trail in parallel.
func (wv *WalletView) Load(ctx context.Context) error {
	ctx, gen, cancel := wv.life.beginLoad(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var wallet *api.Wallet
	var records api.Page[api.AuditRecord]

	g.Go(func() error {
		w, err := query.Get(gctx, wv.env.Cache, wv.walletKey(), wv.env.StaleTTL, func(ctx context.Context) (*api.Wallet, error) {
			return wv.wallets.Get(ctx, wv.ownerID)
		})
		if err != nil {
			return fmt.Errorf("wallet: %w", err)
		}
		wallet = w
		return nil
	})

	g.Go(func() error {
		key := wv.auditKey()
		page, err := query.Get(gctx, wv.env.Cache, key, wv.env.StaleTTL, func(ctx context.Context) (api.Page[api.AuditRecord], error) {
			p := listParams(key)
			p.Filters = map[string]string{"ownerId": wv.ownerID}
			return wv.audit.List(ctx, p)
		})
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		records = page
		return nil
	})

	err := g.Wait()
	if !wv.life.current(gen) {
		return nil
	}

	wv.mu.Lock()
	defer wv.mu.Unlock()
	if err != nil {
		wv.err = err
		wv.log.WithError(err).Warn("load failed")
		return err
	}
	wv.err = nil
	wv.wallet = wallet
	wv.records = records.Items
	wv.balance.Values = balanceSeries(records.Items)
	wv.loaded = true
	return nil
}

// balanceSeries returns wallet balances oldest first from records sorted
// newest first.
func balanceSeries(records []api.AuditRecord) []float64 {
	vals := make([]float64, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Type != api.AuditWallet {
			continue
		}
		vals = append(vals, records[i].BalanceAfter.InexactFloat64())
	}
	return vals
}

// Loaded reports whether data has been successfully fetched.
func (wv *WalletView) Loaded() bool {
	wv.mu.Lock()
	defer wv.mu.Unlock()
	return wv.loaded
}

// Stale reports whether either the wallet or the audit trail needs a refetch.
func (wv *WalletView) Stale() bool {
	if !wv.Loaded() {
		return true
	}
	return !wv.env.Cache.Fresh(wv.walletKey(), wv.env.StaleTTL) ||
		!wv.env.Cache.Fresh(wv.auditKey(), wv.env.StaleTTL)
}

// Wallet returns the loaded wallet, or nil.
func (wv *WalletView) Wallet() *api.Wallet {
	wv.mu.Lock()
	defer wv.mu.Unlock()
	return wv.wallet
}

// Records returns the loaded audit records, newest first.
func (wv *WalletView) Records() []api.AuditRecord {
	wv.mu.Lock()
	defer wv.mu.Unlock()
	return wv.records
}

// Prefixes implements View.
func (wv *WalletView) Prefixes() []query.Prefix {
	return []query.Prefix{
		query.Resource(walletResource, wv.ownerID),
		query.Resource(auditResource, wv.ownerID),
	}
}

// Mount subscribes to wallet-updated events.
func (wv *WalletView) Mount(ctx context.Context) {
	life, ok := wv.life.start(ctx)
	if !ok || wv.env.Bus == nil {
		return
	}
	go watch(life, wv.env.Bus.Subscribe(bus.WalletUpdated), wv.apply)
}

// Unmount cancels the subscription and in-flight requests.
func (wv *WalletView) Unmount() {
	wv.life.stop()
}

func (wv *WalletView) apply(ctx context.Context, ev bus.Event) {
	if ev.Detail.OwnerID != "" && ev.Detail.OwnerID != wv.ownerID {
		return
	}
	wv.log.WithField("type", ev.Detail.Type).Debug("wallet updated")
	wv.invalidate()
	if !settle(ctx, wv.env.SettleDelay) {
		return
	}
	// Anything fetched during the delay predates the commit.
	wv.invalidate()
	if err := wv.Load(ctx); err != nil {
		wv.env.post(ViewUpdated{})
		return
	}
	wv.env.Notifier.Show(WalletMessage(ev.Detail), notify.Success)
	wv.env.post(ViewUpdated{})
}

func (wv *WalletView) invalidate() {
	for _, p := range wv.Prefixes() {
		wv.env.Cache.InvalidatePrefix(p)
	}
}

// WalletMessage describes a wallet-updated event to the owner.
func WalletMessage(d bus.Detail) string {
	switch d.Type {
	case bus.CreditIssued:
		if d.NewBalance != nil {
			return fmt.Sprintf("Tín chỉ carbon đã được cấp. Số dư tín chỉ mới: %s", d.NewBalance.String())
		}
		return "Tín chỉ carbon đã được cấp."
	case bus.BalanceChanged:
		if d.NewBalance != nil {
			return fmt.Sprintf("Số dư ví đã thay đổi: %s", d.NewBalance.String())
		}
	case bus.ListingCanceled:
		return "Niêm yết đã được hủy, tín chỉ đã trở lại ví."
	}
	if d.Message != "" {
		return d.Message
	}
	return "Ví của bạn đã được cập nhật."
}

// Fixed-width columns for the audit table.
var auditCols = []widgets.TableColumn{
	{Title: "THỜI GIAN", Width: 16},
	{Title: "LOẠI", Width: 13},
	{Title: "HÀNH ĐỘNG", Width: 13},
	{Title: "SỐ LƯỢNG", Width: 14, AlignRight: true},
	{Title: "SỐ DƯ SAU", Width: 16, AlignRight: true},
	{Title: "GHI CHÚ", Width: 30},
}

// auditRowCols are auditCols without titles, so each row draws no header.
var auditRowCols = func() []widgets.TableColumn {
	cols := make([]widgets.TableColumn, len(auditCols))
	for i, c := range auditCols {
		c.Title = ""
		cols[i] = c
	}
	return cols
}()

func (wv *WalletView) buildAuditItem(i uint, cursor uint) vxfw.Widget {
	wv.mu.Lock()
	defer wv.mu.Unlock()

	if int(i) >= len(wv.records) {
		return nil
	}
	r := wv.records[i]

	amountStyle := vaxis.Style{Foreground: vaxis.IndexColor(2)}
	if r.Amount.IsNegative() || r.Action == api.ActionWithdraw {
		amountStyle.Foreground = vaxis.IndexColor(1)
	}

	return &widgets.Table{
		Columns: auditRowCols,
		Rows: [][]string{{
			formatTime(r.CreatedAt),
			string(r.Type),
			string(r.Action),
			FormatAmount(r.Amount),
			FormatAmount(r.BalanceAfter),
			r.Note,
		}},
		Selected: -1,
		Gap:      2,
		CellStyle: func(_, col int, _ string) (vaxis.Style, bool) {
			return amountStyle, col == 3
		},
	}
}

// Draw renders the wallet summary and audit list.
func (wv *WalletView) Draw(ctx vxfw.DrawContext) (vxfw.Surface, error) {
	wv.mu.Lock()
	loaded, loadErr, w := wv.loaded, wv.err, wv.wallet
	hasSeries := len(wv.balance.Values) > 0
	wv.mu.Unlock()

	if !loaded {
		if loadErr != nil {
			return drawErrorState(ctx, wv, loadErr)
		}
		return drawLoadingState(ctx, wv)
	}

	if w == nil {
		w = &api.Wallet{OwnerID: wv.ownerID}
	}

	s := vxfw.NewSurface(ctx.Max.Width, ctx.Max.Height, wv)
	row := 0
	one := func(width uint16) vxfw.DrawContext {
		return ctx.WithMax(vxfw.Size{Width: width, Height: 1})
	}

	// === Header row ===
	header := richtext.New([]vaxis.Segment{
		{Text: " Ví " + shortID(w.OwnerID) + "  ", Style: vaxis.Style{Attribute: vaxis.AttrBold}},
		{Text: "Số dư " + FormatAmount(w.Balance) + " ₫  "},
		{Text: "Tín chỉ " + FormatAmount(w.CreditBalance) + "  ", Style: vaxis.Style{Foreground: vaxis.IndexColor(2)}},
		{Text: "cập nhật " + formatRelative(w.UpdatedAt), Style: vaxis.Style{Attribute: vaxis.AttrDim}},
	})
	headerSurf, err := header.Draw(one(ctx.Max.Width))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, row, headerSurf)
	row++

	// === Listed credits gauge ===
	gauge := &widgets.BarGauge{
		Label:      " Niêm yết",
		LabelWidth: 10,
		Used:       w.ListedCredits.InexactFloat64(),
		Total:      w.CreditBalance.InexactFloat64(),
		Suffix:     FormatAmount(w.ListedCredits) + " / " + FormatAmount(w.CreditBalance) + " tín chỉ",
		BarWidth:   20,
	}
	gaugeSurf, err := gauge.Draw(one(ctx.Max.Width))
	if err != nil {
		return vxfw.Surface{}, err
	}
	s.AddChild(0, row, gaugeSurf)
	row++

	// === Balance sparkline ===
	if hasSeries && ctx.Max.Width > 12 {
		label := richtext.New([]vaxis.Segment{{Text: " Số dư", Style: vaxis.Style{Attribute: vaxis.AttrDim}}})
		labelSurf, err := label.Draw(one(11))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, row, labelSurf)

		wv.mu.Lock()
		sparkSurf, sparkErr := wv.balance.Draw(one(min(ctx.Max.Width-12, 60)))
		wv.mu.Unlock()
		if sparkErr == nil {
			s.AddChild(12, row, sparkSurf)
		}
		row++
	}
	row++

	// === Audit table ===
	if row < int(ctx.Max.Height) {
		head := &widgets.Table{Columns: auditCols, Selected: -1, Gap: 2}
		headSurf, err := head.Draw(one(ctx.Max.Width))
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(2, row, headSurf)
		row++
	}
	if row < int(ctx.Max.Height) {
		listCtx := ctx.WithMax(vxfw.Size{Width: ctx.Max.Width, Height: ctx.Max.Height - uint16(row)})
		listSurf, err := wv.auditList.Draw(listCtx)
		if err != nil {
			return vxfw.Surface{}, err
		}
		s.AddChild(0, row, listSurf)
	}

	return s, nil
}

// HandleEvent delegates to the audit list for navigation.
func (wv *WalletView) HandleEvent(ev vaxis.Event, phase vxfw.EventPhase) (vxfw.Command, error) {
	return wv.auditList.HandleEvent(ev, phase)
}
