package views_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"github.com/shopspring/decimal"

	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/bus"
	"github.com/deevus/carbon-tui/internal/notify"
	"github.com/deevus/carbon-tui/views"
)

const testOwner = "owner-1234-5678"

func testWallet(credits string) *api.Wallet {
	return &api.Wallet{
		OwnerID:       testOwner,
		Balance:       decimal.NewFromInt(1500000),
		CreditBalance: decimal.RequireFromString(credits),
		ListedCredits: decimal.NewFromInt(10),
		UpdatedAt:     time.Now().Add(-5 * time.Minute),
	}
}

func testAuditRecords() []api.AuditRecord {
	now := time.Now()
	return []api.AuditRecord{
		{ID: "a3", OwnerID: testOwner, Type: api.AuditWallet, Action: api.ActionWithdraw, Amount: decimal.NewFromInt(-200), BalanceAfter: decimal.NewFromInt(800), CreatedAt: now},
		{ID: "a2", OwnerID: testOwner, Type: api.AuditCarbonCredit, Action: api.ActionCreditTopUp, Amount: decimal.NewFromInt(40), BalanceAfter: decimal.NewFromInt(40), CreatedAt: now.Add(-time.Hour)},
		{ID: "a1", OwnerID: testOwner, Type: api.AuditWallet, Action: api.ActionDeposit, Amount: decimal.NewFromInt(1000), BalanceAfter: decimal.NewFromInt(1000), CreatedAt: now.Add(-2 * time.Hour)},
	}
}

type walletFixture struct {
	wallets     *api.MockWalletService
	audit       *api.MockAuditService
	walletCalls atomic.Int32
	auditCalls  atomic.Int32
	credits     atomic.Value
	auditParams atomic.Value
}

func newWalletFixture() *walletFixture {
	f := &walletFixture{}
	f.credits.Store("40")
	f.wallets = &api.MockWalletService{
		GetFunc: func(ctx context.Context, ownerID string) (*api.Wallet, error) {
			f.walletCalls.Add(1)
			return testWallet(f.credits.Load().(string)), nil
		},
	}
	f.audit = &api.MockAuditService{
		ListFunc: func(ctx context.Context, p api.ListParams) (api.Page[api.AuditRecord], error) {
			f.auditCalls.Add(1)
			f.auditParams.Store(p)
			return api.Page[api.AuditRecord]{Items: testAuditRecords(), Page: 1, TotalPages: 1, TotalItems: 3}, nil
		},
	}
	return f
}

func (f *walletFixture) view(env views.Env) *views.WalletView {
	if env.StaleTTL == 0 {
		env.StaleTTL = 30 * time.Second
	}
	return views.NewWalletView(views.WalletViewParams{
		Env:     env,
		Wallets: f.wallets,
		Audit:   f.audit,
		OwnerID: testOwner,
		History: 10,
	})
}

func TestWalletView_Load(t *testing.T) {
	f := newWalletFixture()
	wv := f.view(views.Env{})

	if err := wv.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !wv.Loaded() {
		t.Error("expected Loaded()=true")
	}
	if got := wv.Wallet().CreditBalance.String(); got != "40" {
		t.Errorf("expected 40 credits, got %s", got)
	}
	if len(wv.Records()) != 3 {
		t.Errorf("expected 3 audit records, got %d", len(wv.Records()))
	}

	p := f.auditParams.Load().(api.ListParams)
	if p.Filters["ownerId"] != testOwner || p.Entry != 10 || p.Field != "createdAt" || p.Sort != "desc" {
		t.Errorf("unexpected audit params %+v", p)
	}
}

func TestWalletView_Load_Parallel(t *testing.T) {
	f := newWalletFixture()
	var inFlight, peak atomic.Int32
	track := func() func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		return func() { inFlight.Add(-1) }
	}
	f.wallets.GetFunc = func(ctx context.Context, ownerID string) (*api.Wallet, error) {
		defer track()()
		return testWallet("1"), nil
	}
	f.audit.ListFunc = func(ctx context.Context, p api.ListParams) (api.Page[api.AuditRecord], error) {
		defer track()()
		return api.Page[api.AuditRecord]{}, nil
	}

	if err := f.view(views.Env{}).Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if peak.Load() != 2 {
		t.Errorf("expected both requests in flight together, peak was %d", peak.Load())
	}
}

func TestWalletView_Load_Error(t *testing.T) {
	f := newWalletFixture()
	f.wallets.GetFunc = func(ctx context.Context, ownerID string) (*api.Wallet, error) {
		return nil, &api.APIError{Status: 404, Kind: api.KindNotFound}
	}
	wv := f.view(views.Env{})

	err := wv.Load(context.Background())
	if api.KindOf(err) != api.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if wv.Loaded() {
		t.Error("expected Loaded()=false")
	}

	s, derr := wv.Draw(testDrawContext(80, 10))
	if derr != nil {
		t.Fatalf("unexpected draw error: %v", derr)
	}
	if !strings.Contains(screenText(s), "Không tìm thấy dữ liệu yêu cầu.") {
		t.Errorf("expected not-found message, got %q", screenText(s))
	}
}

func TestWalletView_Stale(t *testing.T) {
	f := newWalletFixture()
	wv := f.view(views.Env{})
	if !wv.Stale() {
		t.Error("expected Stale()=true before load")
	}
	_ = wv.Load(context.Background())
	if wv.Stale() {
		t.Error("expected Stale()=false after load")
	}
}

func TestWalletView_BalanceSeries(t *testing.T) {
	f := newWalletFixture()
	wv := f.view(views.Env{})
	_ = wv.Load(context.Background())

	s, err := wv.Draw(testDrawContext(120, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := screen(s)
	if !strings.Contains(rows[0], "Tín chỉ 40 ") {
		t.Errorf("expected credit balance in header, got %q", rows[0])
	}
	if !strings.Contains(rows[1], "Niêm yết") || !strings.Contains(rows[1], "10 / 40 tín chỉ") {
		t.Errorf("unexpected gauge row %q", rows[1])
	}
	if !strings.HasPrefix(rows[2], " Số dư") {
		t.Errorf("expected balance sparkline row, got %q", rows[2])
	}
	if !strings.Contains(screenText(s), "THỜI GIAN") {
		t.Error("expected audit table header")
	}
	if !strings.Contains(screenText(s), "WITHDRAW") {
		t.Error("expected audit rows to be drawn")
	}
}

func TestWalletView_Draw_Loading(t *testing.T) {
	wv := newWalletFixture().view(views.Env{})
	s, err := wv.Draw(testDrawContext(60, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(screenText(s), views.LoadingText) {
		t.Errorf("expected loading text, got %q", screenText(s))
	}
}

// A credit issued for this owner refetches the wallet after the settle delay
// and tells the owner the new balance.
func TestWalletView_CreditIssuedRefetchesAndNotifies(t *testing.T) {
	f := newWalletFixture()
	b := bus.New(0, nil)
	notifier := notify.New(notify.Options{})
	updated := make(chan struct{}, 4)
	wv := f.view(views.Env{
		Bus:         b,
		Notifier:    notifier,
		SettleDelay: 10 * time.Millisecond,
		PostEvent: func(ev vaxis.Event) {
			if _, ok := ev.(views.ViewUpdated); ok {
				updated <- struct{}{}
			}
		},
	})
	_ = wv.Load(context.Background())
	wv.Mount(context.Background())
	defer wv.Unmount()

	f.credits.Store("42.5")
	balance := decimal.RequireFromString("42.5")
	b.Publish(bus.WalletUpdated, bus.Detail{Type: bus.CreditIssued, OwnerID: testOwner, NewBalance: &balance})

	select {
	case <-updated:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for wallet refetch")
	}
	if f.walletCalls.Load() != 2 {
		t.Errorf("expected the wallet to be fetched twice, got %d", f.walletCalls.Load())
	}
	if got := wv.Wallet().CreditBalance.String(); got != "42.5" {
		t.Errorf("expected refreshed balance 42.5, got %s", got)
	}
	got := notifier.Current()
	if !strings.Contains(got.Message, "42.5") || got.Variant != notify.Success {
		t.Errorf("unexpected notification %+v", got)
	}
}

func TestWalletView_IgnoresOtherOwners(t *testing.T) {
	f := newWalletFixture()
	b := bus.New(0, nil)
	notifier := notify.New(notify.Options{})
	wv := f.view(views.Env{Bus: b, Notifier: notifier, SettleDelay: time.Millisecond})
	_ = wv.Load(context.Background())
	wv.Mount(context.Background())
	defer wv.Unmount()

	b.Publish(bus.WalletUpdated, bus.Detail{Type: bus.BalanceChanged, OwnerID: "someone-else"})
	time.Sleep(50 * time.Millisecond)

	if f.walletCalls.Load() != 1 {
		t.Errorf("expected no refetch for another owner, got %d fetches", f.walletCalls.Load())
	}
	if notifier.Current().Shown() {
		t.Error("expected no notification for another owner")
	}
}

func TestWalletView_UnmountEndsSubscription(t *testing.T) {
	b := bus.New(0, nil)
	wv := newWalletFixture().view(views.Env{Bus: b})

	wv.Mount(context.Background())
	if b.Subscribers(bus.WalletUpdated) != 1 {
		t.Fatal("expected one subscriber while mounted")
	}
	wv.Unmount()
	waitFor(t, time.Second, "unsubscribe", func() bool { return b.Subscribers(bus.WalletUpdated) == 0 })

	wv.Mount(context.Background())
	defer wv.Unmount()
	if b.Subscribers(bus.WalletUpdated) != 1 {
		t.Error("expected remount to subscribe again")
	}
}

func TestWalletView_UnmountDiscardsLoad(t *testing.T) {
	f := newWalletFixture()
	started := make(chan struct{})
	f.wallets.GetFunc = func(ctx context.Context, ownerID string) (*api.Wallet, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	wv := f.view(views.Env{})
	wv.Mount(context.Background())

	done := make(chan error, 1)
	go func() { done <- wv.Load(context.Background()) }()
	<-started
	wv.Unmount()

	if err := <-done; err != nil {
		t.Errorf("expected nil from a discarded load, got %v", err)
	}
	if wv.Loaded() {
		t.Error("expected Loaded()=false")
	}
}

func TestWalletMessage(t *testing.T) {
	balance := decimal.RequireFromString("42.5")
	tests := []struct {
		name   string
		detail bus.Detail
		want   string
	}{
		{"credit issued", bus.Detail{Type: bus.CreditIssued, NewBalance: &balance}, "Tín chỉ carbon đã được cấp. Số dư tín chỉ mới: 42.5"},
		{"credit issued without balance", bus.Detail{Type: bus.CreditIssued}, "Tín chỉ carbon đã được cấp."},
		{"balance changed", bus.Detail{Type: bus.BalanceChanged, NewBalance: &balance}, "Số dư ví đã thay đổi: 42.5"},
		{"listing canceled", bus.Detail{Type: bus.ListingCanceled}, "Niêm yết đã được hủy, tín chỉ đã trở lại ví."},
		{"custom message", bus.Detail{Type: bus.BalanceChanged, Message: "Đã nạp tiền"}, "Đã nạp tiền"},
		{"fallback", bus.Detail{}, "Ví của bạn đã được cập nhật."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := views.WalletMessage(tt.detail); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestWalletView_LoadWrapsErrors(t *testing.T) {
	f := newWalletFixture()
	boom := errors.New("boom")
	f.audit.ListFunc = func(ctx context.Context, p api.ListParams) (api.Page[api.AuditRecord], error) {
		return api.Page[api.AuditRecord]{}, boom
	}
	err := f.view(views.Env{}).Load(context.Background())
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "audit:") {
		t.Errorf("expected wrapped audit error, got %v", err)
	}
}
