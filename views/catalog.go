package views

import (
	"context"
	"fmt"
	"maps"

	"git.sr.ht/~rockorager/vaxis"

	"github.com/deevus/carbon-tui/internal"
	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/bus"
	"github.com/deevus/carbon-tui/internal/lookup"
	"github.com/deevus/carbon-tui/internal/query"
	"github.com/deevus/carbon-tui/widgets"
)

// Reasons sent with reject actions.
const (
	VerificationRejectReason = "Dữ liệu hành trình không đủ điều kiện cấp tín chỉ."
	ListingRejectReason      = "Niêm yết vi phạm quy định của sàn."
)

// Scope used for keys that are not narrowed to one user.
const scopeAll = "all"

// Deps holds everything needed to build the tabs of a role.
type Deps struct {
	Env
	Services *internal.Services
	// UserID is the signed-in user; owner-scoped tabs read only their data.
	UserID string
}

// TabLabels returns the tab labels of role in display order. Unknown roles
// get the buyer tabs.
func TabLabels(role api.Role) []string {
	switch role {
	case api.RoleAdmin:
		return []string{"Loại xe", "Người dùng", "Kiểm toán"}
	case api.RoleEVOwner:
		return []string{"Ví", "Phương tiện", "Niêm yết của tôi", "Kiểm toán"}
	case api.RoleCVA:
		return []string{"Xác minh", "Niêm yết", "Giao dịch"}
	}
	return []string{"Thị trường", "Giao dịch", "Ví"}
}

// Tabs builds the views of role. Labels match TabLabels.
func Tabs(role api.Role, d Deps) []Tab {
	d.Env = d.Env.withDefaults()

	var vs []View
	switch role {
	case api.RoleAdmin:
		vs = []View{d.vehicleTypes(), d.users(), d.auditTrail(scopeAll)}
	case api.RoleEVOwner:
		vs = []View{d.wallet(), d.vehicles(), d.ownListings(), d.auditTrail(d.UserID)}
	case api.RoleCVA:
		vs = []View{d.verifications(), d.reviewListings(), d.reviewTransactions()}
	default:
		vs = []View{d.market(), d.purchases(), d.wallet()}
	}

	labels := TabLabels(role)
	tabs := make([]Tab, len(vs))
	for i, v := range vs {
		tabs[i] = Tab{Label: labels[i], View: v}
	}
	return tabs
}

func (d Deps) userLookup() *lookup.Resolver[*api.User] {
	return lookup.New[*api.User](d.Services.Users.Get, lookup.DefaultLimit, func(string) {
		d.post(ViewUpdated{})
	}, d.Log)
}

func withFilter(p api.ListParams, name, value string) api.ListParams {
	f := make(map[string]string, len(p.Filters)+1)
	maps.Copy(f, p.Filters)
	f[name] = value
	p.Filters = f
	return p
}

func statusStyle(status string) vaxis.Style {
	switch status {
	case "ACTIVE", "APPROVED", "COMPLETED", "SOLD":
		return vaxis.Style{Foreground: vaxis.IndexColor(2)}
	case "PENDING", "BIDDING", "PENDING_PAYMENT":
		return vaxis.Style{Foreground: vaxis.IndexColor(3)}
	case "REJECTED", "FAILED", "CANCELED", "EXPIRED":
		return vaxis.Style{Foreground: vaxis.IndexColor(1)}
	}
	return vaxis.Style{Attribute: vaxis.AttrDim}
}

// allThen lists vals after the unfiltered entry, so the view starts unfiltered.
func allThen[S ~string](vals []S) []string {
	out := []string{""}
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

// thenAll lists vals before the unfiltered entry, so the view starts filtered
// by the first value.
func thenAll[S ~string](vals []S) []string {
	return append(allThen(vals)[1:], "")
}

func openListing(l api.Listing) bool {
	return l.Status == api.ListingActive || l.Status == api.ListingBidding
}

// --- admin ---

func (d Deps) vehicleTypes() View {
	svc := d.Services.VehicleTypes
	return NewListView(ListViewParams[api.VehicleType]{
		Env:        d.Env,
		Resource:   "vehicle-types",
		Scope:      scopeAll,
		Fetch:      svc.List,
		SortFields: []string{"manufacturer", "model"},
		SortDir:    query.Asc,
		Columns: []Column[api.VehicleType]{
			{TableColumn: widgets.TableColumn{Title: "HÃNG", Width: 16}, Value: func(v api.VehicleType) string { return v.Manufacturer }},
			{TableColumn: widgets.TableColumn{Title: "MẪU XE", Width: 20}, Value: func(v api.VehicleType) string { return v.Model }},
			{TableColumn: widgets.TableColumn{Title: "PIN (kWh)", Width: 10, AlignRight: true}, Value: func(v api.VehicleType) string { return FormatAmount(v.BatteryCapacityKWh) }},
			{TableColumn: widgets.TableColumn{Title: "HỆ SỐ PHÁT THẢI", Width: 16, AlignRight: true}, Value: func(v api.VehicleType) string { return v.EmissionFactor.String() }},
		},
		Actions: []Action[api.VehicleType]{{
			Key:  'd',
			Hint: "xóa",
			Run: func(ctx context.Context, v api.VehicleType) (Outcome, error) {
				if err := svc.Delete(ctx, v.ID); err != nil {
					return Outcome{}, err
				}
				return Outcome{Message: fmt.Sprintf("Đã xóa loại xe %s %s.", v.Manufacturer, v.Model)}, nil
			},
		}},
	})
}

func (d Deps) users() View {
	svc := d.Services.Users
	return NewListView(ListViewParams[api.User]{
		Env:      d.Env,
		Resource: "users",
		Scope:    scopeAll,
		Fetch: func(ctx context.Context, p api.ListParams) (api.Page[api.User], error) {
			return svc.Search(ctx, "", p)
		},
		SortFields:   []string{"fullName", "email"},
		SortDir:      query.Asc,
		FilterName:   "role",
		FilterValues: allThen(api.Roles),
		Columns: []Column[api.User]{
			{TableColumn: widgets.TableColumn{Title: "HỌ TÊN", Width: 24}, Value: func(u api.User) string { return u.FullName }},
			{TableColumn: widgets.TableColumn{Title: "EMAIL", Width: 28}, Value: func(u api.User) string { return u.Email }},
			{TableColumn: widgets.TableColumn{Title: "ĐIỆN THOẠI", Width: 12}, Value: func(u api.User) string { return u.PhoneNumber }},
			{TableColumn: widgets.TableColumn{Title: "VAI TRÒ", Width: 16}, Value: func(u api.User) string { return RoleLabel(u.Role) }},
		},
	})
}

func (d Deps) auditTrail(scope string) View {
	svc := d.Services.Audit
	fetch := svc.List
	if scope != scopeAll {
		fetch = func(ctx context.Context, p api.ListParams) (api.Page[api.AuditRecord], error) {
			return svc.List(ctx, withFilter(p, "ownerId", scope))
		}
	}
	columns := []Column[api.AuditRecord]{
		{TableColumn: widgets.TableColumn{Title: "THỜI GIAN", Width: 16}, Value: func(r api.AuditRecord) string { return formatTime(r.CreatedAt) }},
		{TableColumn: widgets.TableColumn{Title: "LOẠI", Width: 13}, Value: func(r api.AuditRecord) string { return string(r.Type) }},
		{TableColumn: widgets.TableColumn{Title: "HÀNH ĐỘNG", Width: 13}, Value: func(r api.AuditRecord) string { return string(r.Action) }},
		{TableColumn: widgets.TableColumn{Title: "SỐ LƯỢNG", Width: 14, AlignRight: true}, Value: func(r api.AuditRecord) string { return FormatAmount(r.Amount) }},
		{TableColumn: widgets.TableColumn{Title: "SỐ DƯ SAU", Width: 16, AlignRight: true}, Value: func(r api.AuditRecord) string { return FormatAmount(r.BalanceAfter) }},
		{TableColumn: widgets.TableColumn{Title: "GHI CHÚ", Width: 24}, Value: func(r api.AuditRecord) string { return r.Note }},
	}
	var lookups []Resetter
	if scope == scopeAll {
		names := d.userLookup()
		owner := Column[api.AuditRecord]{
			TableColumn: widgets.TableColumn{Title: "CHỦ SỞ HỮU", Width: 20},
			Value:       func(r api.AuditRecord) string { return names.Text(r.OwnerID, fullName) },
		}
		columns = append([]Column[api.AuditRecord]{columns[0], owner}, columns[1:]...)
		lookups = []Resetter{names}
	}
	return NewListView(ListViewParams[api.AuditRecord]{
		Env:          d.Env,
		Resource:     auditResource,
		Scope:        scope,
		Fetch:        fetch,
		SortFields:   []string{"createdAt", "amount"},
		FilterName:   "action",
		FilterValues: allThen(api.AuditActions),
		Columns:      columns,
		Lookups:      lookups,
		Topics:       []bus.Topic{bus.WalletUpdated},
	})
}

// --- ev_owner ---

func (d Deps) wallet() View {
	return NewWalletView(WalletViewParams{
		Env:     d.Env,
		Wallets: d.Services.Wallets,
		Audit:   d.Services.Audit,
		OwnerID: d.UserID,
	})
}

func (d Deps) vehicles() View {
	svc := d.Services.Vehicles
	owner := d.UserID
	return NewListView(ListViewParams[api.Vehicle]{
		Env:      d.Env,
		Resource: "vehicles",
		Scope:    owner,
		Fetch: func(ctx context.Context, p api.ListParams) (api.Page[api.Vehicle], error) {
			return svc.List(ctx, owner, p)
		},
		SortFields: []string{"licensePlate", "vin"},
		SortDir:    query.Asc,
		Columns: []Column[api.Vehicle]{
			{TableColumn: widgets.TableColumn{Title: "BIỂN SỐ", Width: 12}, Value: func(v api.Vehicle) string { return v.LicensePlate }},
			{TableColumn: widgets.TableColumn{Title: "VIN", Width: 19}, Value: func(v api.Vehicle) string { return v.VIN }},
			{TableColumn: widgets.TableColumn{Title: "LOẠI XE", Width: 10}, Value: func(v api.Vehicle) string { return shortID(v.VehicleTypeID) }},
		},
		Empty: "Chưa có phương tiện. Đăng ký bằng lệnh: carbon-tui vehicle add",
	})
}

func listingColumns(seller func(api.Listing) string) []Column[api.Listing] {
	cols := []Column[api.Listing]{
		{TableColumn: widgets.TableColumn{Title: "NGÀY TẠO", Width: 16}, Value: func(l api.Listing) string { return formatTime(l.CreatedAt) }},
		{TableColumn: widgets.TableColumn{Title: "SỐ LƯỢNG", Width: 12, AlignRight: true}, Value: func(l api.Listing) string { return FormatAmount(l.Quantity) }},
		{TableColumn: widgets.TableColumn{Title: "GIÁ/TÍN CHỈ", Width: 14, AlignRight: true}, Value: func(l api.Listing) string { return FormatAmount(l.PricePerCredit) }},
		{TableColumn: widgets.TableColumn{Title: "HÌNH THỨC", Width: 11}, Value: func(l api.Listing) string { return string(l.Kind) }},
		{TableColumn: widgets.TableColumn{Title: "TRẠNG THÁI", Width: 15}, Value: func(l api.Listing) string { return string(l.Status) }},
		{TableColumn: widgets.TableColumn{Title: "HẾT HẠN", Width: 16}, Value: func(l api.Listing) string { return formatRelative(l.ExpiresAt) }},
	}
	if seller != nil {
		col := Column[api.Listing]{TableColumn: widgets.TableColumn{Title: "NGƯỜI BÁN", Width: 20}, Value: seller}
		cols = append([]Column[api.Listing]{cols[0], col}, cols[1:]...)
	}
	return cols
}

func listingStatusCell(cols []Column[api.Listing]) func(api.Listing, int) (vaxis.Style, bool) {
	idx := -1
	for i, c := range cols {
		if c.Title == "TRẠNG THÁI" {
			idx = i
		}
	}
	return func(l api.Listing, col int) (vaxis.Style, bool) {
		return statusStyle(string(l.Status)), col == idx
	}
}

func (d Deps) ownListings() View {
	svc := d.Services.Listings
	owner := d.UserID
	cols := listingColumns(nil)
	return NewListView(ListViewParams[api.Listing]{
		Env:      d.Env,
		Resource: "listings",
		Scope:    owner,
		Fetch: func(ctx context.Context, p api.ListParams) (api.Page[api.Listing], error) {
			return svc.List(ctx, withFilter(p, "sellerId", owner))
		},
		SortFields:   []string{"createdAt", "pricePerCredit", "quantity"},
		FilterName:   "status",
		FilterValues: allThen(api.ListingStatuses),
		Columns:      cols,
		CellStyle:    listingStatusCell(cols),
		Topics:       []bus.Topic{bus.ListingRejected},
		Actions: []Action[api.Listing]{{
			Key:     'c',
			Hint:    "hủy",
			Allowed: openListing,
			Run: func(ctx context.Context, l api.Listing) (Outcome, error) {
				if err := svc.Cancel(ctx, l.ID); err != nil {
					return Outcome{}, err
				}
				return Outcome{
					Message: fmt.Sprintf("Đã hủy niêm yết %s.", shortID(l.ID)),
					Events: []Publication{{
						Topic:  bus.WalletUpdated,
						Detail: bus.Detail{Type: bus.ListingCanceled, OwnerID: owner, ListingID: l.ID, Status: string(api.ListingCanceled)},
					}},
				}, nil
			},
			Invalidate: []query.Prefix{query.Resource(walletResource), query.Resource(auditResource)},
		}},
	})
}

// --- cva ---

func (d Deps) verifications() View {
	svc := d.Services.Verifications
	names := d.userLookup()
	pending := func(r api.VerificationRequest) bool { return r.Status == api.VerificationPending }
	cols := []Column[api.VerificationRequest]{
		{TableColumn: widgets.TableColumn{Title: "NGÀY GỬI", Width: 16}, Value: func(r api.VerificationRequest) string { return formatTime(r.CreatedAt) }},
		{TableColumn: widgets.TableColumn{Title: "CHỦ XE", Width: 20}, Value: func(r api.VerificationRequest) string { return names.Text(r.OwnerID, fullName) }},
		{TableColumn: widgets.TableColumn{Title: "XE", Width: 8}, Value: func(r api.VerificationRequest) string { return shortID(r.VehicleID) }},
		{TableColumn: widgets.TableColumn{Title: "QUÃNG ĐƯỜNG", Width: 12, AlignRight: true}, Value: func(r api.VerificationRequest) string { return FormatAmount(r.DistanceKm) + " km" }},
		{TableColumn: widgets.TableColumn{Title: "TÍN CHỈ DỰ KIẾN", Width: 15, AlignRight: true}, Value: func(r api.VerificationRequest) string { return FormatAmount(r.EstimatedCredits) }},
		{TableColumn: widgets.TableColumn{Title: "TRẠNG THÁI", Width: 10}, Value: func(r api.VerificationRequest) string { return string(r.Status) }},
	}
	return NewListView(ListViewParams[api.VerificationRequest]{
		Env:          d.Env,
		Resource:     "verifications",
		Scope:        scopeAll,
		Fetch:        svc.List,
		SortFields:   []string{"createdAt", "estimatedCredits"},
		FilterName:   "status",
		FilterValues: thenAll(api.VerificationStatuses),
		Columns:      cols,
		Lookups:      []Resetter{names},
		Topics:       []bus.Topic{bus.VerificationStatusChanged},
		CellStyle: func(r api.VerificationRequest, col int) (vaxis.Style, bool) {
			return statusStyle(string(r.Status)), col == len(cols)-1
		},
		Actions: []Action[api.VerificationRequest]{
			{
				Key:     'a',
				Hint:    "duyệt",
				Allowed: pending,
				Run: func(ctx context.Context, r api.VerificationRequest) (Outcome, error) {
					dec, err := svc.Approve(ctx, r.ID)
					if err != nil {
						return Outcome{}, err
					}
					return approvedOutcome(r, dec), nil
				},
				Invalidate: []query.Prefix{query.Resource(walletResource), query.Resource(auditResource)},
			},
			{
				Key:     'x',
				Hint:    "từ chối",
				Allowed: pending,
				Run: func(ctx context.Context, r api.VerificationRequest) (Outcome, error) {
					if _, err := svc.Reject(ctx, r.ID, VerificationRejectReason); err != nil {
						return Outcome{}, err
					}
					return Outcome{
						Message: fmt.Sprintf("Đã từ chối yêu cầu %s.", shortID(r.ID)),
						Events: []Publication{{
							Topic: bus.VerificationStatusChanged,
							Detail: bus.Detail{
								Type:      bus.VerificationRejected,
								RequestID: r.ID,
								OwnerID:   r.OwnerID,
								Status:    string(api.VerificationRejected),
								Reason:    VerificationRejectReason,
							},
						}},
					}, nil
				},
			},
		},
	})
}

// approvedOutcome announces the status change and the credits issued to the
// owner's wallet.
func approvedOutcome(r api.VerificationRequest, dec *api.VerificationDecision) Outcome {
	if dec == nil {
		dec = &api.VerificationDecision{Request: r}
	}
	issued := bus.Detail{
		Type:      bus.CreditIssued,
		RequestID: r.ID,
		OwnerID:   r.OwnerID,
	}
	if dec.OwnerCreditTotal.Valid {
		total := dec.OwnerCreditTotal.Decimal
		issued.NewBalance = &total
	}
	return Outcome{
		Message: fmt.Sprintf("Đã duyệt yêu cầu %s, cấp %s tín chỉ.", shortID(r.ID), dec.CreditsIssued.String()),
		Events: []Publication{
			{
				Topic: bus.VerificationStatusChanged,
				Detail: bus.Detail{
					Type:      bus.VerificationApproved,
					RequestID: r.ID,
					OwnerID:   r.OwnerID,
					Status:    string(api.VerificationApproved),
				},
			},
			{Topic: bus.WalletUpdated, Detail: issued},
		},
	}
}

func (d Deps) reviewListings() View {
	svc := d.Services.Listings
	names := d.userLookup()
	cols := listingColumns(func(l api.Listing) string { return names.Text(l.SellerID, fullName) })
	return NewListView(ListViewParams[api.Listing]{
		Env:          d.Env,
		Resource:     "listings",
		Scope:        scopeAll,
		Fetch:        svc.List,
		SortFields:   []string{"createdAt", "pricePerCredit", "quantity"},
		FilterName:   "status",
		FilterValues: allThen(api.ListingStatuses),
		Columns:      cols,
		CellStyle:    listingStatusCell(cols),
		Lookups:      []Resetter{names},
		Topics:       []bus.Topic{bus.ListingRejected},
		Actions: []Action[api.Listing]{{
			Key:     'x',
			Hint:    "từ chối",
			Allowed: openListing,
			Run: func(ctx context.Context, l api.Listing) (Outcome, error) {
				if err := svc.Reject(ctx, l.ID, ListingRejectReason); err != nil {
					return Outcome{}, err
				}
				return Outcome{
					Message: fmt.Sprintf("Đã từ chối niêm yết %s.", shortID(l.ID)),
					Events: []Publication{{
						Topic: bus.ListingRejected,
						Detail: bus.Detail{
							Type:      bus.ListingWasRejected,
							ListingID: l.ID,
							OwnerID:   l.SellerID,
							Reason:    ListingRejectReason,
						},
					}},
				}, nil
			},
			Invalidate: []query.Prefix{query.Resource(walletResource)},
		}},
	})
}

func transactionColumns(names *lookup.Resolver[*api.User]) []Column[api.Transaction] {
	return []Column[api.Transaction]{
		{TableColumn: widgets.TableColumn{Title: "NGÀY", Width: 16}, Value: func(t api.Transaction) string { return formatTime(t.CreatedAt) }},
		{TableColumn: widgets.TableColumn{Title: "NGƯỜI MUA", Width: 18}, Value: func(t api.Transaction) string { return names.Text(t.BuyerID, fullName) }},
		{TableColumn: widgets.TableColumn{Title: "NGƯỜI BÁN", Width: 18}, Value: func(t api.Transaction) string { return names.Text(t.SellerID, fullName) }},
		{TableColumn: widgets.TableColumn{Title: "SỐ LƯỢNG", Width: 12, AlignRight: true}, Value: func(t api.Transaction) string { return FormatAmount(t.Quantity) }},
		{TableColumn: widgets.TableColumn{Title: "THÀNH TIỀN", Width: 16, AlignRight: true}, Value: func(t api.Transaction) string { return FormatAmount(t.TotalPrice) }},
		{TableColumn: widgets.TableColumn{Title: "TRẠNG THÁI", Width: 10}, Value: func(t api.Transaction) string { return string(t.Status) }},
	}
}

func (d Deps) reviewTransactions() View {
	svc := d.Services.Transactions
	names := d.userLookup()
	cols := transactionColumns(names)
	pending := func(t api.Transaction) bool { return t.Status == api.TransactionPending }
	settleTo := func(status api.TransactionStatus, verb string) func(context.Context, api.Transaction) (Outcome, error) {
		return func(ctx context.Context, t api.Transaction) (Outcome, error) {
			if err := svc.UpdateStatus(ctx, t.ID, status); err != nil {
				return Outcome{}, err
			}
			return Outcome{
				Message: fmt.Sprintf("Giao dịch %s đã %s.", shortID(t.ID), verb),
				Events: []Publication{
					{Topic: bus.WalletUpdated, Detail: bus.Detail{Type: bus.BalanceChanged, OwnerID: t.BuyerID, Status: string(status)}},
					{Topic: bus.WalletUpdated, Detail: bus.Detail{Type: bus.BalanceChanged, OwnerID: t.SellerID, Status: string(status)}},
				},
			}, nil
		}
	}
	invalidate := []query.Prefix{query.Resource(walletResource), query.Resource(auditResource), query.Resource("listings")}
	return NewListView(ListViewParams[api.Transaction]{
		Env:          d.Env,
		Resource:     "transactions",
		Scope:        scopeAll,
		Fetch:        svc.List,
		SortFields:   []string{"createdAt", "totalPrice"},
		FilterName:   "status",
		FilterValues: allThen(api.TransactionStatuses),
		Columns:      cols,
		Lookups:      []Resetter{names},
		CellStyle: func(t api.Transaction, col int) (vaxis.Style, bool) {
			return statusStyle(string(t.Status)), col == len(cols)-1
		},
		Actions: []Action[api.Transaction]{
			{Key: 'a', Hint: "hoàn tất", Allowed: pending, Run: settleTo(api.TransactionCompleted, "hoàn tất"), Invalidate: invalidate},
			{Key: 'x', Hint: "thất bại", Allowed: pending, Run: settleTo(api.TransactionFailed, "được đánh dấu thất bại"), Invalidate: invalidate},
		},
	})
}

// --- buyer ---

func (d Deps) market() View {
	svc := d.Services.Listings
	names := d.userLookup()
	cols := listingColumns(func(l api.Listing) string { return names.Text(l.SellerID, fullName) })
	return NewListView(ListViewParams[api.Listing]{
		Env:          d.Env,
		Resource:     "listings",
		Scope:        "market",
		Fetch:        svc.List,
		SortFields:   []string{"createdAt", "pricePerCredit", "quantity", "expiresAt"},
		FilterName:   "status",
		FilterValues: []string{string(api.ListingActive), string(api.ListingBidding)},
		Columns:      cols,
		CellStyle:    listingStatusCell(cols),
		Lookups:      []Resetter{names},
		Topics:       []bus.Topic{bus.ListingRejected},
		Empty:        "Chưa có niêm yết nào đang mở.",
	})
}

func (d Deps) purchases() View {
	svc := d.Services.Transactions
	buyer := d.UserID
	names := d.userLookup()
	cols := transactionColumns(names)
	return NewListView(ListViewParams[api.Transaction]{
		Env:      d.Env,
		Resource: "transactions",
		Scope:    buyer,
		Fetch: func(ctx context.Context, p api.ListParams) (api.Page[api.Transaction], error) {
			return svc.List(ctx, withFilter(p, "buyerId", buyer))
		},
		SortFields:   []string{"createdAt", "totalPrice"},
		FilterName:   "status",
		FilterValues: allThen(api.TransactionStatuses),
		Columns:      cols,
		Lookups:      []Resetter{names},
		Topics:       []bus.Topic{bus.WalletUpdated},
		CellStyle: func(t api.Transaction, col int) (vaxis.Style, bool) {
			return statusStyle(string(t.Status)), col == len(cols)-1
		},
	})
}
