package api

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Role is a marketplace user role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleEVOwner Role = "ev_owner"
	RoleCVA     Role = "cva"
	RoleBuyer   Role = "buyer"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleEVOwner, RoleCVA, RoleBuyer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Entry      int `json:"entry"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

// ListParams is the shared {page, entry, field, sort, ...filters} query
// convention of list endpoints. Empty values are omitted.
type ListParams struct {
	Page    int
	Entry   int
	Field   string
	Sort    string
	Filters map[string]string
}

// Values encodes p as URL query values.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Entry > 0 {
		v.Set("entry", strconv.Itoa(p.Entry))
	}
	if p.Field != "" {
		v.Set("field", p.Field)
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort)
	}
	for k, val := range p.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// VehicleType is a catalogue entry used by the carbon calculation service.
type VehicleType struct {
	ID                 string          `json:"id"`
	Manufacturer       string          `json:"manufacturer"`
	Model              string          `json:"model"`
	BatteryCapacityKWh decimal.Decimal `json:"batteryCapacity"`
	EmissionFactor     decimal.Decimal `json:"emissionFactor"`
}

// Vehicle is an EV registered by an owner.
type Vehicle struct {
	ID            string `json:"id"`
	OwnerID       string `json:"ownerId"`
	VIN           string `json:"vin"`
	LicensePlate  string `json:"licensePlate"`
	VehicleTypeID string `json:"vehicleTypeId"`
}

// User is a marketplace account.
type User struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Dob         string `json:"dob"`
	Role        Role   `json:"role"`
}

// AuditType is the ledger an audit record belongs to.
type AuditType string

const (
	AuditWallet       AuditType = "WALLET"
	AuditCarbonCredit AuditType = "CARBON_CREDIT"
)

// AuditAction is the balance-affecting action of an audit record.
type AuditAction string

const (
	ActionDeposit      AuditAction = "DEPOSIT"
	ActionWithdraw     AuditAction = "WITHDRAW"
	ActionCreditTopUp  AuditAction = "CREDIT_TOP_UP"
	ActionCreditTrade  AuditAction = "CREDIT_TRADE"
	ActionCreditBuy    AuditAction = "CREDIT_BUY"
	ActionAdjustManual AuditAction = "ADJUST_MANUAL"
)

// AuditActions lists every audit action in display order.
var AuditActions = []AuditAction{
	ActionDeposit, ActionWithdraw, ActionCreditTopUp, ActionCreditTrade, ActionCreditBuy, ActionAdjustManual,
}

// AuditRecord is an immutable ledger entry.
type AuditRecord struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	Type         AuditType       `json:"type"`
	Action       AuditAction     `json:"action"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	Note         string          `json:"note"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Wallet holds an owner's money and carbon credit balances.
type Wallet struct {
	OwnerID       string          `json:"ownerId"`
	Balance       decimal.Decimal `json:"balance"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
	ListedCredits decimal.Decimal `json:"listedCredits"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ListingStatus is the lifecycle state of a marketplace listing.
type ListingStatus string

const (
	ListingActive         ListingStatus = "ACTIVE"
	ListingBidding        ListingStatus = "BIDDING"
	ListingPendingPayment ListingStatus = "PENDING_PAYMENT"
	ListingSold           ListingStatus = "SOLD"
	ListingEnded          ListingStatus = "ENDED"
	ListingCanceled       ListingStatus = "CANCELED"
	ListingExpired        ListingStatus = "EXPIRED"
)

// ListingStatuses lists every listing status in display order.
var ListingStatuses = []ListingStatus{
	ListingActive, ListingBidding, ListingPendingPayment, ListingSold, ListingEnded, ListingCanceled, ListingExpired,
}

// ListingKind distinguishes fixed-price offers from auctions.
type ListingKind string

const (
	ListingFixedPrice ListingKind = "FIXED_PRICE"
	ListingAuction    ListingKind = "AUCTION"
)

// Listing is an offer to sell carbon credits.
type Listing struct {
	ID             string          `json:"id"`
	SellerID       string          `json:"sellerId"`
	Quantity       decimal.Decimal `json:"quantity"`
	PricePerCredit decimal.Decimal `json:"pricePerCredit"`
	Kind           ListingKind     `json:"kind"`
	Status         ListingStatus   `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	ExpiresAt      time.Time       `json:"expiresAt"`
}

// TransactionStatus is the settlement state of a transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
	TransactionCanceled  TransactionStatus = "CANCELED"
)

// TransactionStatuses lists every transaction status in display order.
var TransactionStatuses = []TransactionStatus{
	TransactionPending, TransactionCompleted, TransactionFailed, TransactionCanceled,
}

// Transaction is a credit purchase.
type Transaction struct {
	ID         string            `json:"id"`
	ListingID  string            `json:"listingId"`
	BuyerID    string            `json:"buyerId"`
	SellerID   string            `json:"sellerId"`
	Quantity   decimal.Decimal   `json:"quantity"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
	Status     TransactionStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// VerificationStatus is the review state of a verification request.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// VerificationStatuses lists every verification status in display order.
var VerificationStatuses = []VerificationStatus{
	VerificationPending, VerificationApproved, VerificationRejected,
}

// VerificationRequest asks a verifier to approve trip data for credit issuance.
type VerificationRequest struct {
	ID               string             `json:"id"`
	OwnerID          string             `json:"ownerId"`
	VehicleID        string             `json:"vehicleId"`
	DistanceKm       decimal.Decimal    `json:"distanceKm"`
	EstimatedCredits decimal.Decimal    `json:"estimatedCredits"`
	Status           VerificationStatus `json:"status"`
	Note             string             `json:"note"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// VerificationDecision is returned by approve/reject and carries the credit
// issuance result when approved. OwnerCreditTotal is invalid when the server
// omits the balance.
type VerificationDecision struct {
	Request          VerificationRequest `json:"request"`
	CreditsIssued    decimal.Decimal     `json:"creditsIssued"`
	OwnerCreditTotal decimal.NullDecimal `json:"ownerCreditBalance"`
}

// ChangePasswordRequest is the body of POST /customer/change-password.
type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ProfileUpdate is the body of PATCH /customer/profile.
type ProfileUpdate struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Dob         string `json:"dob"`
}
