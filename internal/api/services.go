package api

import (
	"context"
	"net/http"
	"net/url"
)

// VehicleTypeServiceAPI manages the vehicle type catalogue.
type VehicleTypeServiceAPI interface {
	List(ctx context.Context, p ListParams) (Page[VehicleType], error)
	Create(ctx context.Context, vt VehicleType) (*VehicleType, error)
	Update(ctx context.Context, vt VehicleType) (*VehicleType, error)
	Delete(ctx context.Context, id string) error
}

// VehicleServiceAPI manages an owner's vehicles.
type VehicleServiceAPI interface {
	List(ctx context.Context, ownerID string, p ListParams) (Page[Vehicle], error)
	Create(ctx context.Context, v Vehicle) (*Vehicle, error)
}

// UserServiceAPI looks up users.
type UserServiceAPI interface {
	Get(ctx context.Context, id string) (*User, error)
	Search(ctx context.Context, fullName string, p ListParams) (Page[User], error)
}

// AuditServiceAPI reads the ledger audit trail. Filters: ownerId, type, action.
type AuditServiceAPI interface {
	List(ctx context.Context, p ListParams) (Page[AuditRecord], error)
}

// CustomerServiceAPI changes the signed-in customer's credentials and profile.
type CustomerServiceAPI interface {
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error)
}

// WalletServiceAPI reads wallet balances.
type WalletServiceAPI interface {
	Get(ctx context.Context, ownerID string) (*Wallet, error)
}

// ListingServiceAPI reads and moderates marketplace listings. Filters: status,
// sellerId, kind.
type ListingServiceAPI interface {
	List(ctx context.Context, p ListParams) (Page[Listing], error)
	Cancel(ctx context.Context, id string) error
	Reject(ctx context.Context, id, reason string) error
}

// TransactionServiceAPI reads transactions and adjusts their status.
type TransactionServiceAPI interface {
	List(ctx context.Context, p ListParams) (Page[Transaction], error)
	UpdateStatus(ctx context.Context, id string, status TransactionStatus) error
}

// VerificationServiceAPI reads and decides verification requests.
type VerificationServiceAPI interface {
	List(ctx context.Context, p ListParams) (Page[VerificationRequest], error)
	Approve(ctx context.Context, id string) (*VerificationDecision, error)
	Reject(ctx context.Context, id, reason string) (*VerificationDecision, error)
}

func pathID(prefix, id string, suffix ...string) string {
	p := prefix + "/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

type reasonBody struct {
	Reason string `json:"reason,omitempty"`
}

// VehicleTypeService implements VehicleTypeServiceAPI over REST.
type VehicleTypeService struct{ c *Client }

// NewVehicleTypeService creates a VehicleTypeService.
func NewVehicleTypeService(c *Client) *VehicleTypeService { return &VehicleTypeService{c: c} }

func (s *VehicleTypeService) List(ctx context.Context, p ListParams) (Page[VehicleType], error) {
	var out Page[VehicleType]
	err := s.c.get(ctx, "vehicle-types", "/vehicle-types", p.Values(), &out)
	return out, err
}

func (s *VehicleTypeService) Create(ctx context.Context, vt VehicleType) (*VehicleType, error) {
	var out VehicleType
	if err := s.c.send(ctx, "vehicle-types", http.MethodPost, "/vehicle-types", vt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *VehicleTypeService) Update(ctx context.Context, vt VehicleType) (*VehicleType, error) {
	var out VehicleType
	if err := s.c.send(ctx, "vehicle-types", http.MethodPut, pathID("/vehicle-types", vt.ID), vt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *VehicleTypeService) Delete(ctx context.Context, id string) error {
	return s.c.send(ctx, "vehicle-types", http.MethodDelete, pathID("/vehicle-types", id), nil, nil)
}

// VehicleService implements VehicleServiceAPI over REST.
type VehicleService struct{ c *Client }

// NewVehicleService creates a VehicleService.
func NewVehicleService(c *Client) *VehicleService { return &VehicleService{c: c} }

func (s *VehicleService) List(ctx context.Context, ownerID string, p ListParams) (Page[Vehicle], error) {
	q := p.Values()
	if ownerID != "" {
		q.Set("ownerId", ownerID)
	}
	var out Page[Vehicle]
	err := s.c.get(ctx, "vehicles", "/vehicles", q, &out)
	return out, err
}

func (s *VehicleService) Create(ctx context.Context, v Vehicle) (*Vehicle, error) {
	var out Vehicle
	if err := s.c.send(ctx, "vehicles", http.MethodPost, "/vehicles", v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserService implements UserServiceAPI over REST.
type UserService struct{ c *Client }

// NewUserService creates a UserService.
func NewUserService(c *Client) *UserService { return &UserService{c: c} }

func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	var out User
	if err := s.c.get(ctx, "users", pathID("/users", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *UserService) Search(ctx context.Context, fullName string, p ListParams) (Page[User], error) {
	q := p.Values()
	if fullName != "" {
		q.Set("fullName", fullName)
	}
	var out Page[User]
	err := s.c.get(ctx, "users", "/users", q, &out)
	return out, err
}

// AuditService implements AuditServiceAPI over REST.
type AuditService struct{ c *Client }

// NewAuditService creates an AuditService.
func NewAuditService(c *Client) *AuditService { return &AuditService{c: c} }

func (s *AuditService) List(ctx context.Context, p ListParams) (Page[AuditRecord], error) {
	var out Page[AuditRecord]
	err := s.c.get(ctx, "audit", "/audit", p.Values(), &out)
	return out, err
}

// CustomerService implements CustomerServiceAPI over REST.
type CustomerService struct{ c *Client }

// NewCustomerService creates a CustomerService.
func NewCustomerService(c *Client) *CustomerService { return &CustomerService{c: c} }

func (s *CustomerService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return s.c.send(ctx, "customer", http.MethodPost, "/customer/change-password", req, nil)
}

func (s *CustomerService) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var out User
	if err := s.c.send(ctx, "customer", http.MethodPatch, "/customer/profile", upd, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletService implements WalletServiceAPI over REST.
type WalletService struct{ c *Client }

// NewWalletService creates a WalletService.
func NewWalletService(c *Client) *WalletService { return &WalletService{c: c} }

func (s *WalletService) Get(ctx context.Context, ownerID string) (*Wallet, error) {
	var out Wallet
	if err := s.c.get(ctx, "wallet", pathID("/wallets", ownerID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListingService implements ListingServiceAPI over REST.
type ListingService struct{ c *Client }

// NewListingService creates a ListingService.
func NewListingService(c *Client) *ListingService { return &ListingService{c: c} }

func (s *ListingService) List(ctx context.Context, p ListParams) (Page[Listing], error) {
	var out Page[Listing]
	err := s.c.get(ctx, "listings", "/market/listings", p.Values(), &out)
	return out, err
}

func (s *ListingService) Cancel(ctx context.Context, id string) error {
	return s.c.send(ctx, "listings", http.MethodPost, pathID("/market/listings", id, "cancel"), nil, nil)
}

func (s *ListingService) Reject(ctx context.Context, id, reason string) error {
	return s.c.send(ctx, "listings", http.MethodPost, pathID("/market/listings", id, "reject"), reasonBody{Reason: reason}, nil)
}

// TransactionService implements TransactionServiceAPI over REST.
type TransactionService struct{ c *Client }

// NewTransactionService creates a TransactionService.
func NewTransactionService(c *Client) *TransactionService { return &TransactionService{c: c} }

func (s *TransactionService) List(ctx context.Context, p ListParams) (Page[Transaction], error) {
	var out Page[Transaction]
	err := s.c.get(ctx, "transactions", "/transactions", p.Values(), &out)
	return out, err
}

func (s *TransactionService) UpdateStatus(ctx context.Context, id string, status TransactionStatus) error {
	body := struct {
		Status TransactionStatus `json:"status"`
	}{status}
	return s.c.send(ctx, "transactions", http.MethodPatch, pathID("/transactions", id, "status"), body, nil)
}

// VerificationService implements VerificationServiceAPI over REST.
type VerificationService struct{ c *Client }

// NewVerificationService creates a VerificationService.
func NewVerificationService(c *Client) *VerificationService { return &VerificationService{c: c} }

func (s *VerificationService) List(ctx context.Context, p ListParams) (Page[VerificationRequest], error) {
	var out Page[VerificationRequest]
	err := s.c.get(ctx, "verifications", "/verifications", p.Values(), &out)
	return out, err
}

func (s *VerificationService) Approve(ctx context.Context, id string) (*VerificationDecision, error) {
	var out VerificationDecision
	if err := s.c.send(ctx, "verifications", http.MethodPost, pathID("/verifications", id, "approve"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *VerificationService) Reject(ctx context.Context, id, reason string) (*VerificationDecision, error) {
	var out VerificationDecision
	if err := s.c.send(ctx, "verifications", http.MethodPost, pathID("/verifications", id, "reject"), reasonBody{Reason: reason}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ VehicleTypeServiceAPI  = (*VehicleTypeService)(nil)
	_ VehicleServiceAPI      = (*VehicleService)(nil)
	_ UserServiceAPI         = (*UserService)(nil)
	_ AuditServiceAPI        = (*AuditService)(nil)
	_ CustomerServiceAPI     = (*CustomerService)(nil)
	_ WalletServiceAPI       = (*WalletService)(nil)
	_ ListingServiceAPI      = (*ListingService)(nil)
	_ TransactionServiceAPI  = (*TransactionService)(nil)
	_ VerificationServiceAPI = (*VerificationService)(nil)
)
