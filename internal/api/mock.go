package api

import "context"

// MockVehicleTypeService is a VehicleTypeServiceAPI whose behaviour is set per
// test. Unset funcs return zero values.
type MockVehicleTypeService struct {
	ListFunc   func(ctx context.Context, p ListParams) (Page[VehicleType], error)
	CreateFunc func(ctx context.Context, vt VehicleType) (*VehicleType, error)
	UpdateFunc func(ctx context.Context, vt VehicleType) (*VehicleType, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *MockVehicleTypeService) List(ctx context.Context, p ListParams) (Page[VehicleType], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, p)
	}
	return Page[VehicleType]{}, nil
}

func (m *MockVehicleTypeService) Create(ctx context.Context, vt VehicleType) (*VehicleType, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, vt)
	}
	return &vt, nil
}

func (m *MockVehicleTypeService) Update(ctx context.Context, vt VehicleType) (*VehicleType, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, vt)
	}
	return &vt, nil
}

func (m *MockVehicleTypeService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockVehicleService is a VehicleServiceAPI for tests.
type MockVehicleService struct {
	ListFunc   func(ctx context.Context, ownerID string, p ListParams) (Page[Vehicle], error)
	CreateFunc func(ctx context.Context, v Vehicle) (*Vehicle, error)
}

func (m *MockVehicleService) List(ctx context.Context, ownerID string, p ListParams) (Page[Vehicle], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID, p)
	}
	return Page[Vehicle]{}, nil
}

func (m *MockVehicleService) Create(ctx context.Context, v Vehicle) (*Vehicle, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, v)
	}
	return &v, nil
}

// MockUserService is a UserServiceAPI for tests.
type MockUserService struct {
	GetFunc    func(ctx context.Context, id string) (*User, error)
	SearchFunc func(ctx context.Context, fullName string, p ListParams) (Page[User], error)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*User, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return &User{ID: id}, nil
}

func (m *MockUserService) Search(ctx context.Context, fullName string, p ListParams) (Page[User], error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, fullName, p)
	}
	return Page[User]{}, nil
}

// MockAuditService is an AuditServiceAPI for tests.
type MockAuditService struct {
	ListFunc func(ctx context.Context, p ListParams) (Page[AuditRecord], error)
}

func (m *MockAuditService) List(ctx context.Context, p ListParams) (Page[AuditRecord], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, p)
	}
	return Page[AuditRecord]{}, nil
}

// MockCustomerService is a CustomerServiceAPI for tests.
type MockCustomerService struct {
	ChangePasswordFunc func(ctx context.Context, req ChangePasswordRequest) error
	UpdateProfileFunc  func(ctx context.Context, upd ProfileUpdate) (*User, error)
}

func (m *MockCustomerService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, req)
	}
	return nil
}

func (m *MockCustomerService) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, upd)
	}
	return &User{FullName: upd.FullName, Email: upd.Email, PhoneNumber: upd.PhoneNumber, Dob: upd.Dob}, nil
}

// MockWalletService is a WalletServiceAPI for tests.
type MockWalletService struct {
	GetFunc func(ctx context.Context, ownerID string) (*Wallet, error)
}

func (m *MockWalletService) Get(ctx context.Context, ownerID string) (*Wallet, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ownerID)
	}
	return &Wallet{OwnerID: ownerID}, nil
}

// MockListingService is a ListingServiceAPI for tests.
type MockListingService struct {
	ListFunc   func(ctx context.Context, p ListParams) (Page[Listing], error)
	CancelFunc func(ctx context.Context, id string) error
	RejectFunc func(ctx context.Context, id, reason string) error
}

func (m *MockListingService) List(ctx context.Context, p ListParams) (Page[Listing], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, p)
	}
	return Page[Listing]{}, nil
}

func (m *MockListingService) Cancel(ctx context.Context, id string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id)
	}
	return nil
}

func (m *MockListingService) Reject(ctx context.Context, id, reason string) error {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id, reason)
	}
	return nil
}

// MockTransactionService is a TransactionServiceAPI for tests.
type MockTransactionService struct {
	ListFunc         func(ctx context.Context, p ListParams) (Page[Transaction], error)
	UpdateStatusFunc func(ctx context.Context, id string, status TransactionStatus) error
}

func (m *MockTransactionService) List(ctx context.Context, p ListParams) (Page[Transaction], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, p)
	}
	return Page[Transaction]{}, nil
}

func (m *MockTransactionService) UpdateStatus(ctx context.Context, id string, status TransactionStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

// MockVerificationService is a VerificationServiceAPI for tests.
type MockVerificationService struct {
	ListFunc    func(ctx context.Context, p ListParams) (Page[VerificationRequest], error)
	ApproveFunc func(ctx context.Context, id string) (*VerificationDecision, error)
	RejectFunc  func(ctx context.Context, id, reason string) (*VerificationDecision, error)
}

func (m *MockVerificationService) List(ctx context.Context, p ListParams) (Page[VerificationRequest], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, p)
	}
	return Page[VerificationRequest]{}, nil
}

func (m *MockVerificationService) Approve(ctx context.Context, id string) (*VerificationDecision, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, id)
	}
	return &VerificationDecision{Request: VerificationRequest{ID: id, Status: VerificationApproved}}, nil
}

func (m *MockVerificationService) Reject(ctx context.Context, id, reason string) (*VerificationDecision, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, id, reason)
	}
	return &VerificationDecision{Request: VerificationRequest{ID: id, Status: VerificationRejected, Note: reason}}, nil
}

var (
	_ VehicleTypeServiceAPI  = (*MockVehicleTypeService)(nil)
	_ VehicleServiceAPI      = (*MockVehicleService)(nil)
	_ UserServiceAPI         = (*MockUserService)(nil)
	_ AuditServiceAPI        = (*MockAuditService)(nil)
	_ CustomerServiceAPI     = (*MockCustomerService)(nil)
	_ WalletServiceAPI       = (*MockWalletService)(nil)
	_ ListingServiceAPI      = (*MockListingService)(nil)
	_ TransactionServiceAPI  = (*MockTransactionService)(nil)
	_ VerificationServiceAPI = (*MockVerificationService)(nil)
)
