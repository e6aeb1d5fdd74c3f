package internal

import (
	"github.com/deevus/carbon-tui/internal/api"
)

// Services holds the marketplace service interfaces for one profile.
type Services struct {
	VehicleTypes  api.VehicleTypeServiceAPI
	Vehicles      api.VehicleServiceAPI
	Users         api.UserServiceAPI
	Audit         api.AuditServiceAPI
	Customer      api.CustomerServiceAPI
	Wallets       api.WalletServiceAPI
	Listings      api.ListingServiceAPI
	Transactions  api.TransactionServiceAPI
	Verifications api.VerificationServiceAPI
}

// NewServices creates a Services container backed by one REST client.
func NewServices(c *api.Client) *Services {
	return &Services{
		VehicleTypes:  api.NewVehicleTypeService(c),
		Vehicles:      api.NewVehicleService(c),
		Users:         api.NewUserService(c),
		Audit:         api.NewAuditService(c),
		Customer:      api.NewCustomerService(c),
		Wallets:       api.NewWalletService(c),
		Listings:      api.NewListingService(c),
		Transactions:  api.NewTransactionService(c),
		Verifications: api.NewVerificationService(c),
	}
}

// NewMockServices returns a Services container of zero-value mocks. Tests
// replace the fields they care about.
func NewMockServices() *Services {
	return &Services{
		VehicleTypes:  &api.MockVehicleTypeService{},
		Vehicles:      &api.MockVehicleService{},
		Users:         &api.MockUserService{},
		Audit:         &api.MockAuditService{},
		Customer:      &api.MockCustomerService{},
		Wallets:       &api.MockWalletService{},
		Listings:      &api.MockListingService{},
		Transactions:  &api.MockTransactionService{},
		Verifications: &api.MockVerificationService{},
	}
}
