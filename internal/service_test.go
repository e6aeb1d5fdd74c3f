package internal_test

import (
	"testing"

	"github.com/deevus/carbon-tui/internal"
	"github.com/deevus/carbon-tui/internal/api"
)

func TestNewServices(t *testing.T) {
	c, err := api.NewClient(api.Config{BaseURL: "http://localhost:8080"})
	if err != nil {
		t.Fatal(err)
	}

	svc := internal.NewServices(c)

	if svc.VehicleTypes == nil || svc.Vehicles == nil || svc.Users == nil {
		t.Fatal("expected catalogue services")
	}
	if svc.Audit == nil || svc.Customer == nil || svc.Wallets == nil {
		t.Fatal("expected account services")
	}
	if svc.Listings == nil || svc.Transactions == nil || svc.Verifications == nil {
		t.Fatal("expected market services")
	}
}

func TestNewMockServices(t *testing.T) {
	svc := internal.NewMockServices()

	if _, ok := svc.Wallets.(*api.MockWalletService); !ok {
		t.Fatalf("expected mock wallet service, got %T", svc.Wallets)
	}
	if _, ok := svc.Verifications.(*api.MockVerificationService); !ok {
		t.Fatalf("expected mock verification service, got %T", svc.Verifications)
	}
}
