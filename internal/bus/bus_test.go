package bus_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deevus/carbon-tui/internal/bus"
)

func recv(t *testing.T, sub *bus.Subscription) bus.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return bus.Event{}
}

func TestPublish_DeliversToTopicSubscribers(t *testing.T) {
	b := bus.New(0, nil)
	wallet := b.Subscribe(bus.WalletUpdated)
	defer wallet.Close()
	listings := b.Subscribe(bus.ListingRejected)
	defer listings.Close()

	balance := decimal.RequireFromString("42.5")
	n := b.Publish(bus.WalletUpdated, bus.Detail{Type: bus.CreditIssued, NewBalance: &balance})
	assert.Equal(t, 1, n)

	ev := recv(t, wallet)
	assert.Equal(t, bus.WalletUpdated, ev.Topic)
	assert.Equal(t, bus.CreditIssued, ev.Detail.Type)
	assert.True(t, ev.Detail.NewBalance.Equal(balance))

	select {
	case ev := <-listings.C:
		t.Fatalf("unexpected event on other topic: %+v", ev)
	default:
	}
}

func TestPublish_NoSubscribersIsLost(t *testing.T) {
	b := bus.New(0, nil)
	assert.Equal(t, 0, b.Publish(bus.WalletUpdated, bus.Detail{Type: bus.BalanceChanged}))

	sub := b.Subscribe(bus.WalletUpdated)
	defer sub.Close()
	select {
	case ev := <-sub.C:
		t.Fatalf("event published before subscribing was delivered: %+v", ev)
	default:
	}
}

func TestPublish_PreservesOrderPerSubscriber(t *testing.T) {
	b := bus.New(0, nil)
	sub := b.Subscribe(bus.VerificationStatusChanged)
	defer sub.Close()

	for _, id := range []string{"1", "2", "3"} {
		b.Publish(bus.VerificationStatusChanged, bus.Detail{Type: bus.VerificationApproved, RequestID: id})
	}
	for _, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, recv(t, sub).Detail.RequestID)
	}
}

func TestPublish_FullBufferDrops(t *testing.T) {
	b := bus.New(1, nil)
	sub := b.Subscribe(bus.WalletUpdated)
	defer sub.Close()

	assert.Equal(t, 1, b.Publish(bus.WalletUpdated, bus.Detail{Message: "first"}))
	assert.Equal(t, 0, b.Publish(bus.WalletUpdated, bus.Detail{Message: "second"}))
	assert.Equal(t, "first", recv(t, sub).Detail.Message)
}

func TestSubscribe_MultipleTopics(t *testing.T) {
	b := bus.New(0, nil)
	sub := b.Subscribe(bus.VerificationStatusChanged, bus.ListingRejected)
	defer sub.Close()

	b.Publish(bus.ListingRejected, bus.Detail{ListingID: "L1"})
	b.Publish(bus.VerificationStatusChanged, bus.Detail{RequestID: "R1"})

	assert.Equal(t, bus.ListingRejected, recv(t, sub).Topic)
	assert.Equal(t, bus.VerificationStatusChanged, recv(t, sub).Topic)
}

func TestClose_UnsubscribesAndClosesChannel(t *testing.T) {
	b := bus.New(0, nil)
	sub := b.Subscribe(bus.WalletUpdated)
	require.Equal(t, 1, b.Subscribers(bus.WalletUpdated))

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, b.Subscribers(bus.WalletUpdated))
	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, b.Publish(bus.WalletUpdated, bus.Detail{}))
}
