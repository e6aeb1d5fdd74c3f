// Package bus is an in-process publish/subscribe channel for cross-view
// updates: a verifier approving a request, a listing being rejected, a wallet
// balance changing.
//
// Delivery is best effort. An event published while nobody is subscribed is
// lost, and a subscriber whose buffer is full misses the event.
package bus

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/deevus/carbon-tui/internal/logging"
	"github.com/deevus/carbon-tui/internal/metrics"
)

// Topic names an event stream.
type Topic string

const (
	VerificationStatusChanged Topic = "verification-status-changed"
	ListingRejected           Topic = "listing-rejected"
	WalletUpdated             Topic = "wallet-updated"
)

// DetailType discriminates the payload of an event.
type DetailType string

const (
	CreditIssued         DetailType = "credit_issued"
	BalanceChanged       DetailType = "balance_changed"
	VerificationApproved DetailType = "verification_approved"
	VerificationRejected DetailType = "verification_rejected"
	ListingWasRejected   DetailType = "listing_rejected"
	ListingCanceled      DetailType = "listing_canceled"
)

// Detail is the payload carried by an event. Fields not relevant to Type
// are left zero.
type Detail struct {
	Type       DetailType
	Message    string
	NewBalance *decimal.Decimal
	OwnerID    string
	RequestID  string
	ListingID  string
	Status     string
	Reason     string
}

// Event is one published message.
type Event struct {
	Topic  Topic
	Detail Detail
	At     time.Time
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Bus fans events out to subscribers of their topic.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Topic]map[uint64]*Subscription
	nextID uint64
	buffer int
	log    *logrus.Entry
}

// New creates a Bus. A buffer of zero selects DefaultBuffer.
func New(buffer int, log logrus.FieldLogger) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:   make(map[Topic]map[uint64]*Subscription),
		buffer: buffer,
		log:    logging.Component(log, "bus"),
	}
}

// Subscription receives events for its topics on C until closed.
type Subscription struct {
	C <-chan Event

	bus    *Bus
	id     uint64
	topics []Topic
	ch     chan Event
	once   sync.Once
}

// Subscribe registers for the given topics.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{C: ch, bus: b, id: b.nextID, topics: topics, ch: ch}
	for _, t := range topics {
		if b.subs[t] == nil {
			b.subs[t] = make(map[uint64]*Subscription)
		}
		b.subs[t][sub.id] = sub
	}
	return sub
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		for _, t := range s.topics {
			delete(s.bus.subs[t], s.id)
			if len(s.bus.subs[t]) == 0 {
				delete(s.bus.subs, t)
			}
		}
		s.bus.mu.Unlock()
		close(s.ch)
	})
}

// Publish sends detail to every current subscriber of topic without blocking
// and returns how many received it.
func (b *Bus) Publish(topic Topic, detail Detail) int {
	ev := Event{Topic: topic, Detail: detail, At: time.Now()}

	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- ev:
			delivered++
			metrics.BusEvents.WithLabelValues(string(topic), "delivered").Inc()
		default:
			metrics.BusEvents.WithLabelValues(string(topic), "dropped").Inc()
			b.log.WithFields(logrus.Fields{"topic": topic, "type": detail.Type}).Warn("subscriber buffer full, event dropped")
		}
	}
	if delivered == 0 {
		b.log.WithFields(logrus.Fields{"topic": topic, "type": detail.Type}).Debug("no subscribers")
	}
	return delivered
}

// Subscribers returns the number of live subscriptions to topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
