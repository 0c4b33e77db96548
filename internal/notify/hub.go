// Package notify is an in-process publish/subscribe hub for account and loan
// lifecycle events. Delivery is best-effort broadcast to the subscribers
// connected at publish time: no ordering across subscribers, no replay.
package notify

import (
	"sync"
	"time"
)

type EventType string

const (
	EventLoanCreated   EventType = "LOAN_CREATED"
	EventEmiPaid       EventType = "EMI_PAID"
	EventLoanPreclosed EventType = "LOAN_PRECLOSED"
	EventTransfer      EventType = "TRANSFER"
)

type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// subscriberBuffer bounds how far a slow consumer can lag before events are
// dropped for it.
const subscriberBuffer = 16

type Subscriber struct {
	C chan Event
}

type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.C)
	}
	h.mu.Unlock()
}

// Publish broadcasts fire-and-forget. A subscriber whose buffer is full
// misses the event rather than blocking the publisher.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.C <- event:
		default:
		}
	}
}
