// Package service provides business logic for the node dashboard.
package service

import (
	"log"
	"sync"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
)

// subscriberBuffer is the per-subscriber event queue depth. A subscriber that
// falls this far behind is dropped rather than blocking the broadcaster.
const subscriberBuffer = 16

// Subscriber is one live dashboard client. Events are queued on a buffered
// channel consumed by the connection's write loop; the channel is closed when
// the subscriber is unregistered.
type Subscriber struct {
	events chan models.Event
}

// Events returns the subscriber's event stream. The channel is closed on
// unregistration, which ends the consumer's range loop.
func (s *Subscriber) Events() <-chan models.Event {
	return s.events
}

// Registry is the process-wide set of live subscribers. It is safe to use
// from the HTTP-serving goroutines and from independent background
// goroutines such as the log tailer.
type Registry struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

// NewRegistry creates an empty subscriber registry.
func NewRegistry() *Registry {
	return &Registry{
		subs: make(map[*Subscriber]struct{}),
	}
}

// Register adds a new live subscriber. It never fails.
func (r *Registry) Register() *Subscriber {
	sub := &Subscriber{events: make(chan models.Event, subscriberBuffer)}

	r.mu.Lock()
	r.subs[sub] = struct{}{}
	count := len(r.subs)
	r.mu.Unlock()

	log.Printf("Subscriber connected. Total connections: %d", count)
	return sub
}

// Unregister removes a subscriber and closes its event channel. It is
// idempotent: removing an absent subscriber is a no-op.
func (r *Registry) Unregister(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drop(sub)
}

// Broadcast delivers an event to every currently registered subscriber and
// returns once every delivery has been attempted. A subscriber whose queue is
// full is dropped; one failed delivery never aborts the rest. Delivery is
// best-effort and unordered across subscribers.
func (r *Registry) Broadcast(event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for sub := range r.subs {
		select {
		case sub.events <- event:
		default:
			// Queue full: the client stopped draining. Drop it.
			r.drop(sub)
		}
	}
}

// Len returns the number of live subscribers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// drop removes a subscriber and closes its channel. Caller must hold r.mu;
// holding the lock for both membership and sends is what makes close safe
// against concurrent Broadcast.
func (r *Registry) drop(sub *Subscriber) {
	if _, ok := r.subs[sub]; !ok {
		return
	}
	delete(r.subs, sub)
	close(sub.events)
	log.Printf("Subscriber disconnected. Remaining connections: %d", len(r.subs))
}
