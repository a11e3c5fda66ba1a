// Package events carries submission notifications to registered admin
// clients. Clients poll their queue; nothing is pushed.
package events

import (
	"context"
	"sync"
	"time"
)

// Event types.
const (
	TypeSubmissionCreated = "submission.created"
	TypeSubmissionDeleted = "submission.deleted"
	TypeSubmissionEmailed = "submission.emailed"
)

// DefaultQueueSize bounds each client's pending events.
const DefaultQueueSize = 100

// Event is one notification.
type Event struct {
	Type         string    `json:"type"`
	SubmissionID string    `json:"submissionId"`
	UserID       string    `json:"userId,omitempty"`
	InternName   string    `json:"internName,omitempty"`
	At           time.Time `json:"at"`
}

// Broker distributes events to registered clients.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(clientID string)
	Unsubscribe(clientID string)
	// Drain returns and clears the client's pending events in publish
	// order. ok is false when the client is not registered.
	Drain(clientID string) (events []Event, ok bool)
	Close() error
}

// Registry is an in-process Broker with a bounded queue per client. When a
// queue is full the oldest event is dropped.
type Registry struct {
	mu     sync.Mutex
	size   int
	queues map[string][]Event
}

// NewRegistry creates a registry whose queues hold at most size events.
func NewRegistry(size int) *Registry {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Registry{size: size, queues: make(map[string][]Event)}
}

// Publish enqueues ev for every registered client.
func (r *Registry) Publish(_ context.Context, ev Event) error {
	r.deliver(ev)
	return nil
}

func (r *Registry) deliver(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, q := range r.queues {
		if len(q) >= r.size {
			q = q[len(q)-r.size+1:]
		}
		r.queues[id] = append(q, ev)
	}
}

// Subscribe registers clientID. Registering twice keeps the existing queue.
func (r *Registry) Subscribe(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.queues[clientID]; !ok {
		r.queues[clientID] = nil
	}
}

// Unsubscribe removes clientID and its pending events.
func (r *Registry) Unsubscribe(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.queues, clientID)
}

// Drain returns and clears the pending events of clientID.
func (r *Registry) Drain(clientID string) ([]Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.queues[clientID]
	if !ok {
		return nil, false
	}
	r.queues[clientID] = nil
	if q == nil {
		q = []Event{}
	}
	return q, true
}

// Clients returns the number of registered clients.
func (r *Registry) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queues)
}

// Close is a no-op for the in-process registry.
func (r *Registry) Close() error {
	return nil
}
