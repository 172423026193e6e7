package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cimalchemist/alchemist/internal/eventlog"
)

var _ Transport = (*MemoryTransport)(nil)

// MemoryTransport is an in-process Transport implementation for tests: no
// network, no durability across process restarts, but the same subject
// matching as NATSTransport so consumer code can be tested without a NATS
// server. StartAll replays the in-process publish log; StartNew and
// StartFromSequence deliver only later publishes. Durable names are not
// tracked, and Nack returns an error without redelivering.
type MemoryTransport struct {
	mu   sync.Mutex
	subs []*memorySubscription
	log  []loggedEvent
}

type loggedEvent struct {
	subject string
	event   eventlog.Event
}

// NewMemoryTransport returns a ready-to-use in-memory Transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{}
}

func (t *MemoryTransport) Publish(ctx context.Context, subject string, ev eventlog.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.log = append(t.log, loggedEvent{subject: subject, event: ev})
	for _, sub := range t.subs {
		if MatchSubject(sub.pattern, subject) {
			sub.deliver(subject, ev)
		}
	}
	return nil
}

func (t *MemoryTransport) Subscribe(ctx context.Context, pattern, durableName string, start StartPosition) (Subscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub := &memorySubscription{
		pattern:     pattern,
		durableName: durableName,
		deliveries:  make(chan Delivery, 4096),
	}

	if start.Mode == StartAll {
		for _, le := range t.log {
			if MatchSubject(pattern, le.subject) {
				sub.deliver(le.subject, le.event)
			}
		}
	}

	t.subs = append(t.subs, sub)
	return sub, nil
}

func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

type memorySubscription struct {
	pattern     string
	durableName string
	deliveries  chan Delivery

	mu     sync.Mutex
	closed bool
}

// deliver is always called with MemoryTransport.mu held by the caller
// (Publish or Subscribe). A subscription's Close does not take that lock,
// so deliver holds the subscription's own mutex across the closed check
// and the send; Close cannot close the channel in between.
func (s *memorySubscription) deliver(subject string, ev eventlog.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.deliveries <- Delivery{
		Event: ev,
		Ack:   func() error { return nil },
		Nack: func(after time.Duration) error {
			return fmt.Errorf("transport: memory subscription %s: nack is a no-op, retry via at-least-once redelivery upstream", s.durableName)
		},
	}
}

func (s *memorySubscription) Deliveries() <-chan Delivery { return s.deliveries }

// Close may be called independently by a consumer (e.g. internal/projection
// tearing down its own subscriptions) or by MemoryTransport.Close tearing
// down every subscription at once; the mutex makes the idempotent close
// safe against both call sites racing each other.
func (s *memorySubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.deliveries)
	}
	return nil
}
