package transport

import (
	"context"
	"time"

	"github.com/cimalchemist/alchemist/internal/eventlog"
)

// StartPosition selects where a new durable consumer begins reading.
// FromSequence is only meaningful when Mode is StartFromSequence.
type StartPosition struct {
	Mode         StartMode
	FromSequence int64
}

type StartMode int

const (
	// StartAll replays every retained message on the subject.
	StartAll StartMode = iota
	// StartNew delivers only messages published after the subscribe call.
	StartNew
	// StartFromSequence resumes from a specific durable sequence number.
	StartFromSequence
)

// Delivery wraps one received event together with the ack/nack callbacks
// the consumer uses to close out or redeliver it (spec §4.3).
type Delivery struct {
	Event eventlog.Event
	Ack   func() error
	Nack  func(redeliverAfter time.Duration) error
}

// Subscription is a durable, resumable consumer over a subject pattern.
type Subscription interface {
	// Deliveries yields received events in publish order for this
	// subject. The channel closes when the subscription is closed.
	Deliveries() <-chan Delivery
	Close() error
}

// Transport is the C3 contract: subject-addressed publish/subscribe with
// durable, at-least-once, in-order-per-subject delivery.
type Transport interface {
	// Publish sends ev to subject. Blocks (applying backpressure) rather
	// than dropping when the underlying fabric signals flow control.
	Publish(ctx context.Context, subject string, ev eventlog.Event) error

	// Subscribe creates or resumes a durable consumer named durableName
	// over pattern ("*" matches one dotted segment, ">" matches the
	// tail). Calling Subscribe again with the same durableName resumes
	// from its last acked position, ignoring start.
	Subscribe(ctx context.Context, pattern, durableName string, start StartPosition) (Subscription, error)

	Close() error
}
