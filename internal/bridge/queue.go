package bridge

import (
	"context"
	"errors"
	"sync"

	"github.com/cimalchemist/alchemist/internal/canon"
)

// ErrClosed is returned by Send/Receive once the queue has been closed.
var ErrClosed = errors.New("bridge: queue closed")

// ErrFull is returned by TrySend when the queue is at capacity and item's
// Kind is not registered as idempotent, i.e. it cannot be coalesced away.
var ErrFull = errors.New("bridge: queue full")

// Item is one unit carried across the bridge: a monotonically assigned
// per-direction sequence number, a dispatch Kind, an optional
// CoalesceKey identifying "the same logical update" across sends, and an
// opaque Payload.
type Item struct {
	Seq         int64
	Kind        string
	CoalesceKey string
	Payload     canon.Value
}

// Queue is a bounded SPSC item queue with coalescing overflow handling
// for a configured set of idempotent kinds.
type Queue struct {
	mu       sync.Mutex
	capacity int
	items    []Item
	index    map[string]int // coalesceKey -> position in items, idempotent kinds only
	closed   bool
	signal   chan struct{}
	nextSeq  int64

	idempotent map[string]struct{}
}

// NewQueue builds a Queue with the given fixed capacity. idempotentKinds
// lists the Item.Kind values eligible for in-place coalescing: a send of
// such a kind merges into a pending item with the same coalesce key
// whether or not the queue is full.
func NewQueue(capacity int, idempotentKinds ...string) *Queue {
	idem := make(map[string]struct{}, len(idempotentKinds))
	for _, k := range idempotentKinds {
		idem[k] = struct{}{}
	}
	return &Queue{
		capacity:   capacity,
		index:      make(map[string]int),
		signal:     make(chan struct{}, 1),
		idempotent: idem,
	}
}

func (q *Queue) isIdempotent(kind string) bool {
	_, ok := q.idempotent[kind]
	return ok
}

// TrySend enqueues kind/coalesceKey/payload as a new Item, or, if kind is
// idempotent and a pending item with the same coalesceKey already sits in
// the queue, overwrites that item's payload in place (spec §5: "multiple
// MoveNode for the same node collapse to the latest"). It returns the
// assigned sequence number and whether the item was merged into an
// existing one rather than appended.
//
// When the queue is full and kind is not idempotent (or has no
// coalesceKey), TrySend returns ErrFull: the caller is expected to nack
// upstream rather than block or drop silently.
func (q *Queue) TrySend(kind, coalesceKey string, payload canon.Value) (seq int64, coalesced bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, false, ErrClosed
	}

	if coalesceKey != "" && q.isIdempotent(kind) {
		if idx, ok := q.index[coalesceKey]; ok {
			q.nextSeq++
			q.items[idx].Payload = payload
			q.items[idx].Seq = q.nextSeq
			q.signalAvailable()
			return q.nextSeq, true, nil
		}
	}

	if len(q.items) >= q.capacity {
		return 0, false, ErrFull
	}

	q.nextSeq++
	item := Item{Seq: q.nextSeq, Kind: kind, CoalesceKey: coalesceKey, Payload: payload}
	if coalesceKey != "" && q.isIdempotent(kind) {
		q.index[coalesceKey] = len(q.items)
	}
	q.items = append(q.items, item)
	q.signalAvailable()
	return q.nextSeq, false, nil
}

func (q *Queue) signalAvailable() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Receive blocks until an item is available, the queue is closed, or ctx
// is cancelled.
func (q *Queue) Receive(ctx context.Context) (Item, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			for key, idx := range q.index {
				if idx == 0 {
					delete(q.index, key)
				} else {
					q.index[key] = idx - 1
				}
			}
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Item{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close performs a cooperative shutdown: pending items remain readable via
// Receive until drained, after which Receive returns ErrClosed. Further
// TrySend calls fail immediately with ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.signalAvailable()
}
