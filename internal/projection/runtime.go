package projection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/transport"
)

// Config bounds a projection's retry behavior before it halts (spec
// §4.5: "retried with exponential backoff; after a bounded attempts
// window, the projection halts").
type Config struct {
	MaxApplyAttempts int
	BaseBackoff      time.Duration
}

// DefaultConfig gives a projection a handful of exponential-backoff
// attempts before giving up and halting.
func DefaultConfig() Config {
	return Config{MaxApplyAttempts: 5, BaseBackoff: 50 * time.Millisecond}
}

// Halted is returned by Run when a projection has exhausted its retry
// budget on one event and stopped consuming further events.
type Halted struct {
	Name   string
	CID    string
	Reason string
}

func (e *Halted) Error() string {
	return fmt.Sprintf("projection: %s halted at cid %s: %s", e.Name, e.CID, e.Reason)
}

// Runtime drives one Projection's at-least-once, idempotent-by-CID
// consumption loop (spec component C5).
type Runtime[S any] struct {
	store     *eventlog.Store
	transport transport.Transport
	proj      Projection[S]
	cfg       Config
	log       *slog.Logger
	sleep     func(time.Duration)

	state S
}

// New builds a Runtime for proj, consuming from tr and checkpointing
// through store.
func New[S any](store *eventlog.Store, tr transport.Transport, proj Projection[S], cfg Config, log *slog.Logger) *Runtime[S] {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime[S]{store: store, transport: tr, proj: proj, cfg: cfg, log: log, sleep: time.Sleep}
}

// WithSleep overrides the Runtime's backoff sleep function, for
// deterministic tests.
func (r *Runtime[S]) WithSleep(sleep func(time.Duration)) *Runtime[S] {
	r.sleep = sleep
	return r
}

// State returns the projection's current folded state.
func (r *Runtime[S]) State() S { return r.state }

// Run consumes events until ctx is cancelled, the projection halts, or
// subscription setup fails. A halt is terminal for this Runtime instance:
// the caller must address the cause and start a fresh Runtime (after
// calling Store.ResumeCursor) to continue.
func (r *Runtime[S]) Run(ctx context.Context) error {
	name := r.proj.Name()
	patterns := r.proj.Patterns()
	streamLabel := strings.Join(patterns, ",")

	cursor, found, err := r.store.LoadCursor(ctx, name)
	if err != nil {
		return fmt.Errorf("projection: load cursor: %w", err)
	}
	if !found {
		if err := r.store.EnsureCursor(ctx, name, streamLabel); err != nil {
			return fmt.Errorf("projection: ensure cursor: %w", err)
		}
		cursor, _, err = r.store.LoadCursor(ctx, name)
		if err != nil {
			return fmt.Errorf("projection: reload cursor: %w", err)
		}
	}
	if cursor.Halted {
		return &Halted{Name: name, CID: cursor.HaltCID, Reason: cursor.HaltReason}
	}

	r.state = r.proj.Initial()
	if len(cursor.StateBlob) > 0 {
		state, err := r.proj.DecodeState(cursor.StateBlob)
		if err != nil {
			return fmt.Errorf("projection: decode cursor state: %w", err)
		}
		r.state = state
	}

	start := transport.StartPosition{Mode: transport.StartAll}
	if cursor.Sequence >= 0 {
		start = transport.StartPosition{Mode: transport.StartFromSequence, FromSequence: cursor.Sequence + 1}
	}

	deliveries := make(chan transport.Delivery)
	var subs []transport.Subscription
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	for _, pattern := range patterns {
		sub, err := r.transport.Subscribe(ctx, pattern, name, start)
		if err != nil {
			return fmt.Errorf("projection: subscribe %q: %w", pattern, err)
		}
		subs = append(subs, sub)
		go fanIn(ctx, sub.Deliveries(), deliveries)
	}

	seq := cursor.Sequence
	lastCID := cursor.LastCID
	seen := newDedupWindow(dedupWindowSize)
	if lastCID != "" {
		seen.record(lastCID)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			cidStr := d.Event.CID.String()
			if seen.contains(cidStr) {
				// Redelivery of an event this Run already folded — not
				// just the immediately-prior one, since a nacked message
				// can resurface after later events from other aggregates
				// on the same pattern have already been applied. Spec
				// §4.5's idempotence-by-CID rule makes this a no-op.
				if err := d.Ack(); err != nil {
					r.log.Warn("projection ack failed", "projection", name, "error", err)
				}
				continue
			}

			if err := r.applyWithRetry(ctx, d.Event); err != nil {
				reason := err.Error()
				if haltErr := r.store.HaltCursor(ctx, name, cidStr, reason); haltErr != nil {
					r.log.Error("projection halt failed to persist", "projection", name, "error", haltErr)
				}
				if nackErr := d.Nack(0); nackErr != nil {
					r.log.Warn("projection nack failed", "projection", name, "error", nackErr)
				}
				return &Halted{Name: name, CID: cidStr, Reason: reason}
			}

			seq++
			lastCID = cidStr
			seen.record(cidStr)
			blob, err := r.proj.EncodeState(r.state)
			if err != nil {
				return fmt.Errorf("projection: encode state: %w", err)
			}
			if err := r.store.AdvanceCursor(ctx, name, seq, cidStr, blob); err != nil {
				return fmt.Errorf("projection: advance cursor: %w", err)
			}
			if err := d.Ack(); err != nil {
				r.log.Warn("projection ack failed", "projection", name, "error", err)
			}
		}
	}
}

func (r *Runtime[S]) applyWithRetry(ctx context.Context, ev eventlog.Event) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxApplyAttempts; attempt++ {
		state, err := r.proj.Apply(r.state, ev)
		if err == nil {
			r.state = state
			return nil
		}
		lastErr = err
		r.log.Debug("projection apply failed, retrying", "cid", ev.CID.String(), "attempt", attempt, "error", err)
		if attempt < r.cfg.MaxApplyAttempts-1 {
			backoff := r.cfg.BaseBackoff << attempt
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				r.sleep(backoff)
			}
		}
	}
	return lastErr
}

// dedupWindowSize bounds how many recently-applied CIDs a Runtime keeps
// for redelivery checks. This is a retry window, not a history log: the
// transport's at-least-once redelivery churns through a bounded number of
// nacked messages before giving up, never the whole stream, so a FIFO of
// this size comfortably outlives any in-flight redelivery.
const dedupWindowSize = 1024

// dedupWindow is a bounded, insertion-ordered set of recently-applied
// CIDs. Unlike a single last-CID comparison, it catches a redelivery that
// arrives after other (different-aggregate) events on the same pattern
// have already advanced the cursor past it.
type dedupWindow struct {
	limit int
	seen  map[string]struct{}
	order []string
}

func newDedupWindow(limit int) *dedupWindow {
	return &dedupWindow{limit: limit, seen: make(map[string]struct{}, limit)}
}

func (d *dedupWindow) contains(cidStr string) bool {
	_, ok := d.seen[cidStr]
	return ok
}

func (d *dedupWindow) record(cidStr string) {
	if _, ok := d.seen[cidStr]; ok {
		return
	}
	d.seen[cidStr] = struct{}{}
	d.order = append(d.order, cidStr)
	if len(d.order) > d.limit {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
}

func fanIn(ctx context.Context, in <-chan transport.Delivery, out chan<- transport.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}
}
