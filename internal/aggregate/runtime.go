package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cimalchemist/alchemist/internal/canon"
	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/transport"
)

// Clock supplies the wall-clock timestamp stamped on newly appended
// events. Tests inject a fixed clock; production wires time.Now,
// mirroring the teacher's injectable-clock shape in internal/engine
// (there a logical clock, here a wall clock, since eventlog.Event.
// TimestampUTC is observational metadata, not an ordering key).
type Clock func() time.Time

// Config bounds the Runtime's retry and snapshot behavior (spec §8's
// snapshot_interval_events and the command-handling retry budget in
// §4.4/§5).
type Config struct {
	MaxConflictRetries     int
	SnapshotIntervalEvents int64
}

// DefaultConfig matches the values spec.md's default table implies when
// unset: a handful of retries, snapshot every few hundred events.
func DefaultConfig() Config {
	return Config{MaxConflictRetries: 5, SnapshotIntervalEvents: 200}
}

// Runtime is the generic command-handling engine (spec component C4). One
// Runtime instance serves exactly one aggregate family, selected by its
// Handler.
type Runtime[S any] struct {
	store   *eventlog.Store
	handler Handler[S]
	cfg     Config
	clock   Clock
	log     *slog.Logger
}

// New builds a Runtime for handler, backed by store.
func New[S any](store *eventlog.Store, handler Handler[S], cfg Config, log *slog.Logger) *Runtime[S] {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime[S]{store: store, handler: handler, cfg: cfg, clock: time.Now, log: log}
}

// WithClock overrides the Runtime's wall clock, for deterministic tests.
func (r *Runtime[S]) WithClock(c Clock) *Runtime[S] {
	r.clock = c
	return r
}

// loadedState is the result of reconstructing an aggregate's state: the
// folded value, and the sequence number its next event must carry.
type loadedState[S any] struct {
	state   S
	nextSeq int64
}

func (r *Runtime[S]) load(ctx context.Context, aggregateID string) (loadedState[S], error) {
	state := r.handler.Initial()
	fromSeq := int64(0)

	if blob, uptoSeq, found, err := r.store.LoadSnapshot(ctx, aggregateID); err != nil {
		return loadedState[S]{}, fmt.Errorf("aggregate: load snapshot: %w", err)
	} else if found {
		decoded, err := r.handler.DecodeState(blob)
		if err != nil {
			return loadedState[S]{}, fmt.Errorf("aggregate: decode snapshot: %w", err)
		}
		state = decoded
		fromSeq = uptoSeq + 1
	}

	events, err := r.store.ReadAggregate(ctx, aggregateID, fromSeq)
	if err != nil {
		return loadedState[S]{}, fmt.Errorf("aggregate: replay: %w", err)
	}

	nextSeq := fromSeq
	for _, ev := range events {
		payload, ok := ev.Payload.(canon.Object)
		if !ok {
			return loadedState[S]{}, fmt.Errorf("aggregate: replay: event %s payload is not an object", ev.CID)
		}
		state, err = r.handler.Apply(state, EventView{
			Sequence:      ev.Sequence,
			Kind:          lastSubjectSegment(ev.Subject),
			CorrelationID: ev.CorrelationID,
			Payload:       payload,
		})
		if err != nil {
			return loadedState[S]{}, fmt.Errorf("aggregate: replay: apply sequence %d: %w", ev.Sequence, err)
		}
		nextSeq = ev.Sequence + 1
	}

	return loadedState[S]{state: state, nextSeq: nextSeq}, nil
}

// Handle runs the full pipeline from spec §4.4: load, validate, fold,
// append, retrying on ConcurrencyConflict up to cfg.MaxConflictRetries.
// It returns the committed events and the post-fold state.
func (r *Runtime[S]) Handle(ctx context.Context, cmd Command) ([]eventlog.Event, S, error) {
	var zero S

	for attempt := 0; attempt <= r.cfg.MaxConflictRetries; attempt++ {
		loaded, err := r.load(ctx, cmd.AggregateID)
		if err != nil {
			return nil, zero, err
		}

		drafts, err := r.handler.Validate(loaded.state, cmd)
		if err != nil {
			return nil, zero, err
		}
		if len(drafts) == 0 {
			return nil, loaded.state, nil
		}

		state := loaded.state
		seq := loaded.nextSeq
		folded := make([]EventView, 0, len(drafts))
		for _, d := range drafts {
			view := EventView{Sequence: seq, Kind: d.Kind, CorrelationID: d.CorrelationID, Payload: d.Payload}
			state, err = r.handler.Apply(state, view)
			if err != nil {
				return nil, zero, fmt.Errorf("aggregate: fold draft %q: %w", d.Kind, err)
			}
			folded = append(folded, view)
			seq++
		}

		committed, conflict, err := r.appendBatch(ctx, cmd.AggregateID, loaded.nextSeq, drafts)
		if err != nil {
			return nil, zero, err
		}
		if conflict {
			r.log.Debug("aggregate concurrency conflict, retrying",
				"aggregate_id", cmd.AggregateID, "attempt", attempt)
			continue
		}

		if err := r.maybeSnapshot(ctx, cmd.AggregateID, state, seq-1); err != nil {
			r.log.Warn("aggregate snapshot failed", "aggregate_id", cmd.AggregateID, "error", err)
		}

		return committed, state, nil
	}

	return nil, zero, &Conflict{AggregateID: cmd.AggregateID, Attempts: r.cfg.MaxConflictRetries}
}

// appendBatch appends each draft in sequence order, starting at
// startSeq. A ConcurrencyConflict on any draft aborts the whole batch
// (already-appended drafts in this attempt remain committed; the retry
// reloads state and reproduces them idempotently since their CIDs are
// derived from the same inputs).
func (r *Runtime[S]) appendBatch(ctx context.Context, aggregateID string, startSeq int64, drafts []EventDraft) ([]eventlog.Event, bool, error) {
	stream := r.handler.Domain()
	now := r.clock()
	seq := startSeq
	committed := make([]eventlog.Event, 0, len(drafts))

	for _, d := range drafts {
		subject, err := transport.EventSubject(r.handler.Domain(), aggregateID, d.Kind)
		if err != nil {
			return nil, false, fmt.Errorf("aggregate: build subject: %w", err)
		}
		ev, err := r.store.Append(ctx, stream, aggregateID, seq, subject, d.CorrelationID, d.CausationID, canon.Value(d.Payload), now)
		if err != nil {
			if eventlog.IsConcurrencyConflict(err) {
				return committed, true, nil
			}
			return nil, false, fmt.Errorf("aggregate: append: %w", err)
		}
		committed = append(committed, ev)
		seq++
	}
	return committed, false, nil
}

func (r *Runtime[S]) maybeSnapshot(ctx context.Context, aggregateID string, state S, uptoSeq int64) error {
	if r.cfg.SnapshotIntervalEvents <= 0 {
		return nil
	}
	if uptoSeq < 0 || uptoSeq%r.cfg.SnapshotIntervalEvents != 0 {
		return nil
	}
	blob, err := r.handler.EncodeState(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return r.store.Snapshot(ctx, aggregateID, blob, uptoSeq)
}

func lastSubjectSegment(subject string) string {
	for i := len(subject) - 1; i >= 0; i-- {
		if subject[i] == '.' {
			return subject[i+1:]
		}
	}
	return subject
}
