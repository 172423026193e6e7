package projection

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimalchemist/alchemist/internal/aggregate"
	"github.com/cimalchemist/alchemist/internal/canon"
	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/transport"
)

func openTestStore(t *testing.T) *eventlog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := eventlog.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRuntime_ConsumesGraphEventsIntoSummary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := openTestStore(t)
	tr := transport.NewMemoryTransport()
	defer tr.Close()

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	graphRT := aggregate.New(store, aggregate.GraphHandler{}, aggregate.DefaultConfig(), nil)
	graphRT = graphRT.WithClock(func() time.Time { return fixed })

	publish := func(cmd aggregate.Command) {
		committed, _, err := graphRT.Handle(ctx, cmd)
		require.NoError(t, err)
		for _, ev := range committed {
			require.NoError(t, tr.Publish(ctx, ev.Subject, ev))
		}
	}

	publish(aggregate.Command{AggregateID: "g1", Kind: "Create"})
	publish(aggregate.Command{AggregateID: "g1", Kind: "AddNode", Payload: canon.NewObject(canon.P("node_id", canon.String("a")))})
	publish(aggregate.Command{AggregateID: "g1", Kind: "AddNode", Payload: canon.NewObject(canon.P("node_id", canon.String("b")))})
	publish(aggregate.Command{AggregateID: "g1", Kind: "AddEdge", Payload: canon.NewObject(
		canon.P("edge_id", canon.String("e1")),
		canon.P("source", canon.String("a")),
		canon.P("target", canon.String("b")),
	)})

	projRT := New(store, tr, GraphSummary{}, DefaultConfig(), nil)

	runCtx, runCancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- projRT.Run(runCtx) }()

	require.Eventually(t, func() bool {
		counts := projRT.State().Graphs["g1"]
		return counts.Nodes == 2 && counts.Edges == 1
	}, 2*time.Second, 10*time.Millisecond)

	runCancel()
	<-done

	counts := projRT.State().Graphs["g1"]
	assert.Equal(t, 2, counts.Nodes)
	assert.Equal(t, 1, counts.Edges)
}

// TestRuntime_S4_DuplicateRedeliveryIsNoOp covers spec §4.5's
// idempotence-by-CID contract for a redelivery that is NOT merely the
// immediately-prior event: two intervening events are applied before the
// duplicate resurfaces, so a bare "does this match the last CID" check
// would miss it and double-count.
func TestRuntime_S4_DuplicateRedeliveryIsNoOp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := openTestStore(t)
	tr := transport.NewMemoryTransport()
	defer tr.Close()

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	graphRT := aggregate.New(store, aggregate.GraphHandler{}, aggregate.DefaultConfig(), nil).WithClock(func() time.Time { return fixed })

	commit := func(cmd aggregate.Command) []eventlog.Event {
		committed, _, err := graphRT.Handle(ctx, cmd)
		require.NoError(t, err)
		return committed
	}

	created := commit(aggregate.Command{AggregateID: "g1", Kind: "Create"})
	nodeA := commit(aggregate.Command{AggregateID: "g1", Kind: "AddNode", Payload: canon.NewObject(canon.P("node_id", canon.String("a")))})
	nodeB := commit(aggregate.Command{AggregateID: "g1", Kind: "AddNode", Payload: canon.NewObject(canon.P("node_id", canon.String("b")))})

	projRT := New(store, tr, GraphSummary{}, DefaultConfig(), nil)
	runCtx, runCancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- projRT.Run(runCtx) }()

	require.NoError(t, tr.Publish(ctx, created[0].Subject, created[0]))
	require.NoError(t, tr.Publish(ctx, nodeA[0].Subject, nodeA[0]))
	require.NoError(t, tr.Publish(ctx, nodeB[0].Subject, nodeB[0]))
	// Redeliver the first AddNode after two further events have already
	// been applied — an exact repeat of an event that is no longer "last."
	require.NoError(t, tr.Publish(ctx, nodeA[0].Subject, nodeA[0]))

	require.Eventually(t, func() bool {
		return projRT.State().Graphs["g1"].Nodes == 2
	}, 2*time.Second, 10*time.Millisecond)

	runCancel()
	<-done

	assert.Equal(t, 2, projRT.State().Graphs["g1"].Nodes, "redelivered node_added must not be double-counted")
}

// TestRuntime_HaltsAfterExhaustingRetryBudget covers spec §4.5's halt
// path: a projection whose Apply always errors must halt once
// MaxApplyAttempts is exhausted, and persist a Halted cursor.
func TestRuntime_HaltsAfterExhaustingRetryBudget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := openTestStore(t)
	tr := transport.NewMemoryTransport()
	defer tr.Close()

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	graphRT := aggregate.New(store, aggregate.GraphHandler{}, aggregate.DefaultConfig(), nil).WithClock(func() time.Time { return fixed })
	committed, _, err := graphRT.Handle(ctx, aggregate.Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	require.NoError(t, tr.Publish(ctx, committed[0].Subject, committed[0]))

	cfg := Config{MaxApplyAttempts: 2, BaseBackoff: time.Millisecond}
	projRT := New(store, tr, alwaysFailingProjection{}, cfg, nil).WithSleep(func(time.Duration) {})

	err = projRT.Run(ctx)
	require.Error(t, err)
	var halted *Halted
	require.ErrorAs(t, err, &halted)
	assert.Equal(t, "always-fails", halted.Name)

	cursor, found, err := store.LoadCursor(ctx, "always-fails")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cursor.Halted)
}

type alwaysFailingProjection struct{}

func (alwaysFailingProjection) Name() string                    { return "always-fails" }
func (alwaysFailingProjection) Patterns() []string              { return []string{"events.domain.graph.>"} }
func (alwaysFailingProjection) Initial() int                    { return 0 }
func (alwaysFailingProjection) EncodeState(int) ([]byte, error) { return []byte("0"), nil }
func (alwaysFailingProjection) DecodeState([]byte) (int, error) { return 0, nil }

func (alwaysFailingProjection) Apply(state int, ev eventlog.Event) (int, error) {
	return state, fmt.Errorf("projection: synthetic apply failure for %s", ev.CID)
}
