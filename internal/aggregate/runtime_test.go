package aggregate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimalchemist/alchemist/internal/canon"
	"github.com/cimalchemist/alchemist/internal/eventlog"
	"github.com/cimalchemist/alchemist/internal/graph"
)

func openTestStore(t *testing.T) *eventlog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := eventlog.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRuntime(t *testing.T) *Runtime[*graph.Graph] {
	t.Helper()
	store := openTestStore(t)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return New[*graph.Graph](store, GraphHandler{}, DefaultConfig(), nil).WithClock(func() time.Time { return fixed })
}

// TestHandle_S1 mirrors the scenario: create graph, add two nodes, one
// edge; four events at sequences 0..3.
func TestHandle_S1_CreateAddNodesAddEdge(t *testing.T) {
	ctx := context.Background()
	rt := testRuntime(t)

	committed, state, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, int64(0), committed[0].Sequence)
	assert.Equal(t, "g1", state.ID())

	committed, state, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("a")), canon.P("label", canon.String("A"))),
	})
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, int64(1), committed[0].Sequence)

	_, state, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("b")), canon.P("label", canon.String("B"))),
	})
	require.NoError(t, err)

	committed, state, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddEdge",
		Payload: canon.NewObject(
			canon.P("edge_id", canon.String("e1")),
			canon.P("source", canon.String("a")),
			canon.P("target", canon.String("b")),
			canon.P("kind", canon.String("ref")),
		),
	})
	require.NoError(t, err)
	require.Len(t, committed, 1)
	assert.Equal(t, int64(3), committed[0].Sequence)

	assert.Len(t, state.Nodes(), 2)
	assert.Len(t, state.Edges(), 1)
}

func TestHandle_DuplicateCreateRejected(t *testing.T) {
	ctx := context.Background()
	rt := testRuntime(t)

	_, _, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)

	_, _, err = rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	var derr *DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, AlreadyExists, derr.Kind)
}

func TestHandle_ReplaceNodeContentEmitsRemovedThenAdded(t *testing.T) {
	ctx := context.Background()
	rt := testRuntime(t)

	_, _, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("a")), canon.P("label", canon.String("A"))),
	})
	require.NoError(t, err)

	committed, state, err := rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "ReplaceNodeContent",
		Payload: canon.NewObject(canon.P("node_id", canon.String("a")), canon.P("label", canon.String("A2"))),
	})
	require.NoError(t, err)
	require.Len(t, committed, 2)
	assert.Contains(t, committed[0].Subject, graph.KindNodeContentRemoved)
	assert.Contains(t, committed[1].Subject, graph.KindNodeContentAdded)
	assert.Equal(t, committed[0].CorrelationID, committed[1].CorrelationID)

	a, ok := state.Node("a")
	require.True(t, ok)
	assert.Equal(t, "A2", a.Label)
}

// TestHandle_S2_ChangeEdgeKindEmitsRemovedThenAdded exercises spec §8 S2
// through the real command pipeline (Validate + requireLive + endpoint
// checks), not just graph.Apply() fed hand-crafted events directly.
func TestHandle_S2_ChangeEdgeKindEmitsRemovedThenAdded(t *testing.T) {
	ctx := context.Background()
	rt := testRuntime(t)

	_, _, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("a"))),
	})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("b"))),
	})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddEdge",
		Payload: canon.NewObject(
			canon.P("edge_id", canon.String("e1")),
			canon.P("source", canon.String("a")),
			canon.P("target", canon.String("b")),
			canon.P("kind", canon.String("ref")),
		),
	})
	require.NoError(t, err)

	committed, state, err := rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "ChangeEdgeKind",
		Payload: canon.NewObject(
			canon.P("edge_id", canon.String("e1")),
			canon.P("to_edge_id", canon.String("e1-2")),
			canon.P("to", canon.String("depends_on")),
		),
	})
	require.NoError(t, err)
	require.Len(t, committed, 2)
	assert.Contains(t, committed[0].Subject, graph.KindEdgeRemoved)
	assert.Contains(t, committed[1].Subject, graph.KindEdgeAdded)
	assert.Equal(t, committed[0].CorrelationID, committed[1].CorrelationID)

	_, ok := state.Edge("e1")
	assert.False(t, ok, "old edge id must no longer resolve")
	e2, ok := state.Edge("e1-2")
	require.True(t, ok)
	assert.Equal(t, "depends_on", e2.Kind)
	assert.Equal(t, graph.NodeID("a"), e2.Source)
	assert.Equal(t, graph.NodeID("b"), e2.Target)
}

func TestHandle_AddEdgeMissingSourceRejected(t *testing.T) {
	ctx := context.Background()
	rt := testRuntime(t)
	_, _, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)

	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddEdge",
		Payload: canon.NewObject(
			canon.P("edge_id", canon.String("e1")),
			canon.P("source", canon.String("ghost")),
			canon.P("target", canon.String("also-ghost")),
		),
	})
	var derr *DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, NotFound, derr.Kind)
}

func TestHandle_ArchiveThenFurtherCommandsRejected(t *testing.T) {
	ctx := context.Background()
	rt := testRuntime(t)
	_, _, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Archive"})
	require.NoError(t, err)

	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("a"))),
	})
	var derr *DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, PreconditionFailed, derr.Kind)
}

// TestHandle_ArchiveCascadesRemovalOfContainedEntities covers the
// lifecycle rule that a graph exclusively owns its nodes, edges, and
// subgraphs: archiving it must remove every contained entity in the same
// batch, not just flip the graph's own archived flag.
func TestHandle_ArchiveCascadesRemovalOfContainedEntities(t *testing.T) {
	ctx := context.Background()
	rt := testRuntime(t)

	_, _, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("a"))),
	})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("b"))),
	})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddEdge",
		Payload: canon.NewObject(
			canon.P("edge_id", canon.String("e1")),
			canon.P("source", canon.String("a")),
			canon.P("target", canon.String("b")),
		),
	})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "ComposeSubgraph",
		Payload: canon.NewObject(
			canon.P("subgraph_id", canon.String("sg1")),
			canon.P("members", canon.Array{canon.String("a"), canon.String("b")}),
		),
	})
	require.NoError(t, err)

	committed, state, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Archive"})
	require.NoError(t, err)
	require.Len(t, committed, 5, "1 edge + 2 nodes + 1 subgraph removed, then archived")
	assert.Contains(t, committed[len(committed)-1].Subject, graph.KindGraphArchived)

	assert.True(t, state.Archived())
	assert.Empty(t, state.Nodes())
	assert.Empty(t, state.Edges())
	_, ok := state.Subgraph("sg1")
	assert.False(t, ok)
}

func TestHandle_SnapshotAndReload(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{MaxConflictRetries: 5, SnapshotIntervalEvents: 1}
	rt := New[*graph.Graph](store, GraphHandler{}, cfg, nil).WithClock(func() time.Time { return fixed })

	_, _, err := rt.Handle(ctx, Command{AggregateID: "g1", Kind: "Create"})
	require.NoError(t, err)
	_, _, err = rt.Handle(ctx, Command{
		AggregateID: "g1", Kind: "AddNode",
		Payload: canon.NewObject(canon.P("node_id", canon.String("a")), canon.P("label", canon.String("A"))),
	})
	require.NoError(t, err)

	blob, uptoSeq, found, err := store.LoadSnapshot(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1), uptoSeq)

	restored, err := GraphHandler{}.DecodeState(blob)
	require.NoError(t, err)
	assert.Equal(t, "g1", restored.ID())
	_, ok := restored.Node("a")
	assert.True(t, ok)
}
