package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func created(id string) EventView {
	return EventView{Sequence: 0, Kind: KindGraphCreated, Payload: GraphCreatedPayload(id)}
}

func TestApply_GraphLifecycle(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	assert.Equal(t, "g1", g.ID())
	assert.False(t, g.Archived())

	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindGraphArchived, Payload: GraphArchivedPayload()}))
	assert.True(t, g.Archived())
}

func TestApply_RejectsOutOfOrder(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))

	err := g.Apply(EventView{Sequence: 5, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "", nil)})
	var ooo *OutOfOrder
	require.ErrorAs(t, err, &ooo)
	assert.Equal(t, int64(1), ooo.Expected)
	assert.Equal(t, int64(5), ooo.Got)
}

// TestApply_S1 follows the scenario: create graph, add two nodes, one edge.
// Expect: 2 nodes, 1 edge.
func TestApply_S1_CreateAddNodesAddEdge(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{0, 0, 0}, "", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 2, Kind: KindNodeAdded, Payload: NodeAddedPayload("b", "B", Position{1, 0, 0}, "", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 3, Kind: KindEdgeAdded, Payload: EdgeAddedPayload("e1", "a", "b", "ref", nil)}))

	assert.Len(t, g.Nodes(), 2)
	assert.Len(t, g.Edges(), 1)

	a, ok := g.Node("a")
	require.True(t, ok)
	assert.Equal(t, "A", a.Label)

	e1, ok := g.Edge("e1")
	require.True(t, ok)
	assert.Equal(t, NodeID("a"), e1.Source)
	assert.Equal(t, NodeID("b"), e1.Target)

	assert.Equal(t, []NodeID{"b"}, g.Neighbors("a", Outgoing))
	assert.Equal(t, []NodeID{"a"}, g.Neighbors("b", Incoming))
}

// TestApply_S2 follows the value-object relationship change scenario: an
// edge's kind changes only via Removed+Added with a new edge id, never an
// in-place Updated.
func TestApply_S2_EdgeKindChangeViaRemoveAdd(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 2, Kind: KindNodeAdded, Payload: NodeAddedPayload("b", "B", Position{}, "", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 3, Kind: KindEdgeAdded, Payload: EdgeAddedPayload("e1", "a", "b", "ref", nil)}))

	require.NoError(t, g.Apply(EventView{Sequence: 4, Kind: KindEdgeRemoved, Payload: EdgeRemovedPayload("e1")}))
	require.NoError(t, g.Apply(EventView{Sequence: 5, Kind: KindEdgeAdded, Payload: EdgeAddedPayload("e1-2", "a", "b", "depends_on", nil)}))

	_, ok := g.Edge("e1")
	assert.False(t, ok, "old edge id must no longer resolve")

	e2, ok := g.Edge("e1-2")
	require.True(t, ok)
	assert.Equal(t, "depends_on", e2.Kind)
	assert.Len(t, g.Edges(), 1)
}

func TestApply_NodeContentReplacementKeepsNodeIDStable(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "note", nil)}))

	require.NoError(t, g.Apply(EventView{Sequence: 2, Kind: KindNodeContentRemoved, Payload: NodeContentRemovedPayload("a", 0)}))
	require.NoError(t, g.Apply(EventView{Sequence: 3, Kind: KindNodeContentAdded, Payload: NodeContentAddedPayload("a", 1, "A2", "note", nil)}))

	a, ok := g.Node("a")
	require.True(t, ok, "node id must survive content replacement")
	assert.Equal(t, "A2", a.Label)
	assert.Equal(t, int64(1), a.ContentSeq)
}

func TestApply_NodeRemovedClearsAdjacency(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 2, Kind: KindNodeAdded, Payload: NodeAddedPayload("b", "B", Position{}, "", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 3, Kind: KindEdgeAdded, Payload: EdgeAddedPayload("e1", "a", "b", "ref", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 4, Kind: KindEdgeRemoved, Payload: EdgeRemovedPayload("e1")}))
	require.NoError(t, g.Apply(EventView{Sequence: 5, Kind: KindNodeRemoved, Payload: NodeRemovedPayload("a")}))

	_, ok := g.Node("a")
	assert.False(t, ok)
	assert.Empty(t, g.Neighbors("b", Incoming))
}

func TestApply_EdgeAddedRejectsMissingEndpoint(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "", nil)}))

	err := g.Apply(EventView{Sequence: 2, Kind: KindEdgeAdded, Payload: EdgeAddedPayload("e1", "a", "ghost", "ref", nil)})
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestApply_DuplicateNodeIDRejected(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "", nil)}))

	err := g.Apply(EventView{Sequence: 2, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A2", Position{}, "", nil)})
	assert.Error(t, err)
}

func TestApply_SubgraphComposed(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "", nil)}))
	require.NoError(t, g.Apply(EventView{Sequence: 2, Kind: KindNodeAdded, Payload: NodeAddedPayload("b", "B", Position{}, "", nil)}))
	require.NoError(t, g.Apply(EventView{
		Sequence: 3,
		Kind:     KindSubgraphComposed,
		Payload:  SubgraphComposedPayload("sg1", []NodeID{"a", "b"}, BoundaryConvexHull),
	}))

	sg, ok := g.Subgraph("sg1")
	require.True(t, ok)
	assert.Len(t, sg.Members, 2)
	assert.Equal(t, BoundaryConvexHull, sg.Boundary)
}

func TestApply_SubgraphRemoved(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{}, "", nil)}))
	require.NoError(t, g.Apply(EventView{
		Sequence: 2,
		Kind:     KindSubgraphComposed,
		Payload:  SubgraphComposedPayload("sg1", []NodeID{"a"}, BoundaryConvexHull),
	}))
	require.NoError(t, g.Apply(EventView{Sequence: 3, Kind: KindSubgraphRemoved, Payload: SubgraphRemovedPayload("sg1")}))

	_, ok := g.Subgraph("sg1")
	assert.False(t, ok)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	g := New()
	require.NoError(t, g.Apply(created("g1")))
	require.NoError(t, g.Apply(EventView{Sequence: 1, Kind: KindNodeAdded, Payload: NodeAddedPayload("a", "A", Position{1, 2, 3}, "note", []float64{0.1, 0.2})}))
	require.NoError(t, g.Apply(EventView{Sequence: 2, Kind: KindNodeAdded, Payload: NodeAddedPayload("b", "B", Position{}, "", nil)}))
	weight := 2.5
	require.NoError(t, g.Apply(EventView{Sequence: 3, Kind: KindEdgeAdded, Payload: EdgeAddedPayload("e1", "a", "b", "ref", &weight)}))

	data, err := g.Snapshot()
	require.NoError(t, err)

	restored, err := Restore(data)
	require.NoError(t, err)

	assert.Equal(t, g.ID(), restored.ID())
	assert.Equal(t, g.NextSequence(), restored.NextSequence())

	a, ok := restored.Node("a")
	require.True(t, ok)
	assert.Equal(t, "A", a.Label)
	assert.Equal(t, Position{1, 2, 3}, a.Pos)

	e1, ok := restored.Edge("e1")
	require.True(t, ok)
	require.NotNil(t, e1.Weight)
	assert.Equal(t, 2.5, *e1.Weight)

	assert.Equal(t, []NodeID{"b"}, restored.Neighbors("a", Outgoing))
}
