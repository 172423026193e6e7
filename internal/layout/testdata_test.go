package layout

import (
	"fmt"
	"testing"

	"github.com/cimalchemist/alchemist/internal/graph"
	"github.com/stretchr/testify/require"
)

// buildChain returns a graph a->b->c->d, useful for exercising
// components/articulation-points/hierarchical layering.
func buildChain(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	seq := int64(0)
	apply := func(e graph.EventView) {
		e.Sequence = seq
		seq++
		require.NoError(t, g.Apply(e))
	}

	apply(graph.EventView{Kind: graph.KindGraphCreated, Payload: graph.GraphCreatedPayload("g1")})
	for _, id := range []string{"a", "b", "c", "d"} {
		apply(graph.EventView{Kind: graph.KindNodeAdded, Payload: graph.NodeAddedPayload(graph.NodeID(id), id, graph.Position{}, "", nil)})
	}
	edges := [][3]string{{"e1", "a", "b"}, {"e2", "b", "c"}, {"e3", "c", "d"}}
	for _, e := range edges {
		apply(graph.EventView{Kind: graph.KindEdgeAdded, Payload: graph.EdgeAddedPayload(graph.EdgeID(e[0]), graph.NodeID(e[1]), graph.NodeID(e[2]), "", nil)})
	}
	return g
}

// buildDenseGraph returns a deterministic n-node graph: node i connects to
// node i+1 (chain) plus every third node (extra cross edges), used for the
// force-directed determinism test.
func buildDenseGraph(t *testing.T, n int) *graph.Graph {
	t.Helper()
	g := graph.New()
	seq := int64(0)
	apply := func(e graph.EventView) {
		e.Sequence = seq
		seq++
		require.NoError(t, g.Apply(e))
	}
	apply(graph.EventView{Kind: graph.KindGraphCreated, Payload: graph.GraphCreatedPayload("g1")})
	for i := 0; i < n; i++ {
		id := graph.NodeID(fmt.Sprintf("n%04d", i))
		apply(graph.EventView{Kind: graph.KindNodeAdded, Payload: graph.NodeAddedPayload(id, string(id), graph.Position{}, "", nil)})
	}
	eid := 0
	addEdge := func(i, j int) {
		a := graph.NodeID(fmt.Sprintf("n%04d", i))
		b := graph.NodeID(fmt.Sprintf("n%04d", j))
		id := graph.EdgeID(fmt.Sprintf("e%05d", eid))
		eid++
		apply(graph.EventView{Kind: graph.KindEdgeAdded, Payload: graph.EdgeAddedPayload(id, a, b, "", nil)})
	}
	for i := 0; i < n-1; i++ {
		addEdge(i, i+1)
	}
	for i := 0; i+3 < n; i += 3 {
		addEdge(i, i+3)
	}
	return g
}
