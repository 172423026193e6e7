package layout

import (
	"testing"

	"github.com/cimalchemist/alchemist/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnalyze_S1_TwoNodesOneEdgeDensityHalf follows the scenario: a graph
// with 2 nodes and 1 edge has density |E|/(|N|*(|N|-1)) = 1/2.
func TestAnalyze_S1_TwoNodesOneEdgeDensityHalf(t *testing.T) {
	g := graph.New()
	seq := int64(0)
	apply := func(e graph.EventView) {
		e.Sequence = seq
		seq++
		require.NoError(t, g.Apply(e))
	}
	apply(graph.EventView{Kind: graph.KindGraphCreated, Payload: graph.GraphCreatedPayload("g1")})
	apply(graph.EventView{Kind: graph.KindNodeAdded, Payload: graph.NodeAddedPayload("a", "A", graph.Position{}, "", nil)})
	apply(graph.EventView{Kind: graph.KindNodeAdded, Payload: graph.NodeAddedPayload("b", "B", graph.Position{}, "", nil)})
	apply(graph.EventView{Kind: graph.KindEdgeAdded, Payload: graph.EdgeAddedPayload("e1", "a", "b", "", nil)})

	reports := Analyze(g, DefaultAnalysisConfig())
	require.Len(t, reports, 1)
	assert.Equal(t, 0.5, reports[0].Density)
	assert.Equal(t, 1, reports[0].Diameter)
	assert.True(t, reports[0].Bipartite)
}

func TestAnalyze_ChainIsBipartiteWithDiameterThree(t *testing.T) {
	g := buildChain(t)
	reports := Analyze(g, DefaultAnalysisConfig())
	require.Len(t, reports, 1)
	assert.Equal(t, 3, reports[0].Diameter)
	assert.True(t, reports[0].Bipartite)
}

func TestAnalyze_TriangleIsNotBipartite(t *testing.T) {
	g := graph.New()
	seq := int64(0)
	apply := func(e graph.EventView) {
		e.Sequence = seq
		seq++
		require.NoError(t, g.Apply(e))
	}
	apply(graph.EventView{Kind: graph.KindGraphCreated, Payload: graph.GraphCreatedPayload("g1")})
	for _, id := range []string{"a", "b", "c"} {
		apply(graph.EventView{Kind: graph.KindNodeAdded, Payload: graph.NodeAddedPayload(graph.NodeID(id), id, graph.Position{}, "", nil)})
	}
	apply(graph.EventView{Kind: graph.KindEdgeAdded, Payload: graph.EdgeAddedPayload("e1", "a", "b", "", nil)})
	apply(graph.EventView{Kind: graph.KindEdgeAdded, Payload: graph.EdgeAddedPayload("e2", "b", "c", "", nil)})
	apply(graph.EventView{Kind: graph.KindEdgeAdded, Payload: graph.EdgeAddedPayload("e3", "c", "a", "", nil)})

	reports := Analyze(g, DefaultAnalysisConfig())
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Bipartite)
}

func TestAnalyze_DiameterUnboundedPastSizeThreshold(t *testing.T) {
	g := buildDenseGraph(t, 10)
	reports := Analyze(g, AnalysisConfig{DiameterSizeThreshold: 5})
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Unbounded)
	assert.Equal(t, 0, reports[0].Diameter)
}
