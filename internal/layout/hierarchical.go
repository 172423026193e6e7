package layout

import (
	"sort"

	"github.com/cimalchemist/alchemist/internal/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Layer is one row of a hierarchical layout: the node ids assigned to it,
// in left-to-right display order.
type Layer struct {
	Nodes []graph.NodeID
}

// Hierarchical assigns every live node of g a layer (its longest-path
// distance from a source, with cyclic regions condensed to a single
// layer via strongly connected components) and an order within that
// layer computed by the barycenter heuristic: a node's sort key is the
// mean in-layer position of its edge predecessors (0 for a node without
// predecessors), ties broken by node id ascending. The result is deterministic for a fixed graph.
func Hierarchical(g *graph.Graph) []Layer {
	ids := sortedNodeIDs(g)
	if len(ids) == 0 {
		return nil
	}

	index := make(map[graph.NodeID]int64, len(ids))
	byIndex := make([]graph.NodeID, len(ids))
	for i, id := range ids {
		index[id] = int64(i)
		byIndex[i] = id
	}

	dg := simple.NewDirectedGraph()
	for _, i := range index {
		dg.AddNode(simple.Node(i))
	}
	for _, eid := range g.Edges() {
		e, ok := g.Edge(eid)
		if !ok {
			continue
		}
		from, to := index[e.Source], index[e.Target]
		if from == to {
			continue
		}
		dg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	sccs := topo.TarjanSCC(dg)
	component := make([]int, len(ids))
	for compID, scc := range sccs {
		for _, n := range scc {
			component[n.ID()] = compID
		}
	}

	// Condensation DAG: edge compA -> compB when some member of compA
	// points to a member of compB, compA != compB.
	compEdges := make(map[int]map[int]struct{})
	compIndegree := make(map[int]int)
	for c := range sccs {
		compEdges[c] = map[int]struct{}{}
		compIndegree[c] = 0
	}
	for _, eid := range g.Edges() {
		e, ok := g.Edge(eid)
		if !ok {
			continue
		}
		ca, cb := component[index[e.Source]], component[index[e.Target]]
		if ca == cb {
			continue
		}
		if _, exists := compEdges[ca][cb]; !exists {
			compEdges[ca][cb] = struct{}{}
			compIndegree[cb]++
		}
	}

	compLayer := make(map[int]int, len(sccs))
	queue := make([]int, 0, len(sccs))
	for c := 0; c < len(sccs); c++ {
		if compIndegree[c] == 0 {
			compLayer[c] = 0
			queue = append(queue, c)
		}
	}
	sort.Ints(queue)
	remaining := make(map[int]int, len(compIndegree))
	for c, d := range compIndegree {
		remaining[c] = d
	}
	for len(queue) > 0 {
		sort.Ints(queue)
		c := queue[0]
		queue = queue[1:]
		for next := range compEdges[c] {
			if compLayer[next] < compLayer[c]+1 {
				compLayer[next] = compLayer[c] + 1
			}
			remaining[next]--
			if remaining[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	maxLayer := 0
	nodeLayer := make(map[graph.NodeID]int, len(ids))
	for i, id := range byIndex {
		l := compLayer[component[i]]
		nodeLayer[id] = l
		if l > maxLayer {
			maxLayer = l
		}
	}

	layers := make([][]graph.NodeID, maxLayer+1)
	for _, id := range ids {
		l := nodeLayer[id]
		layers[l] = append(layers[l], id)
	}

	predecessors := make(map[graph.NodeID][]graph.NodeID)
	for _, eid := range g.Edges() {
		e, ok := g.Edge(eid)
		if !ok {
			continue
		}
		predecessors[e.Target] = append(predecessors[e.Target], e.Source)
	}

	positionInLayer := make(map[graph.NodeID]float64, len(ids))
	for li, layerNodes := range layers {
		if li == 0 {
			for pos, id := range layerNodes {
				positionInLayer[id] = float64(pos)
			}
			continue
		}
		sort.Slice(layerNodes, func(i, j int) bool {
			bi := barycenter(layerNodes[i], predecessors, positionInLayer)
			bj := barycenter(layerNodes[j], predecessors, positionInLayer)
			if bi != bj {
				return bi < bj
			}
			return layerNodes[i] < layerNodes[j]
		})
		for pos, id := range layerNodes {
			positionInLayer[id] = float64(pos)
		}
		layers[li] = layerNodes
	}

	out := make([]Layer, len(layers))
	for i, nodes := range layers {
		out[i] = Layer{Nodes: nodes}
	}
	return out
}

func barycenter(id graph.NodeID, predecessors map[graph.NodeID][]graph.NodeID, positionInLayer map[graph.NodeID]float64) float64 {
	preds := predecessors[id]
	if len(preds) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range preds {
		sum += positionInLayer[p]
	}
	return sum / float64(len(preds))
}
