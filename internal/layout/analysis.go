package layout

import (
	"github.com/cimalchemist/alchemist/internal/graph"
)

// DefaultDiameterSizeThreshold bounds how large a component can be before
// Diameter refuses the full all-pairs BFS and reports it as
// unbounded-by-policy (spec §4.8). Callers running on larger graphs
// should use a narrower AnalysisConfig.
const DefaultDiameterSizeThreshold = 2000

// AnalysisConfig tunes the structural-analysis algorithms that have a
// cost proportional to graph size.
type AnalysisConfig struct {
	DiameterSizeThreshold int
}

// DefaultAnalysisConfig returns the illustrative default from spec §4.8.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{DiameterSizeThreshold: DefaultDiameterSizeThreshold}
}

// ComponentReport summarizes the structural properties of one connected
// component.
type ComponentReport struct {
	Nodes      []graph.NodeID
	Density    float64
	Diameter   int
	Unbounded  bool // true when the component exceeded the size threshold
	Bipartite  bool
}

// Analyze computes a ComponentReport for every connected component of g,
// ordered the same way Components orders them (by smallest member id).
func Analyze(g *graph.Graph, cfg AnalysisConfig) []ComponentReport {
	components := Components(g)
	adj := undirectedAdjacency(g)

	out := make([]ComponentReport, 0, len(components))
	for _, nodes := range components {
		r := ComponentReport{Nodes: nodes}
		r.Density = density(nodes, adj)
		if len(nodes) > cfg.DiameterSizeThreshold {
			r.Unbounded = true
		} else {
			r.Diameter = diameter(nodes, adj)
		}
		r.Bipartite = isBipartite(nodes, adj)
		out = append(out, r)
	}
	return out
}

// density returns |E|/(|N|*(|N|-1)) for the subgraph induced by nodes,
// counting each undirected edge once. Zero for components of size < 2.
func density(nodes []graph.NodeID, adj map[graph.NodeID][]graph.NodeID) float64 {
	n := len(nodes)
	if n < 2 {
		return 0
	}
	members := make(map[graph.NodeID]struct{}, n)
	for _, id := range nodes {
		members[id] = struct{}{}
	}
	edgeCount := 0
	for _, id := range nodes {
		for _, nb := range adj[id] {
			if _, ok := members[nb]; ok && id < nb {
				edgeCount++
			}
		}
	}
	return float64(edgeCount) / float64(n*(n-1))
}

// diameter returns the longest shortest path, in edges, between any two
// nodes in the component (BFS from every node, in sorted order).
func diameter(nodes []graph.NodeID, adj map[graph.NodeID][]graph.NodeID) int {
	max := 0
	for _, src := range nodes {
		dist := bfsDistances(src, adj)
		for _, d := range dist {
			if d > max {
				max = d
			}
		}
	}
	return max
}

func bfsDistances(src graph.NodeID, adj map[graph.NodeID][]graph.NodeID) map[graph.NodeID]int {
	dist := map[graph.NodeID]int{src: 0}
	queue := []graph.NodeID{src}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		neighbors := append([]graph.NodeID(nil), adj[u]...)
		sortNodeIDs(neighbors)
		for _, v := range neighbors {
			if _, seen := dist[v]; !seen {
				dist[v] = dist[u] + 1
				queue = append(queue, v)
			}
		}
	}
	return dist
}

// isBipartite 2-colors the component via BFS; returns false as soon as
// an edge would connect two same-colored nodes.
func isBipartite(nodes []graph.NodeID, adj map[graph.NodeID][]graph.NodeID) bool {
	if len(nodes) == 0 {
		return true
	}
	color := make(map[graph.NodeID]int, len(nodes))
	start := nodes[0]
	color[start] = 0
	queue := []graph.NodeID{start}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		neighbors := append([]graph.NodeID(nil), adj[u]...)
		sortNodeIDs(neighbors)
		for _, v := range neighbors {
			if c, seen := color[v]; seen {
				if c == color[u] {
					return false
				}
				continue
			}
			color[v] = 1 - color[u]
			queue = append(queue, v)
		}
	}
	return true
}
