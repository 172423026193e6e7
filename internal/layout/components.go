package layout

import (
	"sort"

	"github.com/cimalchemist/alchemist/internal/graph"
)

// Components partitions g's live nodes into connected components over the
// undirected skeleton (an edge connects its source and target regardless
// of direction). Each component is returned as its node ids in ascending
// order; the outer slice is ordered by each component's smallest member
// id, so the result is deterministic regardless of map iteration order.
func Components(g *graph.Graph) [][]graph.NodeID {
	ids := sortedNodeIDs(g)
	uf := newUnionFind(ids)

	for _, eid := range g.Edges() {
		e, ok := g.Edge(eid)
		if !ok {
			continue
		}
		uf.union(e.Source, e.Target)
	}

	grouped := make(map[graph.NodeID][]graph.NodeID)
	for _, id := range ids {
		root := uf.find(id)
		grouped[root] = append(grouped[root], id)
	}

	roots := make([]graph.NodeID, 0, len(grouped))
	for root := range grouped {
		roots = append(roots, root)
	}
	sortNodeIDs(roots)

	out := make([][]graph.NodeID, 0, len(roots))
	for _, root := range roots {
		out = append(out, grouped[root])
	}
	return out
}

type unionFind struct {
	parent map[graph.NodeID]graph.NodeID
	rank   map[graph.NodeID]int
}

func newUnionFind(ids []graph.NodeID) *unionFind {
	uf := &unionFind{
		parent: make(map[graph.NodeID]graph.NodeID, len(ids)),
		rank:   make(map[graph.NodeID]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(x graph.NodeID) graph.NodeID {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b graph.NodeID) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// ArticulationPoints returns the live node ids, in ascending order, whose
// removal would increase the number of connected components of the
// undirected skeleton (standard Tarjan low-link DFS). Traversal order is
// fixed to sortedNodeIDs so the result is deterministic across runs.
func ArticulationPoints(g *graph.Graph) []graph.NodeID {
	adj := undirectedAdjacency(g)
	ids := sortedNodeIDs(g)

	disc := make(map[graph.NodeID]int)
	low := make(map[graph.NodeID]int)
	parent := make(map[graph.NodeID]graph.NodeID)
	isArticulation := make(map[graph.NodeID]bool)
	timer := 0

	var dfs func(u graph.NodeID)
	dfs = func(u graph.NodeID) {
		timer++
		disc[u] = timer
		low[u] = timer
		children := 0

		neighbors := append([]graph.NodeID(nil), adj[u]...)
		sortNodeIDs(neighbors)

		for _, v := range neighbors {
			if _, seen := disc[v]; !seen {
				children++
				parent[v] = u
				dfs(v)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if _, hasParent := parent[u]; hasParent {
					if low[v] >= disc[u] {
						isArticulation[u] = true
					}
				} else if children > 1 {
					isArticulation[u] = true
				}
			} else if v != parent[u] {
				if disc[v] < low[u] {
					low[u] = disc[v]
				}
			}
		}
	}

	for _, id := range ids {
		if _, seen := disc[id]; !seen {
			dfs(id)
		}
	}

	out := make([]graph.NodeID, 0, len(isArticulation))
	for id := range isArticulation {
		out = append(out, id)
	}
	sortNodeIDs(out)
	return out
}

func undirectedAdjacency(g *graph.Graph) map[graph.NodeID][]graph.NodeID {
	adj := make(map[graph.NodeID][]graph.NodeID)
	for _, eid := range g.Edges() {
		e, ok := g.Edge(eid)
		if !ok {
			continue
		}
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}
	return adj
}

func sortNodeIDs(ids []graph.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
