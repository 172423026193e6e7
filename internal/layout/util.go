package layout

import (
	"sort"

	"github.com/cimalchemist/alchemist/internal/graph"
)

// sortedNodeIDs returns g's live node IDs in ascending lexical order, the
// fixed iteration order every algorithm in this package uses in place of
// map/slice iteration order (spec §4.8: "sums over unordered sets are
// computed in node-id order").
func sortedNodeIDs(g *graph.Graph) []graph.NodeID {
	ids := g.Nodes()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
