package graph

import (
	"fmt"
	"sync"

	"github.com/cimalchemist/alchemist/internal/canon"
)

type nodeEntry struct {
	alive bool
	node  Node
	out   []EdgeID
	in    []EdgeID
}

type edgeEntry struct {
	alive bool
	edge  Edge
}

type subgraphEntry struct {
	alive    bool
	subgraph Subgraph
}

// Graph is the arena-backed, replay-derived state of one Graph aggregate.
// It is mutated only through Apply, in strict stream order, and is owned
// exclusively by the interactive thread (spec §5) — the async side never
// touches it directly, only through internal/bridge deliveries.
//
// Entries are never compacted out of their slices: a removed node's slot
// is marked !alive and its index retained, so that a CID or sequence
// number referencing history by position stays meaningful across the
// entry's lifetime. Lookups are by ID through the index maps.
type Graph struct {
	mu sync.RWMutex

	id       string
	archived bool
	nextSeq  int64

	nodes     []nodeEntry
	nodeIndex map[NodeID]int

	edges     []edgeEntry
	edgeIndex map[EdgeID]int

	subgraphs     []subgraphEntry
	subgraphIndex map[SubgraphID]int
}

// New returns an empty, uninitialized Graph. GraphCreated must be the
// first event applied.
func New() *Graph {
	return &Graph{
		nodeIndex:     make(map[NodeID]int),
		edgeIndex:     make(map[EdgeID]int),
		subgraphIndex: make(map[SubgraphID]int),
	}
}

// Apply folds one event into the graph's state. Events must arrive in
// strict sequence order starting at 0; anything else is OutOfOrder.
func (g *Graph) Apply(ev EventView) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ev.Sequence != g.nextSeq {
		return &OutOfOrder{Expected: g.nextSeq, Got: ev.Sequence}
	}

	var err error
	switch ev.Kind {
	case KindGraphCreated:
		err = g.applyGraphCreated(ev.Payload)
	case KindGraphArchived:
		err = g.applyGraphArchived()
	case KindNodeAdded:
		err = g.applyNodeAdded(ev.Payload)
	case KindNodeRemoved:
		err = g.applyNodeRemoved(ev.Payload)
	case KindNodeMoved:
		err = g.applyNodeMoved(ev.Payload)
	case KindNodeContentRemoved:
		err = g.applyNodeContentRemoved(ev.Payload)
	case KindNodeContentAdded:
		err = g.applyNodeContentAdded(ev.Payload)
	case KindEdgeAdded:
		err = g.applyEdgeAdded(ev.Payload)
	case KindEdgeRemoved:
		err = g.applyEdgeRemoved(ev.Payload)
	case KindSubgraphComposed:
		err = g.applySubgraphComposed(ev.Payload)
	case KindSubgraphRemoved:
		err = g.applySubgraphRemoved(ev.Payload)
	default:
		err = fmt.Errorf("graph: unknown event kind %q", ev.Kind)
	}
	if err != nil {
		return err
	}
	g.nextSeq++
	return nil
}

// NextSequence reports the sequence the graph expects its next Apply call
// to carry.
func (g *Graph) NextSequence() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nextSeq
}

// ID returns the graph's own aggregate identifier, set by GraphCreated.
func (g *Graph) ID() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.id
}

// Archived reports whether GraphArchived has been applied.
func (g *Graph) Archived() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.archived
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id NodeID) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.nodeIndex[id]
	if !ok || !g.nodes[idx].alive {
		return Node{}, false
	}
	return g.nodes[idx].node, true
}

// Edge returns a copy of the edge with the given ID.
func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.edgeIndex[id]
	if !ok || !g.edges[idx].alive {
		return Edge{}, false
	}
	return g.edges[idx].edge, true
}

// Subgraph returns a copy of the subgraph with the given ID.
func (g *Graph) Subgraph(id SubgraphID) (Subgraph, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.subgraphIndex[id]
	if !ok || !g.subgraphs[idx].alive {
		return Subgraph{}, false
	}
	return g.subgraphs[idx].subgraph, true
}

// Neighbors returns the IDs reachable from id in the requested direction.
// O(deg): walks only the adjacency list of the node in question.
func (g *Graph) Neighbors(id NodeID, dir Direction) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	idx, ok := g.nodeIndex[id]
	if !ok || !g.nodes[idx].alive {
		return nil
	}
	entry := g.nodes[idx]
	seen := make(map[NodeID]struct{})
	var out []NodeID
	add := func(eid EdgeID, other func(Edge) NodeID) {
		ei, ok := g.edgeIndex[eid]
		if !ok || !g.edges[ei].alive {
			return
		}
		n := other(g.edges[ei].edge)
		if _, dup := seen[n]; dup {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if dir == Outgoing || dir == Both {
		for _, eid := range entry.out {
			add(eid, func(e Edge) NodeID { return e.Target })
		}
	}
	if dir == Incoming || dir == Both {
		for _, eid := range entry.in {
			add(eid, func(e Edge) NodeID { return e.Source })
		}
	}
	return out
}

// Nodes returns the IDs of every live node, in arena order (insertion
// order, not sorted).
func (g *Graph) Nodes() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []NodeID
	for _, e := range g.nodes {
		if e.alive {
			out = append(out, e.node.ID)
		}
	}
	return out
}

// Edges returns the IDs of every live edge, in arena order.
func (g *Graph) Edges() []EdgeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []EdgeID
	for _, e := range g.edges {
		if e.alive {
			out = append(out, e.edge.ID)
		}
	}
	return out
}

// Subgraphs returns the IDs of every live subgraph, in arena order.
func (g *Graph) Subgraphs() []SubgraphID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []SubgraphID
	for _, e := range g.subgraphs {
		if e.alive {
			out = append(out, e.subgraph.ID)
		}
	}
	return out
}

func (g *Graph) applyGraphCreated(payload canon.Object) error {
	id, err := stringField(payload, "graph_id")
	if err != nil {
		return err
	}
	g.id = id
	return nil
}

func (g *Graph) applyGraphArchived() error {
	g.archived = true
	return nil
}

func (g *Graph) applyNodeAdded(payload canon.Object) error {
	id, err := stringField(payload, "node_id")
	if err != nil {
		return err
	}
	if _, exists := g.nodeIndex[NodeID(id)]; exists {
		if g.nodes[g.nodeIndex[NodeID(id)]].alive {
			return fmt.Errorf("graph: duplicate node id %q", id)
		}
	}
	label, _ := stringField(payload, "label")
	nodeType, _ := stringField(payload, "type")
	pos, err := positionField(payload, "pos")
	if err != nil {
		return err
	}
	semantic, err := semanticField(payload, "semantic")
	if err != nil {
		return err
	}
	n := Node{
		ID:       NodeID(id),
		Label:    label,
		Type:     nodeType,
		Pos:      pos,
		Semantic: semantic,
		Attrs:    canon.Object{},
	}
	idx, ok := g.nodeIndex[NodeID(id)]
	if ok {
		g.nodes[idx] = nodeEntry{alive: true, node: n}
	} else {
		g.nodeIndex[NodeID(id)] = len(g.nodes)
		g.nodes = append(g.nodes, nodeEntry{alive: true, node: n})
	}
	return nil
}

func (g *Graph) applyNodeRemoved(payload canon.Object) error {
	id, err := stringField(payload, "node_id")
	if err != nil {
		return err
	}
	idx, ok := g.nodeIndex[NodeID(id)]
	if !ok || !g.nodes[idx].alive {
		return fmt.Errorf("graph: %w: %q", ErrNodeNotFound, id)
	}
	g.nodes[idx].alive = false
	g.nodes[idx].out = nil
	g.nodes[idx].in = nil
	return nil
}

func (g *Graph) applyNodeMoved(payload canon.Object) error {
	id, err := stringField(payload, "node_id")
	if err != nil {
		return err
	}
	idx, ok := g.nodeIndex[NodeID(id)]
	if !ok || !g.nodes[idx].alive {
		return fmt.Errorf("graph: %w: %q", ErrNodeNotFound, id)
	}
	pos, err := positionField(payload, "pos")
	if err != nil {
		return err
	}
	g.nodes[idx].node.Pos = pos
	return nil
}

func (g *Graph) applyNodeContentRemoved(payload canon.Object) error {
	id, err := stringField(payload, "node_id")
	if err != nil {
		return err
	}
	idx, ok := g.nodeIndex[NodeID(id)]
	if !ok || !g.nodes[idx].alive {
		return fmt.Errorf("graph: %w: %q", ErrNodeNotFound, id)
	}
	// Content is cleared here; NodeContentAdded (same correlation id, next
	// in the stream) supplies the replacement. NodeID itself never changes,
	// unlike the edge value-object policy, because other edges reference it.
	g.nodes[idx].node.Label = ""
	g.nodes[idx].node.Type = ""
	g.nodes[idx].node.Attrs = canon.Object{}
	return nil
}

func (g *Graph) applyNodeContentAdded(payload canon.Object) error {
	id, err := stringField(payload, "node_id")
	if err != nil {
		return err
	}
	idx, ok := g.nodeIndex[NodeID(id)]
	if !ok || !g.nodes[idx].alive {
		return fmt.Errorf("graph: %w: %q", ErrNodeNotFound, id)
	}
	contentSeq, err := intField(payload, "content_seq")
	if err != nil {
		return err
	}
	label, _ := stringField(payload, "label")
	nodeType, _ := stringField(payload, "type")
	attrs, _ := payload["attrs"].(canon.Object)
	g.nodes[idx].node.Label = label
	g.nodes[idx].node.Type = nodeType
	g.nodes[idx].node.Attrs = attrs
	g.nodes[idx].node.ContentSeq = contentSeq
	return nil
}

func (g *Graph) applyEdgeAdded(payload canon.Object) error {
	id, err := stringField(payload, "edge_id")
	if err != nil {
		return err
	}
	source, err := stringField(payload, "source")
	if err != nil {
		return err
	}
	target, err := stringField(payload, "target")
	if err != nil {
		return err
	}
	kind, _ := stringField(payload, "kind")

	srcIdx, ok := g.nodeIndex[NodeID(source)]
	if !ok || !g.nodes[srcIdx].alive {
		return fmt.Errorf("graph: edge %q: %w: source %q", id, ErrNodeNotFound, source)
	}
	tgtIdx, ok := g.nodeIndex[NodeID(target)]
	if !ok || !g.nodes[tgtIdx].alive {
		return fmt.Errorf("graph: edge %q: %w: target %q", id, ErrNodeNotFound, target)
	}

	var weight *float64
	if wv, ok := payload["weight"]; ok {
		if f, ok := wv.(canon.Float); ok {
			w := float64(f)
			weight = &w
		}
	}

	e := Edge{
		ID:     EdgeID(id),
		Source: NodeID(source),
		Target: NodeID(target),
		Kind:   kind,
		Weight: weight,
		Attrs:  canon.Object{},
	}

	var edgeIdx int
	if idx, ok := g.edgeIndex[EdgeID(id)]; ok {
		g.edges[idx] = edgeEntry{alive: true, edge: e}
		edgeIdx = idx
	} else {
		edgeIdx = len(g.edges)
		g.edgeIndex[EdgeID(id)] = edgeIdx
		g.edges = append(g.edges, edgeEntry{alive: true, edge: e})
	}
	g.nodes[srcIdx].out = append(g.nodes[srcIdx].out, EdgeID(id))
	g.nodes[tgtIdx].in = append(g.nodes[tgtIdx].in, EdgeID(id))
	_ = edgeIdx
	return nil
}

func (g *Graph) applyEdgeRemoved(payload canon.Object) error {
	id, err := stringField(payload, "edge_id")
	if err != nil {
		return err
	}
	idx, ok := g.edgeIndex[EdgeID(id)]
	if !ok || !g.edges[idx].alive {
		return fmt.Errorf("graph: %w: %q", ErrEdgeNotFound, id)
	}
	e := g.edges[idx].edge
	g.edges[idx].alive = false
	if srcIdx, ok := g.nodeIndex[e.Source]; ok {
		g.nodes[srcIdx].out = removeEdgeID(g.nodes[srcIdx].out, e.ID)
	}
	if tgtIdx, ok := g.nodeIndex[e.Target]; ok {
		g.nodes[tgtIdx].in = removeEdgeID(g.nodes[tgtIdx].in, e.ID)
	}
	return nil
}

func (g *Graph) applySubgraphComposed(payload canon.Object) error {
	id, err := stringField(payload, "subgraph_id")
	if err != nil {
		return err
	}
	boundary, _ := stringField(payload, "boundary")
	membersVal, _ := payload["members"].(canon.Array)
	members := make(map[NodeID]struct{}, len(membersVal))
	for _, m := range membersVal {
		s, ok := m.(canon.String)
		if !ok {
			continue
		}
		members[NodeID(s)] = struct{}{}
	}
	sg := Subgraph{
		ID:       SubgraphID(id),
		Members:  members,
		Boundary: BoundaryPolicy(boundary),
	}
	if idx, ok := g.subgraphIndex[SubgraphID(id)]; ok {
		g.subgraphs[idx] = subgraphEntry{alive: true, subgraph: sg}
	} else {
		g.subgraphIndex[SubgraphID(id)] = len(g.subgraphs)
		g.subgraphs = append(g.subgraphs, subgraphEntry{alive: true, subgraph: sg})
	}
	return nil
}

func (g *Graph) applySubgraphRemoved(payload canon.Object) error {
	id, err := stringField(payload, "subgraph_id")
	if err != nil {
		return err
	}
	idx, ok := g.subgraphIndex[SubgraphID(id)]
	if !ok || !g.subgraphs[idx].alive {
		return fmt.Errorf("graph: subgraph not found: %q", id)
	}
	g.subgraphs[idx].alive = false
	return nil
}

func removeEdgeID(list []EdgeID, id EdgeID) []EdgeID {
	out := list[:0]
	for _, e := range list {
		if e != id {
			out = append(out, e)
		}
	}
	return out
}

func stringField(obj canon.Object, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("graph: payload missing field %q", key)
	}
	s, ok := v.(canon.String)
	if !ok {
		return "", fmt.Errorf("graph: field %q is not a string", key)
	}
	return string(s), nil
}

func intField(obj canon.Object, key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("graph: payload missing field %q", key)
	}
	i, ok := v.(canon.Int)
	if !ok {
		return 0, fmt.Errorf("graph: field %q is not an int", key)
	}
	return int64(i), nil
}

func positionField(obj canon.Object, key string) (Position, error) {
	v, ok := obj[key]
	if !ok {
		return Position{}, nil
	}
	arr, ok := v.(canon.Array)
	if !ok || len(arr) != 3 {
		return Position{}, fmt.Errorf("graph: field %q is not a 3-element array", key)
	}
	x, ok1 := arr[0].(canon.Float)
	y, ok2 := arr[1].(canon.Float)
	z, ok3 := arr[2].(canon.Float)
	if !ok1 || !ok2 || !ok3 {
		return Position{}, fmt.Errorf("graph: field %q has non-float elements", key)
	}
	return Position{X: float64(x), Y: float64(y), Z: float64(z)}, nil
}

func semanticField(obj canon.Object, key string) ([]float64, error) {
	v, ok := obj[key]
	if !ok {
		return nil, nil
	}
	arr, ok := v.(canon.Array)
	if !ok {
		return nil, fmt.Errorf("graph: field %q is not an array", key)
	}
	out := make([]float64, len(arr))
	for i, elem := range arr {
		f, ok := elem.(canon.Float)
		if !ok {
			return nil, fmt.Errorf("graph: field %q[%d] is not a float", key, i)
		}
		out[i] = float64(f)
	}
	return out, nil
}
